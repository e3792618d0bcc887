package models

import (
	"time"
)

// Invoice 账单表（每个店铺一张，一次多店铺结算会拆出多张）
type Invoice struct {
	ID                string     `gorm:"primarykey;type:varchar(36)" json:"id"`                     // 主键（UUID）
	UserID            uint       `gorm:"index;not null" json:"user_id"`                             // 用户ID
	ShopID            uint       `gorm:"index;not null" json:"shop_id"`                             // 店铺ID
	PaymentMethod     string     `gorm:"index;not null" json:"payment_method"`                      // 支付方式（COD/VNPAY）
	PaymentStatus     string     `gorm:"index;not null" json:"payment_status"`                      // 支付状态
	OrderStatus       string     `gorm:"index;not null" json:"order_status"`                        // 订单履约状态
	TotalAmount       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 实付金额
	ShippingFee       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_fee"` // 运费
	ShippingAddressID *uint      `gorm:"index" json:"shipping_address_id,omitempty"`                // 收货地址ID
	VoucherStorageID  *uint      `gorm:"index" json:"voucher_storage_id,omitempty"`                 // 使用的优惠券领取记录ID
	PaidAt            *time.Time `gorm:"index" json:"paid_at"`                                      // 支付时间
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt         time.Time  `gorm:"index" json:"updated_at"`                                   // 更新时间

	Products []InvoiceProduct `gorm:"foreignKey:InvoiceID" json:"products,omitempty"` // 账单明细
}

// TableName 指定表名
func (Invoice) TableName() string {
	return "invoices"
}
