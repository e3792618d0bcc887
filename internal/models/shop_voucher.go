package models

import (
	"time"

	"gorm.io/gorm"
)

// ShopVoucher 店铺优惠券（仅对该店铺的购物车行生效）
type ShopVoucher struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                                             // 主键
	ShopID              uint           `gorm:"index;not null" json:"shop_id"`                                    // 所属店铺ID
	Code                string         `gorm:"index;not null" json:"code"`                                       // 优惠码（店铺内唯一）
	DiscountPercent     float64        `gorm:"not null" json:"discount_percent"`                                 // 折扣比例（0–1）
	MinimumRequirePrice Money          `gorm:"type:decimal(20,2);not null;default:0" json:"minimum_require_price"` // 使用门槛（店铺范围小计）
	MaxDiscountPrice    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"max_discount_price"`  // 最大优惠金额
	Quantity            int            `gorm:"not null;default:0" json:"quantity"`                               // 剩余可领取数量
	MaxUsePerUser       int            `gorm:"not null;default:0" json:"max_use_per_user"`                       // 每人使用上限（0 表示不限制）
	ValidFrom           time.Time      `gorm:"index;not null" json:"valid_from"`                                 // 生效时间
	ValidTo             time.Time      `gorm:"index;not null" json:"valid_to"`                                   // 失效时间
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`                                          // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                                                   // 软删除时间
}

// TableName 指定表名
func (ShopVoucher) TableName() string {
	return "shop_vouchers"
}
