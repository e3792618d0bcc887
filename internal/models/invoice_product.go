package models

import (
	"time"
)

// InvoiceProduct 账单明细表（创建后不可变的价格/名称快照）
type InvoiceProduct struct {
	ID                 uint      `gorm:"primarykey" json:"id"`                                          // 主键
	InvoiceID          string    `gorm:"index;type:varchar(36);not null" json:"invoice_id"`             // 账单ID
	ProductVariationID uint      `gorm:"index;not null" json:"product_variation_id"`                    // 商品规格ID
	ProductName        string    `gorm:"type:varchar(200);not null" json:"product_name"`                // 商品名称快照
	VariationName      string    `gorm:"type:varchar(200)" json:"variation_name"`                       // 规格名称快照
	Price              Money     `gorm:"type:decimal(20,2);not null;default:0" json:"price"`            // 成交单价
	OriginalPrice      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"original_price"`   // 原始单价
	DiscountPercent    float64   `gorm:"not null;default:0" json:"discount_percent"`                    // 商品级折扣（0–1）
	DiscountAmount     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`  // 优惠券分摊金额
	Quantity           int       `gorm:"not null" json:"quantity"`                                      // 数量
	CreatedAt          time.Time `gorm:"index" json:"created_at"`                                       // 创建时间
}

// TableName 指定表名
func (InvoiceProduct) TableName() string {
	return "invoice_products"
}
