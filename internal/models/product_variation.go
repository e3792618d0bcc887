package models

import (
	"time"

	"gorm.io/gorm"
)

// ProductVariation 商品规格表（库存计数的唯一热点共享资源）
type ProductVariation struct {
	ID              uint           `gorm:"primarykey" json:"id"`                               // 主键
	ProductID       uint           `gorm:"index;not null" json:"product_id"`                   // 商品ID
	ShopID          uint           `gorm:"index;not null" json:"shop_id"`                      // 所属店铺ID
	Name            string         `gorm:"type:varchar(200);not null" json:"name"`             // 规格名称
	Price           Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 单价
	DiscountPercent float64        `gorm:"not null;default:0" json:"discount_percent"`         // 商品级折扣（0–1）
	StockQuantity   int            `gorm:"not null;default:0" json:"stock_quantity"`           // 库存数量（恒 ≥ 0，仅允许条件更新）
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (ProductVariation) TableName() string {
	return "product_variations"
}
