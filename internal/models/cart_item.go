package models

import (
	"time"

	"gorm.io/gorm"
)

// CartItem 购物车项（结算校验时的权威读模型）
type CartItem struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                                   // 主键
	UserID             uint           `gorm:"not null;uniqueIndex:idx_cart_user_variation" json:"user_id"`            // 用户ID
	ProductVariationID uint           `gorm:"not null;uniqueIndex:idx_cart_user_variation" json:"product_variation_id"` // 商品规格ID
	Quantity           int            `gorm:"not null" json:"quantity"`                                               // 数量
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                                // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                                // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                                         // 软删除时间

	ProductVariation *ProductVariation `gorm:"foreignKey:ProductVariationID" json:"product_variation,omitempty"` // 关联规格
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}
