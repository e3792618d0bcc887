package models

import (
	"time"

	"gorm.io/gorm"
)

// VoucherStorage 用户的优惠券领取记录，每条最多被一笔订单消费一次
type VoucherStorage struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                              // 主键
	UserID      uint           `gorm:"index;not null;uniqueIndex:idx_storage_user_voucher" json:"user_id"` // 用户ID
	VoucherType string         `gorm:"not null;uniqueIndex:idx_storage_user_voucher" json:"voucher_type"` // 券类型（voucher/shop_voucher）
	VoucherID   uint           `gorm:"not null;uniqueIndex:idx_storage_user_voucher" json:"voucher_id"`   // 券ID
	IsUsed      bool           `gorm:"not null;default:false;index" json:"is_used"`                       // 是否已使用（置 true 后不可逆）
	UsedAt      *time.Time     `gorm:"index" json:"used_at"`                                              // 使用时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                                           // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                                    // 软删除时间
}

// TableName 指定表名
func (VoucherStorage) TableName() string {
	return "voucher_storages"
}
