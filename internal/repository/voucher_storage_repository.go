package repository

import (
	"errors"
	"time"

	"github.com/marketbay-next/internal/models"

	"gorm.io/gorm"
)

// VoucherStorageRepository 优惠券领取记录数据访问接口
type VoucherStorageRepository interface {
	GetByID(id uint) (*models.VoucherStorage, error)
	GetByIDAndUser(id, userID uint) (*models.VoucherStorage, error)
	MarkUsed(id uint) (int64, error)
	Release(id uint) (int64, error)
	WithTx(tx *gorm.DB) *GormVoucherStorageRepository
}

// GormVoucherStorageRepository GORM 实现
type GormVoucherStorageRepository struct {
	db *gorm.DB
}

// NewVoucherStorageRepository 创建优惠券领取记录仓库
func NewVoucherStorageRepository(db *gorm.DB) *GormVoucherStorageRepository {
	return &GormVoucherStorageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVoucherStorageRepository) WithTx(tx *gorm.DB) *GormVoucherStorageRepository {
	if tx == nil {
		return r
	}
	return &GormVoucherStorageRepository{db: tx}
}

// GetByID 根据 ID 获取领取记录
func (r *GormVoucherStorageRepository) GetByID(id uint) (*models.VoucherStorage, error) {
	if id == 0 {
		return nil, errors.New("invalid voucher storage id")
	}
	var storage models.VoucherStorage
	if err := r.db.First(&storage, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &storage, nil
}

// GetByIDAndUser 获取用户本人的领取记录
func (r *GormVoucherStorageRepository) GetByIDAndUser(id, userID uint) (*models.VoucherStorage, error) {
	if id == 0 || userID == 0 {
		return nil, errors.New("invalid voucher storage params")
	}
	var storage models.VoucherStorage
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&storage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &storage, nil
}

// MarkUsed 条件消费领取记录。仅当 is_used = false 时生效，
// 0 行表示该券已被并发订单消费。
func (r *GormVoucherStorageRepository) MarkUsed(id uint) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid voucher storage id")
	}
	now := time.Now()
	result := r.db.Model(&models.VoucherStorage{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Release 释放领取记录（订单取消的补偿动作），仅回滚已消费的记录
func (r *GormVoucherStorageRepository) Release(id uint) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid voucher storage id")
	}
	result := r.db.Model(&models.VoucherStorage{}).
		Where("id = ? AND is_used = ?", id, true).
		Updates(map[string]interface{}{
			"is_used": false,
			"used_at": nil,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
