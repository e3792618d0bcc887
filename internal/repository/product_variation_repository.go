package repository

import (
	"errors"

	"github.com/marketbay-next/internal/models"

	"gorm.io/gorm"
)

// ProductVariationRepository 商品规格数据访问接口
type ProductVariationRepository interface {
	GetByID(id uint) (*models.ProductVariation, error)
	ListByIDs(ids []uint) ([]models.ProductVariation, error)
	DecrementStock(variationID uint, quantity int) (int64, error)
	RestoreStock(variationID uint, quantity int) (int64, error)
	WithTx(tx *gorm.DB) ProductVariationRepository
}

// GormProductVariationRepository GORM 实现
type GormProductVariationRepository struct {
	db *gorm.DB
}

// NewProductVariationRepository 创建商品规格仓库
func NewProductVariationRepository(db *gorm.DB) *GormProductVariationRepository {
	return &GormProductVariationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductVariationRepository) WithTx(tx *gorm.DB) ProductVariationRepository {
	if tx == nil {
		return r
	}
	return &GormProductVariationRepository{db: tx}
}

// GetByID 根据 ID 获取商品规格
func (r *GormProductVariationRepository) GetByID(id uint) (*models.ProductVariation, error) {
	if id == 0 {
		return nil, errors.New("invalid variation id")
	}
	var item models.ProductVariation
	if err := r.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// ListByIDs 批量获取商品规格
func (r *GormProductVariationRepository) ListByIDs(ids []uint) ([]models.ProductVariation, error) {
	if len(ids) == 0 {
		return []models.ProductVariation{}, nil
	}
	var items []models.ProductVariation
	if err := r.db.Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DecrementStock 条件扣减库存。单条语句完成校验与扣减，
// 库存不足时返回 0 行，调用方据此中止整笔订单。
func (r *GormProductVariationRepository) DecrementStock(variationID uint, quantity int) (int64, error) {
	if variationID == 0 || quantity <= 0 {
		return 0, errors.New("invalid stock decrement params")
	}
	result := r.db.Model(&models.ProductVariation{}).
		Where("id = ? AND stock_quantity >= ?", variationID, quantity).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// RestoreStock 回补库存（超时取消等补偿动作）
func (r *GormProductVariationRepository) RestoreStock(variationID uint, quantity int) (int64, error) {
	if variationID == 0 || quantity <= 0 {
		return 0, errors.New("invalid stock restore params")
	}
	result := r.db.Model(&models.ProductVariation{}).
		Where("id = ?", variationID).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity + ?", quantity),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
