package repository

import (
	"errors"

	"github.com/marketbay-next/internal/models"

	"gorm.io/gorm"
)

// VoucherRepository 优惠券数据访问接口（平台券与店铺券）
type VoucherRepository interface {
	GetVoucherByID(id uint) (*models.Voucher, error)
	GetVoucherByCode(code string) (*models.Voucher, error)
	GetShopVoucherByID(id uint) (*models.ShopVoucher, error)
	GetShopVoucherByCode(shopID uint, code string) (*models.ShopVoucher, error)
	WithTx(tx *gorm.DB) *GormVoucherRepository
}

// GormVoucherRepository GORM 实现
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewVoucherRepository 创建优惠券仓库
func NewVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVoucherRepository) WithTx(tx *gorm.DB) *GormVoucherRepository {
	if tx == nil {
		return r
	}
	return &GormVoucherRepository{db: tx}
}

// GetVoucherByID 根据 ID 获取平台券
func (r *GormVoucherRepository) GetVoucherByID(id uint) (*models.Voucher, error) {
	if id == 0 {
		return nil, errors.New("invalid voucher id")
	}
	var voucher models.Voucher
	if err := r.db.First(&voucher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// GetVoucherByCode 根据优惠码获取平台券
func (r *GormVoucherRepository) GetVoucherByCode(code string) (*models.Voucher, error) {
	if code == "" {
		return nil, errors.New("invalid voucher code")
	}
	var voucher models.Voucher
	if err := r.db.Where("code = ?", code).First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// GetShopVoucherByID 根据 ID 获取店铺券
func (r *GormVoucherRepository) GetShopVoucherByID(id uint) (*models.ShopVoucher, error) {
	if id == 0 {
		return nil, errors.New("invalid shop voucher id")
	}
	var voucher models.ShopVoucher
	if err := r.db.First(&voucher, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// GetShopVoucherByCode 根据店铺和优惠码获取店铺券
func (r *GormVoucherRepository) GetShopVoucherByCode(shopID uint, code string) (*models.ShopVoucher, error) {
	if shopID == 0 || code == "" {
		return nil, errors.New("invalid shop voucher params")
	}
	var voucher models.ShopVoucher
	if err := r.db.Where("shop_id = ? AND code = ?", shopID, code).First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}
