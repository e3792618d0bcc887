package repository

import (
	"errors"
	"time"

	"github.com/marketbay-next/internal/models"

	"gorm.io/gorm"
)

// InvoiceRepository 账单数据访问接口
type InvoiceRepository interface {
	Create(invoice *models.Invoice, products []models.InvoiceProduct) error
	GetByID(id string) (*models.Invoice, error)
	GetByIDAndUser(id string, userID uint) (*models.Invoice, error)
	ListByUser(filter InvoiceListFilter) ([]models.Invoice, int64, error)
	TransitionPaymentStatus(id, current, target string, updates map[string]interface{}) (int64, error)
	ListAwaitingSiblings(excludeID string, userID uint, paymentMethod, current string, since time.Time) ([]models.Invoice, error)
	WithTx(tx *gorm.DB) *GormInvoiceRepository
}

// GormInvoiceRepository GORM 实现
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository 创建账单仓库
func NewInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// WithTx 绑定事务
func (r *GormInvoiceRepository) WithTx(tx *gorm.DB) *GormInvoiceRepository {
	if tx == nil {
		return r
	}
	return &GormInvoiceRepository{db: tx}
}

// Create 创建账单与账单明细
func (r *GormInvoiceRepository) Create(invoice *models.Invoice, products []models.InvoiceProduct) error {
	if err := r.db.Create(invoice).Error; err != nil {
		return err
	}
	for i := range products {
		products[i].InvoiceID = invoice.ID
	}
	if len(products) > 0 {
		if err := r.db.Create(&products).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据 ID 获取账单
func (r *GormInvoiceRepository) GetByID(id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.Preload("Products").Where("id = ?", id).First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// GetByIDAndUser 获取用户账单详情
func (r *GormInvoiceRepository) GetByIDAndUser(id string, userID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.Preload("Products").
		Where("id = ? AND user_id = ?", id, userID).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// ListByUser 获取用户账单列表
func (r *GormInvoiceRepository) ListByUser(filter InvoiceListFilter) ([]models.Invoice, int64, error) {
	query := r.db.Model(&models.Invoice{}).Where("user_id = ?", filter.UserID)
	if filter.ShopID > 0 {
		query = query.Where("shop_id = ?", filter.ShopID)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.OrderStatus != "" {
		query = query.Where("order_status = ?", filter.OrderStatus)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var invoices []models.Invoice
	if err := query.Preload("Products").Order("created_at desc").Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// TransitionPaymentStatus 条件更新支付状态，仅当当前状态匹配时生效。
// 返回受影响行数，0 行表示状态已被并发的另一条回调推进（幂等无操作）。
func (r *GormInvoiceRepository) TransitionPaymentStatus(id, current, target string, updates map[string]interface{}) (int64, error) {
	values := map[string]interface{}{"payment_status": target}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.Model(&models.Invoice{}).
		Where("id = ? AND payment_status = ?", id, current).
		Updates(values)
	return result.RowsAffected, result.Error
}

// ListAwaitingSiblings 查找同一用户、同一支付方式、回溯窗口内仍处于
// 给定状态的兄弟账单（同一次结算拆单的归并范围）。
func (r *GormInvoiceRepository) ListAwaitingSiblings(excludeID string, userID uint, paymentMethod, current string, since time.Time) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.Preload("Products").
		Where("id <> ? AND user_id = ? AND payment_method = ? AND payment_status = ? AND created_at >= ?",
			excludeID, userID, paymentMethod, current, since).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
