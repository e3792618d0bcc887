//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/marketbay-next/internal/constants"
	"github.com/marketbay-next/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.InvoiceProduct{},
		&models.Invoice{},
		&models.ProductVariation{},
		&models.VoucherStorage{},
		&models.Voucher{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.ProductVariation{},
		&models.Voucher{},
		&models.VoucherStorage{},
		&models.Invoice{},
		&models.InvoiceProduct{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresInvoiceTransition(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewInvoiceRepository(db)

	invoice := &models.Invoice{
		ID:            uuid.NewString(),
		UserID:        1,
		ShopID:        1,
		PaymentMethod: constants.PaymentMethodVNPay,
		PaymentStatus: constants.PaymentStatusAwaitingPayment,
		OrderStatus:   constants.OrderStatusPending,
		TotalAmount:   models.NewMoneyFromInt(120000),
	}
	if err := repo.Create(invoice, []models.InvoiceProduct{
		{
			ProductVariationID: 1,
			ProductName:        "Áo thun nam",
			VariationName:      "Đen / M",
			Price:              models.NewMoneyFromInt(120000),
			OriginalPrice:      models.NewMoneyFromInt(120000),
			Quantity:           1,
		},
	}); err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}

	affected, err := repo.TransitionPaymentStatus(
		invoice.ID,
		constants.PaymentStatusAwaitingPayment,
		constants.PaymentStatusCompleted,
		map[string]interface{}{"paid_at": time.Now()},
	)
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("transition affected want 1 got %d", affected)
	}

	// 状态已推进后重复投递不再生效
	affected, err = repo.TransitionPaymentStatus(
		invoice.ID,
		constants.PaymentStatusAwaitingPayment,
		constants.PaymentStatusCancelled,
		nil,
	)
	if err != nil {
		t.Fatalf("second transition failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("second transition affected want 0 got %d", affected)
	}

	reloaded, err := repo.GetByID(invoice.ID)
	if err != nil {
		t.Fatalf("reload invoice failed: %v", err)
	}
	if reloaded == nil || reloaded.PaymentStatus != constants.PaymentStatusCompleted {
		t.Fatalf("invoice should stay COMPLETED, got %+v", reloaded)
	}
	if len(reloaded.Products) != 1 {
		t.Fatalf("invoice products len want 1 got %d", len(reloaded.Products))
	}
}

func TestPostgresStockDecrement(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewProductVariationRepository(db)

	variation := &models.ProductVariation{
		ProductID:     1,
		ShopID:        1,
		Name:          "pg-variation",
		Price:         models.NewMoneyFromDecimal(decimal.NewFromInt(50000)),
		StockQuantity: 3,
	}
	if err := db.Create(variation).Error; err != nil {
		t.Fatalf("create variation failed: %v", err)
	}

	affected, err := repo.DecrementStock(variation.ID, 2)
	if err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("decrement affected want 1 got %d", affected)
	}

	// 余量不足时守卫条件拒绝扣减
	affected, err = repo.DecrementStock(variation.ID, 2)
	if err != nil {
		t.Fatalf("second decrement failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("second decrement affected want 0 got %d", affected)
	}

	reloaded, err := repo.GetByID(variation.ID)
	if err != nil {
		t.Fatalf("reload variation failed: %v", err)
	}
	if reloaded == nil || reloaded.StockQuantity != 1 {
		t.Fatalf("stock want 1 got %+v", reloaded)
	}
}
