package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/marketbay-next/internal/constants"
	"github.com/marketbay-next/internal/models"
	"github.com/marketbay-next/internal/queue"
	"github.com/marketbay-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCheckoutServiceTest(t *testing.T) (*CheckoutService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:checkout_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.ProductVariation{},
		&models.CartItem{},
		&models.Voucher{},
		&models.ShopVoucher{},
		&models.VoucherStorage{},
		&models.Invoice{},
		&models.InvoiceProduct{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	invoiceRepo := repository.NewInvoiceRepository(db)
	variationRepo := repository.NewProductVariationRepository(db)
	voucherRepo := repository.NewVoucherRepository(db)
	storageRepo := repository.NewVoucherStorageRepository(db)
	cartRepo := repository.NewCartRepository(db)
	voucherSvc := NewVoucherService(voucherRepo, storageRepo)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	return NewCheckoutService(invoiceRepo, variationRepo, storageRepo, cartRepo, voucherSvc, queueClient, 30), db
}

func createTestVariation(t *testing.T, db *gorm.DB, shopID uint, price int64, stock int) *models.ProductVariation {
	t.Helper()
	variation := models.ProductVariation{
		ProductID:     1,
		ShopID:        shopID,
		Name:          fmt.Sprintf("variation-shop%d-%d", shopID, price),
		Price:         models.NewMoneyFromInt(price),
		StockQuantity: stock,
	}
	if err := db.Create(&variation).Error; err != nil {
		t.Fatalf("create variation failed: %v", err)
	}
	return &variation
}

func createClaimedVoucher(t *testing.T, db *gorm.DB, userID uint, percent float64, minSpend, maxDiscount int64) *models.VoucherStorage {
	t.Helper()
	voucher := models.Voucher{
		Code:                fmt.Sprintf("TEST-%d", time.Now().UnixNano()),
		DiscountPercent:     percent,
		MinimumRequirePrice: models.NewMoneyFromInt(minSpend),
		MaxDiscountPrice:    models.NewMoneyFromInt(maxDiscount),
		ValidFrom:           time.Now().AddDate(0, -1, 0),
		ValidTo:             time.Now().AddDate(0, 1, 0),
	}
	if err := db.Create(&voucher).Error; err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	storage := models.VoucherStorage{
		UserID:      userID,
		VoucherType: constants.VoucherTypeSystem,
		VoucherID:   voucher.ID,
	}
	if err := db.Create(&storage).Error; err != nil {
		t.Fatalf("create storage failed: %v", err)
	}
	return &storage
}

func checkoutItemFromVariation(variation *models.ProductVariation, quantity int) CheckoutItem {
	return CheckoutItem{
		ProductVariationID: variation.ID,
		ProductName:        variation.Name,
		VariationName:      variation.Name,
		Price:              variation.Price,
		Quantity:           quantity,
	}
}

func TestCheckoutCreatesInvoice(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	v1 := createTestVariation(t, db, 1, 120000, 10)
	v2 := createTestVariation(t, db, 1, 40000, 10)

	invoice, err := svc.Checkout(CheckoutInput{
		UserID:        1,
		ShopID:        1,
		PaymentMethod: "vnpay",
		Items: []CheckoutItem{
			checkoutItemFromVariation(v1, 1),
			checkoutItemFromVariation(v2, 2),
		},
		ShippingFee: models.NewMoneyFromInt(15000),
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if invoice.PaymentMethod != constants.PaymentMethodVNPay {
		t.Fatalf("expected normalized method VNPAY, got %s", invoice.PaymentMethod)
	}
	if invoice.PaymentStatus != constants.PaymentStatusAwaitingPayment {
		t.Fatalf("expected awaiting_payment, got %s", invoice.PaymentStatus)
	}
	if !invoice.TotalAmount.Decimal.Equal(decimal.NewFromInt(215000)) {
		t.Fatalf("expected total 215000, got %s", invoice.TotalAmount.String())
	}
	if len(invoice.Products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(invoice.Products))
	}

	var reloaded models.ProductVariation
	if err := db.First(&reloaded, v2.ID).Error; err != nil {
		t.Fatalf("reload variation failed: %v", err)
	}
	if reloaded.StockQuantity != 8 {
		t.Fatalf("expected stock 8 after decrement, got %d", reloaded.StockQuantity)
	}
}

func TestCheckoutCODStartsPending(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	variation := createTestVariation(t, db, 1, 50000, 5)

	invoice, err := svc.Checkout(CheckoutInput{
		UserID:        1,
		ShopID:        1,
		PaymentMethod: "cod",
		Items:         []CheckoutItem{checkoutItemFromVariation(variation, 1)},
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if invoice.PaymentStatus != constants.PaymentStatusPending {
		t.Fatalf("expected pending for COD, got %s", invoice.PaymentStatus)
	}
}

func TestCheckoutStockInsufficientRollsBack(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	variation := createTestVariation(t, db, 1, 50000, 3)

	_, err := svc.Checkout(CheckoutInput{
		UserID:        1,
		ShopID:        1,
		PaymentMethod: constants.PaymentMethodVNPay,
		Items:         []CheckoutItem{checkoutItemFromVariation(variation, 5)},
	})
	if !errors.Is(err, ErrStockInsufficient) {
		t.Fatalf("expected ErrStockInsufficient, got %v", err)
	}

	var invoiceCount int64
	if err := db.Model(&models.Invoice{}).Count(&invoiceCount).Error; err != nil {
		t.Fatalf("count invoices failed: %v", err)
	}
	if invoiceCount != 0 {
		t.Fatalf("expected transaction rollback to leave no invoices, got %d", invoiceCount)
	}
	var reloaded models.ProductVariation
	if err := db.First(&reloaded, variation.ID).Error; err != nil {
		t.Fatalf("reload variation failed: %v", err)
	}
	if reloaded.StockQuantity != 3 {
		t.Fatalf("expected stock unchanged at 3, got %d", reloaded.StockQuantity)
	}
}

func TestCheckoutSequentialStockContention(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	variation := createTestVariation(t, db, 1, 50000, 3)

	input := CheckoutInput{
		UserID:        1,
		ShopID:        1,
		PaymentMethod: constants.PaymentMethodVNPay,
		Items:         []CheckoutItem{checkoutItemFromVariation(variation, 2)},
	}
	if _, err := svc.Checkout(input); err != nil {
		t.Fatalf("first checkout error: %v", err)
	}
	if _, err := svc.Checkout(input); !errors.Is(err, ErrStockInsufficient) {
		t.Fatalf("expected second checkout to fail with ErrStockInsufficient, got %v", err)
	}

	var reloaded models.ProductVariation
	if err := db.First(&reloaded, variation.ID).Error; err != nil {
		t.Fatalf("reload variation failed: %v", err)
	}
	if reloaded.StockQuantity != 1 {
		t.Fatalf("expected stock 1 after one successful checkout, got %d", reloaded.StockQuantity)
	}
}

func TestCheckoutConsumesVoucherOnce(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	variation := createTestVariation(t, db, 1, 200000, 10)
	storage := createClaimedVoucher(t, db, 1, 0.1, 100000, 50000)

	invoice, err := svc.Checkout(CheckoutInput{
		UserID:           1,
		ShopID:           1,
		PaymentMethod:    constants.PaymentMethodVNPay,
		Items:            []CheckoutItem{checkoutItemFromVariation(variation, 1)},
		VoucherStorageID: &storage.ID,
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if !invoice.TotalAmount.Decimal.Equal(decimal.NewFromInt(180000)) {
		t.Fatalf("expected discounted total 180000, got %s", invoice.TotalAmount.String())
	}
	if invoice.VoucherStorageID == nil || *invoice.VoucherStorageID != storage.ID {
		t.Fatalf("expected voucher storage bound to invoice, got %+v", invoice.VoucherStorageID)
	}

	var reloaded models.VoucherStorage
	if err := db.First(&reloaded, storage.ID).Error; err != nil {
		t.Fatalf("reload storage failed: %v", err)
	}
	if !reloaded.IsUsed {
		t.Fatalf("expected voucher storage marked used")
	}

	_, err = svc.Checkout(CheckoutInput{
		UserID:           1,
		ShopID:           1,
		PaymentMethod:    constants.PaymentMethodVNPay,
		Items:            []CheckoutItem{checkoutItemFromVariation(variation, 1)},
		VoucherStorageID: &storage.ID,
	})
	if !errors.Is(err, ErrVoucherAlreadyUsed) {
		t.Fatalf("expected ErrVoucherAlreadyUsed on reuse, got %v", err)
	}
}

func TestCheckoutClientTotalReconciliation(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	variation := createTestVariation(t, db, 1, 100000, 10)

	lower := models.NewMoneyFromInt(90000)
	invoice, err := svc.Checkout(CheckoutInput{
		UserID:        1,
		ShopID:        1,
		PaymentMethod: constants.PaymentMethodVNPay,
		Items:         []CheckoutItem{checkoutItemFromVariation(variation, 1)},
		TotalAmount:   &lower,
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if !invoice.TotalAmount.Decimal.Equal(decimal.NewFromInt(90000)) {
		t.Fatalf("expected client total 90000 accepted, got %s", invoice.TotalAmount.String())
	}

	higher := models.NewMoneyFromInt(150000)
	invoice, err = svc.Checkout(CheckoutInput{
		UserID:        1,
		ShopID:        1,
		PaymentMethod: constants.PaymentMethodVNPay,
		Items:         []CheckoutItem{checkoutItemFromVariation(variation, 1)},
		TotalAmount:   &higher,
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if !invoice.TotalAmount.Decimal.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected inflated client total rejected, got %s", invoice.TotalAmount.String())
	}
}

func TestCheckoutRejectsForeignShopVariation(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	variation := createTestVariation(t, db, 2, 50000, 5)

	_, err := svc.Checkout(CheckoutInput{
		UserID:        1,
		ShopID:        1,
		PaymentMethod: constants.PaymentMethodVNPay,
		Items:         []CheckoutItem{checkoutItemFromVariation(variation, 1)},
	})
	if !errors.Is(err, ErrVariationShopMixed) {
		t.Fatalf("expected ErrVariationShopMixed, got %v", err)
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	variation := createTestVariation(t, db, 1, 50000, 5)

	_, err := svc.Checkout(CheckoutInput{
		UserID:        1,
		ShopID:        1,
		PaymentMethod: "paypal",
		Items:         []CheckoutItem{checkoutItemFromVariation(variation, 1)},
	})
	if !errors.Is(err, ErrPaymentMethodInvalid) {
		t.Fatalf("expected ErrPaymentMethodInvalid, got %v", err)
	}
}

func TestCheckoutCartSplitsByShop(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	v1 := createTestVariation(t, db, 1, 100000, 5)
	v2 := createTestVariation(t, db, 2, 60000, 5)
	for _, item := range []models.CartItem{
		{UserID: 1, ProductVariationID: v1.ID, Quantity: 1},
		{UserID: 1, ProductVariationID: v2.ID, Quantity: 2},
	} {
		if err := db.Create(&item).Error; err != nil {
			t.Fatalf("create cart item failed: %v", err)
		}
	}

	invoices, err := svc.CheckoutCart(CheckoutCartInput{
		UserID:        1,
		PaymentMethod: constants.PaymentMethodVNPay,
	})
	if err != nil {
		t.Fatalf("CheckoutCart error: %v", err)
	}
	if len(invoices) != 2 {
		t.Fatalf("expected 2 invoices split by shop, got %d", len(invoices))
	}
	totals := map[uint]string{}
	for _, invoice := range invoices {
		totals[invoice.ShopID] = invoice.TotalAmount.String()
	}
	if totals[1] != "100000.00" || totals[2] != "120000.00" {
		t.Fatalf("unexpected per-shop totals: %+v", totals)
	}

	var cartCount int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&cartCount).Error; err != nil {
		t.Fatalf("count cart failed: %v", err)
	}
	if cartCount != 0 {
		t.Fatalf("expected cart cleared after checkout, got %d items", cartCount)
	}
}

func TestCheckoutCartEmpty(t *testing.T) {
	svc, _ := setupCheckoutServiceTest(t)
	_, err := svc.CheckoutCart(CheckoutCartInput{
		UserID:        1,
		PaymentMethod: constants.PaymentMethodVNPay,
	})
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}
}

func TestCancelExpiredInvoiceCompensates(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	variation := createTestVariation(t, db, 1, 200000, 5)
	storage := createClaimedVoucher(t, db, 1, 0.1, 100000, 50000)

	invoice, err := svc.Checkout(CheckoutInput{
		UserID:           1,
		ShopID:           1,
		PaymentMethod:    constants.PaymentMethodVNPay,
		Items:            []CheckoutItem{checkoutItemFromVariation(variation, 2)},
		VoucherStorageID: &storage.ID,
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}

	// 把创建时间拨回支付窗口之前，模拟到期账单
	past := time.Now().Add(-2 * svc.ExpireWindow())
	if err := db.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Update("created_at", past).Error; err != nil {
		t.Fatalf("backdate invoice failed: %v", err)
	}

	if err := svc.CancelExpiredInvoice(invoice.ID); err != nil {
		t.Fatalf("CancelExpiredInvoice error: %v", err)
	}

	reloaded, err := repository.NewInvoiceRepository(db).GetByID(invoice.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload invoice failed: %v", err)
	}
	if reloaded.PaymentStatus != constants.PaymentStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", reloaded.PaymentStatus)
	}
	if reloaded.OrderStatus != constants.OrderStatusCanceled {
		t.Fatalf("expected order canceled, got %s", reloaded.OrderStatus)
	}

	var reloadedVariation models.ProductVariation
	if err := db.First(&reloadedVariation, variation.ID).Error; err != nil {
		t.Fatalf("reload variation failed: %v", err)
	}
	if reloadedVariation.StockQuantity != 5 {
		t.Fatalf("expected stock restored to 5, got %d", reloadedVariation.StockQuantity)
	}
	var reloadedStorage models.VoucherStorage
	if err := db.First(&reloadedStorage, storage.ID).Error; err != nil {
		t.Fatalf("reload storage failed: %v", err)
	}
	if reloadedStorage.IsUsed {
		t.Fatalf("expected voucher storage released")
	}

	// 重复取消是幂等无操作，不会二次回补库存
	if err := svc.CancelExpiredInvoice(invoice.ID); err != nil {
		t.Fatalf("second CancelExpiredInvoice error: %v", err)
	}
	if err := db.First(&reloadedVariation, variation.ID).Error; err != nil {
		t.Fatalf("reload variation failed: %v", err)
	}
	if reloadedVariation.StockQuantity != 5 {
		t.Fatalf("expected stock still 5 after repeated cancel, got %d", reloadedVariation.StockQuantity)
	}
}

func TestCancelExpiredInvoiceSkipsFreshInvoice(t *testing.T) {
	svc, db := setupCheckoutServiceTest(t)
	variation := createTestVariation(t, db, 1, 50000, 5)

	invoice, err := svc.Checkout(CheckoutInput{
		UserID:        1,
		ShopID:        1,
		PaymentMethod: constants.PaymentMethodVNPay,
		Items:         []CheckoutItem{checkoutItemFromVariation(variation, 1)},
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if err := svc.CancelExpiredInvoice(invoice.ID); err != nil {
		t.Fatalf("CancelExpiredInvoice error: %v", err)
	}
	reloaded, err := repository.NewInvoiceRepository(db).GetByID(invoice.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload invoice failed: %v", err)
	}
	if reloaded.PaymentStatus != constants.PaymentStatusAwaitingPayment {
		t.Fatalf("expected fresh invoice untouched, got %s", reloaded.PaymentStatus)
	}
}
