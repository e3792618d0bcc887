package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/marketbay-next/internal/constants"
	"github.com/marketbay-next/internal/models"
	"github.com/marketbay-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupVoucherServiceTest(t *testing.T) (*VoucherService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:voucher_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Voucher{},
		&models.ShopVoucher{},
		&models.VoucherStorage{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	voucherRepo := repository.NewVoucherRepository(db)
	storageRepo := repository.NewVoucherStorageRepository(db)
	return NewVoucherService(voucherRepo, storageRepo), db
}

func systemClaim(percent float64, minSpend, maxDiscount int64) *VoucherClaim {
	return &VoucherClaim{
		StorageID:           1,
		VoucherType:         constants.VoucherTypeSystem,
		VoucherID:           1,
		DiscountPercent:     percent,
		MinimumRequirePrice: models.NewMoneyFromInt(minSpend),
		MaxDiscountPrice:    models.NewMoneyFromInt(maxDiscount),
	}
}

func TestApplySystemVoucherDiscount(t *testing.T) {
	svc, _ := setupVoucherServiceTest(t)
	lines := []CartLine{
		{ProductVariationID: 1, ShopID: 1, Price: models.NewMoneyFromInt(120000), Quantity: 1},
		{ProductVariationID: 2, ShopID: 2, Price: models.NewMoneyFromInt(40000), Quantity: 2},
	}
	result, err := svc.Apply(lines, systemClaim(0.1, 100000, 50000))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if !result.TotalDiscount.Decimal.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("expected discount 20000, got %s", result.TotalDiscount.String())
	}
	if !result.ScopeTotal.Decimal.Equal(decimal.NewFromInt(200000)) {
		t.Fatalf("expected scope total 200000, got %s", result.ScopeTotal.String())
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected 2 line discounts, got %d", len(result.Lines))
	}
}

func TestApplyDiscountCappedByMax(t *testing.T) {
	svc, _ := setupVoucherServiceTest(t)
	lines := []CartLine{
		{ProductVariationID: 1, ShopID: 1, Price: models.NewMoneyFromInt(200000), Quantity: 1},
	}
	result, err := svc.Apply(lines, systemClaim(0.2, 100000, 10000))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if !result.TotalDiscount.Decimal.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected discount capped at 10000, got %s", result.TotalDiscount.String())
	}
}

func TestApplyMinSpendNotReached(t *testing.T) {
	svc, _ := setupVoucherServiceTest(t)
	lines := []CartLine{
		{ProductVariationID: 1, ShopID: 1, Price: models.NewMoneyFromInt(50000), Quantity: 1},
	}
	if _, err := svc.Apply(lines, systemClaim(0.1, 100000, 0)); !errors.Is(err, ErrVoucherMinSpend) {
		t.Fatalf("expected ErrVoucherMinSpend, got %v", err)
	}
}

func TestApplyShopVoucherScope(t *testing.T) {
	svc, _ := setupVoucherServiceTest(t)
	claim := &VoucherClaim{
		StorageID:           1,
		VoucherType:         constants.VoucherTypeShop,
		VoucherID:           1,
		ShopID:              2,
		DiscountPercent:     0.1,
		MinimumRequirePrice: models.NewMoneyFromInt(0),
		MaxDiscountPrice:    models.NewMoneyFromInt(0),
	}
	lines := []CartLine{
		{ProductVariationID: 1, ShopID: 1, Price: models.NewMoneyFromInt(100000), Quantity: 1},
		{ProductVariationID: 2, ShopID: 2, Price: models.NewMoneyFromInt(60000), Quantity: 1},
	}
	result, err := svc.Apply(lines, claim)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if !result.ScopeTotal.Decimal.Equal(decimal.NewFromInt(60000)) {
		t.Fatalf("expected scope total 60000, got %s", result.ScopeTotal.String())
	}
	if !result.TotalDiscount.Decimal.Equal(decimal.NewFromInt(6000)) {
		t.Fatalf("expected discount 6000, got %s", result.TotalDiscount.String())
	}
	if len(result.Lines) != 1 || result.Lines[0].ProductVariationID != 2 {
		t.Fatalf("expected discount on variation 2 only, got %+v", result.Lines)
	}
}

func TestApplyShopVoucherScopeEmpty(t *testing.T) {
	svc, _ := setupVoucherServiceTest(t)
	claim := &VoucherClaim{
		StorageID:   1,
		VoucherType: constants.VoucherTypeShop,
		VoucherID:   1,
		ShopID:      9,
	}
	lines := []CartLine{
		{ProductVariationID: 1, ShopID: 1, Price: models.NewMoneyFromInt(100000), Quantity: 1},
	}
	if _, err := svc.Apply(lines, claim); !errors.Is(err, ErrVoucherScopeEmpty) {
		t.Fatalf("expected ErrVoucherScopeEmpty, got %v", err)
	}
}

func TestApplyDistributionSumsExactly(t *testing.T) {
	svc, _ := setupVoucherServiceTest(t)
	// 三行贡献比例无法整除，逐行取整后余量由最后一行吸收
	lines := []CartLine{
		{ProductVariationID: 1, ShopID: 1, Price: models.NewMoneyFromInt(33333), Quantity: 1},
		{ProductVariationID: 2, ShopID: 1, Price: models.NewMoneyFromInt(33333), Quantity: 1},
		{ProductVariationID: 3, ShopID: 1, Price: models.NewMoneyFromInt(33334), Quantity: 1},
	}
	result, err := svc.Apply(lines, systemClaim(0.1, 0, 0))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	sum := decimal.Zero
	for _, line := range result.Lines {
		sum = sum.Add(line.DiscountAmount.Decimal)
	}
	if !sum.Equal(result.TotalDiscount.Decimal) {
		t.Fatalf("line discounts sum %s != total discount %s", sum.String(), result.TotalDiscount.String())
	}
	if !result.TotalDiscount.Decimal.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected total discount 10000, got %s", result.TotalDiscount.String())
	}
}

func TestApplyNilClaim(t *testing.T) {
	svc, _ := setupVoucherServiceTest(t)
	result, err := svc.Apply(nil, nil)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if !result.TotalDiscount.Decimal.IsZero() || len(result.Lines) != 0 {
		t.Fatalf("expected empty result for nil claim, got %+v", result)
	}
}

func TestResolveClaimNotFound(t *testing.T) {
	svc, _ := setupVoucherServiceTest(t)
	if _, err := svc.ResolveClaim(99, 1); !errors.Is(err, ErrVoucherClaimNotFound) {
		t.Fatalf("expected ErrVoucherClaimNotFound, got %v", err)
	}
}

func TestResolveClaimAlreadyUsed(t *testing.T) {
	svc, db := setupVoucherServiceTest(t)
	storage := models.VoucherStorage{
		UserID:      1,
		VoucherType: constants.VoucherTypeSystem,
		VoucherID:   1,
		IsUsed:      true,
	}
	if err := db.Create(&storage).Error; err != nil {
		t.Fatalf("create storage failed: %v", err)
	}
	if _, err := svc.ResolveClaim(storage.ID, 1); !errors.Is(err, ErrVoucherAlreadyUsed) {
		t.Fatalf("expected ErrVoucherAlreadyUsed, got %v", err)
	}
}

func TestResolveClaimExpiredVoucher(t *testing.T) {
	svc, db := setupVoucherServiceTest(t)
	voucher := models.Voucher{
		Code:                "EXPIRED",
		DiscountPercent:     0.1,
		MinimumRequirePrice: models.NewMoneyFromInt(0),
		MaxDiscountPrice:    models.NewMoneyFromInt(0),
		ValidFrom:           time.Now().AddDate(0, -2, 0),
		ValidTo:             time.Now().AddDate(0, -1, 0),
	}
	if err := db.Create(&voucher).Error; err != nil {
		t.Fatalf("create voucher failed: %v", err)
	}
	storage := models.VoucherStorage{
		UserID:      1,
		VoucherType: constants.VoucherTypeSystem,
		VoucherID:   voucher.ID,
	}
	if err := db.Create(&storage).Error; err != nil {
		t.Fatalf("create storage failed: %v", err)
	}
	if _, err := svc.ResolveClaim(storage.ID, 1); !errors.Is(err, ErrVoucherExpired) {
		t.Fatalf("expected ErrVoucherExpired, got %v", err)
	}
}

func TestResolveClaimShopVoucher(t *testing.T) {
	svc, db := setupVoucherServiceTest(t)
	voucher := models.ShopVoucher{
		ShopID:              3,
		Code:                "SHOP3-SALE",
		DiscountPercent:     0.15,
		MinimumRequirePrice: models.NewMoneyFromInt(50000),
		MaxDiscountPrice:    models.NewMoneyFromInt(20000),
		ValidFrom:           time.Now().AddDate(0, -1, 0),
		ValidTo:             time.Now().AddDate(0, 1, 0),
	}
	if err := db.Create(&voucher).Error; err != nil {
		t.Fatalf("create shop voucher failed: %v", err)
	}
	storage := models.VoucherStorage{
		UserID:      7,
		VoucherType: constants.VoucherTypeShop,
		VoucherID:   voucher.ID,
	}
	if err := db.Create(&storage).Error; err != nil {
		t.Fatalf("create storage failed: %v", err)
	}
	claim, err := svc.ResolveClaim(storage.ID, 7)
	if err != nil {
		t.Fatalf("ResolveClaim error: %v", err)
	}
	if claim.ShopID != 3 || claim.DiscountPercent != 0.15 {
		t.Fatalf("unexpected claim: %+v", claim)
	}
	if !claim.MinimumRequirePrice.Decimal.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("unexpected minimum require price: %s", claim.MinimumRequirePrice.String())
	}
}
