package service

import (
	"time"

	"github.com/marketbay-next/internal/constants"
	"github.com/marketbay-next/internal/models"
	"github.com/marketbay-next/internal/repository"

	"github.com/shopspring/decimal"
)

// CartLine 结算输入行（按店铺归属打标）
type CartLine struct {
	ProductVariationID uint
	ShopID             uint
	Price              models.Money
	Quantity           int
}

// VoucherClaim 选定的优惠券领取记录及其券面信息
type VoucherClaim struct {
	StorageID           uint
	VoucherType         string
	VoucherID           uint
	ShopID              uint // 店铺券的归属店铺，平台券为 0
	DiscountPercent     float64
	MinimumRequirePrice models.Money
	MaxDiscountPrice    models.Money
}

// LineDiscount 单行折扣分摊结果
type LineDiscount struct {
	ProductVariationID uint
	OriginalPrice      models.Money
	DiscountedPrice    models.Money
	DiscountAmount     models.Money
}

// DiscountResult 折扣计算结果。仅作为 CheckoutService 的建议输入，
// 最终落库价格由 CheckoutService 决定。
type DiscountResult struct {
	TotalDiscount models.Money
	ScopeTotal    models.Money
	Lines         []LineDiscount
}

// VoucherService 优惠券引擎
type VoucherService struct {
	voucherRepo repository.VoucherRepository
	storageRepo repository.VoucherStorageRepository
}

// NewVoucherService 创建优惠券引擎
func NewVoucherService(voucherRepo repository.VoucherRepository, storageRepo repository.VoucherStorageRepository) *VoucherService {
	return &VoucherService{
		voucherRepo: voucherRepo,
		storageRepo: storageRepo,
	}
}

// ResolveClaim 解析用户选择的领取记录，加载券面并拒绝已消费的记录
func (s *VoucherService) ResolveClaim(storageID, userID uint) (*VoucherClaim, error) {
	storage, err := s.storageRepo.GetByIDAndUser(storageID, userID)
	if err != nil {
		return nil, err
	}
	if storage == nil {
		return nil, ErrVoucherClaimNotFound
	}
	if storage.IsUsed {
		return nil, ErrVoucherAlreadyUsed
	}

	claim := &VoucherClaim{
		StorageID:   storage.ID,
		VoucherType: storage.VoucherType,
		VoucherID:   storage.VoucherID,
	}
	switch storage.VoucherType {
	case constants.VoucherTypeSystem:
		voucher, err := s.voucherRepo.GetVoucherByID(storage.VoucherID)
		if err != nil {
			return nil, err
		}
		if voucher == nil {
			return nil, ErrVoucherNotFound
		}
		if err := checkVoucherWindow(voucher.ValidFrom, voucher.ValidTo); err != nil {
			return nil, err
		}
		claim.DiscountPercent = voucher.DiscountPercent
		claim.MinimumRequirePrice = voucher.MinimumRequirePrice
		claim.MaxDiscountPrice = voucher.MaxDiscountPrice
	case constants.VoucherTypeShop:
		voucher, err := s.voucherRepo.GetShopVoucherByID(storage.VoucherID)
		if err != nil {
			return nil, err
		}
		if voucher == nil {
			return nil, ErrVoucherNotFound
		}
		if err := checkVoucherWindow(voucher.ValidFrom, voucher.ValidTo); err != nil {
			return nil, err
		}
		claim.ShopID = voucher.ShopID
		claim.DiscountPercent = voucher.DiscountPercent
		claim.MinimumRequirePrice = voucher.MinimumRequirePrice
		claim.MaxDiscountPrice = voucher.MaxDiscountPrice
	default:
		return nil, ErrVoucherTypeInvalid
	}
	return claim, nil
}

// Apply 计算折扣并按贡献比例分摊到范围内的行。
// 店铺券的范围是该店铺的行，平台券的范围是整个购物车。
func (s *VoucherService) Apply(lines []CartLine, claim *VoucherClaim) (*DiscountResult, error) {
	if claim == nil {
		return &DiscountResult{}, nil
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	scoped := make([]CartLine, 0, len(lines))
	switch claim.VoucherType {
	case constants.VoucherTypeSystem:
		scoped = append(scoped, lines...)
	case constants.VoucherTypeShop:
		for _, line := range lines {
			if line.ShopID == claim.ShopID {
				scoped = append(scoped, line)
			}
		}
		if len(scoped) == 0 {
			return nil, ErrVoucherScopeEmpty
		}
	default:
		return nil, ErrVoucherTypeInvalid
	}

	scopeTotal := decimal.Zero
	for _, line := range scoped {
		scopeTotal = scopeTotal.Add(lineTotal(line))
	}
	if scopeTotal.Cmp(claim.MinimumRequirePrice.Decimal) < 0 {
		return nil, ErrVoucherMinSpend
	}

	percent := decimal.NewFromFloat(claim.DiscountPercent)
	discount := scopeTotal.Mul(percent)
	if claim.MaxDiscountPrice.Decimal.GreaterThan(decimal.Zero) && discount.GreaterThan(claim.MaxDiscountPrice.Decimal) {
		discount = claim.MaxDiscountPrice.Decimal
	}
	discount = discount.Round(2)

	// 按行贡献比例分摊，逐行取整；余量由最后一行吸收，
	// 保证各行之和与总折扣严格相等。
	result := &DiscountResult{
		TotalDiscount: models.NewMoneyFromDecimal(discount),
		ScopeTotal:    models.NewMoneyFromDecimal(scopeTotal),
		Lines:         make([]LineDiscount, 0, len(scoped)),
	}
	remaining := discount
	for i, line := range scoped {
		var lineDiscount decimal.Decimal
		if i == len(scoped)-1 {
			lineDiscount = remaining
		} else {
			lineDiscount = discount.Mul(lineTotal(line)).Div(scopeTotal).Round(2)
			remaining = remaining.Sub(lineDiscount)
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		perUnit := line.Price.Decimal.Sub(lineDiscount.Div(qty).Round(2))
		if perUnit.IsNegative() {
			perUnit = decimal.Zero
		}
		result.Lines = append(result.Lines, LineDiscount{
			ProductVariationID: line.ProductVariationID,
			OriginalPrice:      line.Price,
			DiscountedPrice:    models.NewMoneyFromDecimal(perUnit),
			DiscountAmount:     models.NewMoneyFromDecimal(lineDiscount),
		})
	}
	return result, nil
}

func checkVoucherWindow(validFrom, validTo time.Time) error {
	now := time.Now()
	if now.Before(validFrom) {
		return ErrVoucherNotStarted
	}
	if now.After(validTo) {
		return ErrVoucherExpired
	}
	return nil
}

func lineTotal(line CartLine) decimal.Decimal {
	return line.Price.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity)))
}
