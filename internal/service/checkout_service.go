package service

import (
	"strings"
	"time"

	"github.com/marketbay-next/internal/constants"
	"github.com/marketbay-next/internal/logger"
	"github.com/marketbay-next/internal/models"
	"github.com/marketbay-next/internal/queue"
	"github.com/marketbay-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutItem 结算商品行（名称/价格快照由调用方提供，总额由服务端重算）
type CheckoutItem struct {
	ProductVariationID uint
	ProductName        string
	VariationName      string
	Price              models.Money
	Quantity           int
	DiscountPercent    float64
}

// CheckoutInput 单店铺结算输入
type CheckoutInput struct {
	UserID            uint
	ShopID            uint
	PaymentMethod     string
	ShippingAddressID *uint
	Items             []CheckoutItem
	TotalAmount       *models.Money // 客户端声明金额，仅在小于服务端重算值时采信
	ShippingFee       models.Money
	VoucherStorageID  *uint
}

// CheckoutCartInput 整车结算输入（按店铺拆单）
type CheckoutCartInput struct {
	UserID            uint
	PaymentMethod     string
	ShippingAddressID *uint
	VoucherStorageID  *uint
}

// CheckoutService 订单组装服务
type CheckoutService struct {
	invoiceRepo   repository.InvoiceRepository
	variationRepo repository.ProductVariationRepository
	storageRepo   repository.VoucherStorageRepository
	cartRepo      repository.CartRepository
	voucherSvc    *VoucherService
	queueClient   *queue.Client
	expireMinutes int
}

// NewCheckoutService 创建订单组装服务
func NewCheckoutService(
	invoiceRepo repository.InvoiceRepository,
	variationRepo repository.ProductVariationRepository,
	storageRepo repository.VoucherStorageRepository,
	cartRepo repository.CartRepository,
	voucherSvc *VoucherService,
	queueClient *queue.Client,
	expireMinutes int,
) *CheckoutService {
	if expireMinutes <= 0 {
		expireMinutes = constants.PaymentExpireMinutesDefault
	}
	return &CheckoutService{
		invoiceRepo:   invoiceRepo,
		variationRepo: variationRepo,
		storageRepo:   storageRepo,
		cartRepo:      cartRepo,
		voucherSvc:    voucherSvc,
		queueClient:   queueClient,
		expireMinutes: expireMinutes,
	}
}

// ExpireWindow 支付窗口时长
func (s *CheckoutService) ExpireWindow() time.Duration {
	return time.Duration(s.expireMinutes) * time.Minute
}

// Checkout 组装单店铺账单。账单、明细、库存扣减、优惠券消费
// 在同一个事务内完成，任何一步失败整体回滚。
func (s *CheckoutService) Checkout(input CheckoutInput) (*models.Invoice, error) {
	method, err := normalizePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, ErrCheckoutItemsEmpty
	}
	for _, item := range input.Items {
		if item.ProductVariationID == 0 || item.Quantity <= 0 || item.Price.IsNegative() {
			return nil, ErrCheckoutItemInvalid
		}
	}

	if err := s.verifyVariations(input.ShopID, input.Items); err != nil {
		return nil, err
	}

	var claim *VoucherClaim
	if input.VoucherStorageID != nil {
		claim, err = s.voucherSvc.ResolveClaim(*input.VoucherStorageID, input.UserID)
		if err != nil {
			return nil, err
		}
	}

	lines := make([]CartLine, 0, len(input.Items))
	for _, item := range input.Items {
		lines = append(lines, CartLine{
			ProductVariationID: item.ProductVariationID,
			ShopID:             input.ShopID,
			Price:              item.Price,
			Quantity:           item.Quantity,
		})
	}
	discountResult, err := s.voucherSvc.Apply(lines, claim)
	if err != nil {
		return nil, err
	}

	invoice, products := s.buildInvoice(input.UserID, input.ShopID, method, input.ShippingAddressID, input.Items, discountResult)
	invoice.ShippingFee = input.ShippingFee
	if claim != nil {
		invoice.VoucherStorageID = &claim.StorageID
	}

	serverTotal := invoice.TotalAmount.Decimal
	finalTotal := reconcileClientTotal(serverTotal, input.TotalAmount, invoice.ID)
	invoice.TotalAmount = models.NewMoneyFromDecimal(finalTotal.Add(input.ShippingFee.Decimal))

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		return s.persistAssembly(tx, invoice, products, claim)
	})
	if err != nil {
		return nil, err
	}

	s.enqueueTimeoutCancel(invoice)
	logger.Infow("invoice_created",
		"invoice_id", invoice.ID,
		"user_id", invoice.UserID,
		"shop_id", invoice.ShopID,
		"payment_method", invoice.PaymentMethod,
		"total_amount", invoice.TotalAmount.String(),
	)

	full, err := s.invoiceRepo.GetByID(invoice.ID)
	if err == nil && full != nil {
		return full, nil
	}
	invoice.Products = products
	return invoice, nil
}

// CheckoutCart 整车结算：按店铺拆分购物车并在一个事务内逐店铺组装账单，
// 对应一次多店铺下单拆出多张兄弟账单的场景。
func (s *CheckoutService) CheckoutCart(input CheckoutCartInput) ([]models.Invoice, error) {
	method, err := normalizePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	cartItems, err := s.cartRepo.ListByUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrCartEmpty
	}

	lines := make([]CartLine, 0, len(cartItems))
	itemsByShop := make(map[uint][]CheckoutItem)
	shopOrder := make([]uint, 0)
	variationIDs := make([]uint, 0, len(cartItems))
	for _, cartItem := range cartItems {
		variation := cartItem.ProductVariation
		if variation == nil {
			return nil, ErrVariationNotFound
		}
		if cartItem.Quantity <= 0 {
			return nil, ErrCheckoutItemInvalid
		}
		price := effectiveUnitPrice(variation)
		lines = append(lines, CartLine{
			ProductVariationID: variation.ID,
			ShopID:             variation.ShopID,
			Price:              price,
			Quantity:           cartItem.Quantity,
		})
		if _, ok := itemsByShop[variation.ShopID]; !ok {
			shopOrder = append(shopOrder, variation.ShopID)
		}
		itemsByShop[variation.ShopID] = append(itemsByShop[variation.ShopID], CheckoutItem{
			ProductVariationID: variation.ID,
			ProductName:        variation.Name,
			VariationName:      variation.Name,
			Price:              price,
			Quantity:           cartItem.Quantity,
			DiscountPercent:    variation.DiscountPercent,
		})
		variationIDs = append(variationIDs, variation.ID)
	}

	var claim *VoucherClaim
	if input.VoucherStorageID != nil {
		claim, err = s.voucherSvc.ResolveClaim(*input.VoucherStorageID, input.UserID)
		if err != nil {
			return nil, err
		}
	}
	discountResult, err := s.voucherSvc.Apply(lines, claim)
	if err != nil {
		return nil, err
	}

	invoices := make([]models.Invoice, 0, len(shopOrder))
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		claimConsumed := false
		for _, shopID := range shopOrder {
			invoice, products := s.buildInvoice(input.UserID, shopID, method, input.ShippingAddressID, itemsByShop[shopID], discountResult)
			var txClaim *VoucherClaim
			if claim != nil && !claimConsumed && invoiceCoversClaim(claim, shopID) {
				invoice.VoucherStorageID = &claim.StorageID
				txClaim = claim
				claimConsumed = true
			}
			if err := s.persistAssembly(tx, invoice, products, txClaim); err != nil {
				return err
			}
			invoice.Products = products
			invoices = append(invoices, *invoice)
		}
		return s.cartRepo.WithTx(tx).DeleteByUserAndVariations(input.UserID, variationIDs)
	})
	if err != nil {
		return nil, err
	}

	for i := range invoices {
		s.enqueueTimeoutCancel(&invoices[i])
	}
	logger.Infow("cart_checkout_completed",
		"user_id", input.UserID,
		"payment_method", method,
		"invoice_count", len(invoices),
	)
	return invoices, nil
}

// CancelExpiredInvoice 取消超过支付窗口的账单并执行补偿（回补库存、释放优惠券）。
// 状态推进是条件更新，重复调用与回调竞争都只会生效一次。
func (s *CheckoutService) CancelExpiredInvoice(invoiceID string) error {
	invoice, err := s.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		logger.Warnw("invoice_timeout_cancel_not_found", "invoice_id", invoiceID)
		return nil
	}
	if invoice.PaymentStatus != constants.PaymentStatusAwaitingPayment {
		return nil
	}
	if time.Since(invoice.CreatedAt) < s.ExpireWindow() {
		return nil
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.invoiceRepo.WithTx(tx).TransitionPaymentStatus(
			invoice.ID,
			constants.PaymentStatusAwaitingPayment,
			constants.PaymentStatusCancelled,
			map[string]interface{}{"order_status": constants.OrderStatusCanceled},
		)
		if err != nil {
			return err
		}
		if affected == 0 {
			// 回调已先一步推进了状态
			return nil
		}
		return s.CompensateInvoice(tx, invoice)
	})
	if err != nil {
		return err
	}
	logger.Infow("invoice_timeout_cancelled", "invoice_id", invoice.ID)
	return nil
}

// CompensateInvoice 账单取消后的补偿动作：回补每行库存并释放优惠券领取记录。
// 仅允许在赢得条件状态推进的事务内调用，保证补偿恰好执行一次。
func (s *CheckoutService) CompensateInvoice(tx *gorm.DB, invoice *models.Invoice) error {
	variationRepo := s.variationRepo.WithTx(tx)
	for _, product := range invoice.Products {
		if _, err := variationRepo.RestoreStock(product.ProductVariationID, product.Quantity); err != nil {
			return err
		}
	}
	if invoice.VoucherStorageID != nil {
		if _, err := s.storageRepo.WithTx(tx).Release(*invoice.VoucherStorageID); err != nil {
			return err
		}
	}
	return nil
}

// buildInvoice 生成账单与明细快照。行单价取优惠券分摊后的折后价，
// 账单金额为各行折后小计之和。
func (s *CheckoutService) buildInvoice(userID, shopID uint, method string, shippingAddressID *uint, items []CheckoutItem, discountResult *DiscountResult) (*models.Invoice, []models.InvoiceProduct) {
	discountByVariation := make(map[uint]LineDiscount)
	if discountResult != nil {
		for _, line := range discountResult.Lines {
			discountByVariation[line.ProductVariationID] = line
		}
	}

	now := time.Now()
	status := constants.PaymentStatusAwaitingPayment
	if method == constants.PaymentMethodCOD {
		status = constants.PaymentStatusPending
	}
	invoice := &models.Invoice{
		ID:                uuid.NewString(),
		UserID:            userID,
		ShopID:            shopID,
		PaymentMethod:     method,
		PaymentStatus:     status,
		OrderStatus:       constants.OrderStatusPending,
		ShippingAddressID: shippingAddressID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	total := decimal.Zero
	products := make([]models.InvoiceProduct, 0, len(items))
	for _, item := range items {
		price := item.Price
		discountAmount := models.Money{}
		if line, ok := discountByVariation[item.ProductVariationID]; ok {
			price = line.DiscountedPrice
			discountAmount = line.DiscountAmount
		}
		lineTotal := price.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineTotal)
		products = append(products, models.InvoiceProduct{
			InvoiceID:          invoice.ID,
			ProductVariationID: item.ProductVariationID,
			ProductName:        item.ProductName,
			VariationName:      item.VariationName,
			Price:              price,
			OriginalPrice:      item.Price,
			DiscountPercent:    item.DiscountPercent,
			DiscountAmount:     discountAmount,
			Quantity:           item.Quantity,
			CreatedAt:          now,
		})
	}
	if total.IsNegative() {
		total = decimal.Zero
	}
	invoice.TotalAmount = models.NewMoneyFromDecimal(total)
	return invoice, products
}

// persistAssembly 在事务内落库：账单、明细、逐行条件扣库存、条件消费优惠券。
// 任何一行库存不足或优惠券已被并发消费，整个事务回滚。
func (s *CheckoutService) persistAssembly(tx *gorm.DB, invoice *models.Invoice, products []models.InvoiceProduct, claim *VoucherClaim) error {
	if err := s.invoiceRepo.WithTx(tx).Create(invoice, products); err != nil {
		return err
	}
	variationRepo := s.variationRepo.WithTx(tx)
	for _, product := range products {
		affected, err := variationRepo.DecrementStock(product.ProductVariationID, product.Quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrStockInsufficient
		}
	}
	if claim != nil {
		affected, err := s.storageRepo.WithTx(tx).MarkUsed(claim.StorageID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrVoucherAlreadyUsed
		}
	}
	return nil
}

func (s *CheckoutService) verifyVariations(shopID uint, items []CheckoutItem) error {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductVariationID)
	}
	variations, err := s.variationRepo.ListByIDs(ids)
	if err != nil {
		return err
	}
	byID := make(map[uint]models.ProductVariation, len(variations))
	for _, variation := range variations {
		byID[variation.ID] = variation
	}
	for _, item := range items {
		variation, ok := byID[item.ProductVariationID]
		if !ok {
			return ErrVariationNotFound
		}
		if variation.ShopID != shopID {
			return ErrVariationShopMixed
		}
	}
	return nil
}

func (s *CheckoutService) enqueueTimeoutCancel(invoice *models.Invoice) {
	if invoice.PaymentMethod == constants.PaymentMethodCOD {
		return
	}
	if err := s.queueClient.EnqueueInvoiceTimeoutCancel(queue.InvoiceTimeoutCancelPayload{
		InvoiceID: invoice.ID,
	}, s.ExpireWindow()); err != nil {
		// 延迟取消只是兜底，账单状态仍由回调对账与人工取消保证
		logger.Errorw("invoice_enqueue_timeout_cancel_failed",
			"invoice_id", invoice.ID,
			"error", err,
		)
	}
}

// reconcileClientTotal 客户端金额采信策略：仅当客户端声明的金额
// 小于服务端重算值且非负时采信（视为客户端已套用折扣），否则以服务端为准。
func reconcileClientTotal(serverTotal decimal.Decimal, clientTotal *models.Money, invoiceID string) decimal.Decimal {
	final := serverTotal
	if clientTotal != nil && !clientTotal.IsNegative() && clientTotal.Decimal.LessThan(serverTotal) {
		logger.Warnw("checkout_total_client_override",
			"invoice_id", invoiceID,
			"server_total", serverTotal.StringFixed(2),
			"client_total", clientTotal.String(),
		)
		final = clientTotal.Decimal
	}
	if final.IsNegative() {
		final = decimal.Zero
	}
	return final
}

func normalizePaymentMethod(method string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case constants.PaymentMethodCOD:
		return constants.PaymentMethodCOD, nil
	case constants.PaymentMethodVNPay:
		return constants.PaymentMethodVNPay, nil
	default:
		return "", ErrPaymentMethodInvalid
	}
}

func invoiceCoversClaim(claim *VoucherClaim, shopID uint) bool {
	if claim == nil {
		return false
	}
	if claim.VoucherType == constants.VoucherTypeShop {
		return claim.ShopID == shopID
	}
	return true
}

func effectiveUnitPrice(variation *models.ProductVariation) models.Money {
	price := variation.Price.Decimal
	if variation.DiscountPercent > 0 && variation.DiscountPercent < 1 {
		price = price.Mul(decimal.NewFromFloat(1 - variation.DiscountPercent)).Round(2)
	}
	return models.NewMoneyFromDecimal(price)
}
