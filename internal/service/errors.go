package service

import "errors"

// 结算错误
var (
	ErrCheckoutItemsEmpty   = errors.New("checkout items empty")
	ErrCheckoutItemInvalid  = errors.New("checkout item invalid")
	ErrCartEmpty            = errors.New("cart is empty")
	ErrVariationNotFound    = errors.New("product variation not found")
	ErrVariationShopMixed   = errors.New("product variation not in shop")
	ErrStockInsufficient    = errors.New("stock insufficient")
	ErrPaymentMethodInvalid = errors.New("payment method invalid")
)

// 优惠券错误
var (
	ErrVoucherNotFound      = errors.New("voucher not found")
	ErrVoucherExpired       = errors.New("voucher expired")
	ErrVoucherNotStarted    = errors.New("voucher not started")
	ErrVoucherMinSpend      = errors.New("voucher minimum spend not reached")
	ErrVoucherScopeEmpty    = errors.New("voucher shop has no items in cart")
	ErrVoucherTypeInvalid   = errors.New("voucher type invalid")
	ErrVoucherClaimNotFound = errors.New("voucher claim not found")
	ErrVoucherAlreadyUsed   = errors.New("voucher already used")
)

// 账单与支付错误
var (
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrInvoiceNotPayable    = errors.New("invoice not payable")
	ErrPaymentConfigInvalid = errors.New("payment config invalid")
)
