package public

import (
	"errors"

	"github.com/marketbay-next/internal/http/response"
	"github.com/marketbay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var checkoutCommonErrorRules = []mappedHandlerError{
	{target: service.ErrCheckoutItemsEmpty, code: response.CodeBadRequest, key: "error.checkout_items_empty"},
	{target: service.ErrCheckoutItemInvalid, code: response.CodeBadRequest, key: "error.checkout_item_invalid"},
	{target: service.ErrPaymentMethodInvalid, code: response.CodeBadRequest, key: "error.payment_method_invalid"},
	{target: service.ErrVariationNotFound, code: response.CodeBadRequest, key: "error.product_variation_not_found"},
	{target: service.ErrVariationShopMixed, code: response.CodeBadRequest, key: "error.product_variation_shop_mixed"},
	{target: service.ErrStockInsufficient, code: response.CodeBadRequest, key: "error.stock_insufficient"},
	{target: service.ErrVoucherClaimNotFound, code: response.CodeBadRequest, key: "error.voucher_claim_not_found"},
	{target: service.ErrVoucherNotFound, code: response.CodeBadRequest, key: "error.voucher_not_found"},
	{target: service.ErrVoucherTypeInvalid, code: response.CodeBadRequest, key: "error.voucher_type_invalid"},
	{target: service.ErrVoucherNotStarted, code: response.CodeBadRequest, key: "error.voucher_not_started"},
	{target: service.ErrVoucherExpired, code: response.CodeBadRequest, key: "error.voucher_expired"},
	{target: service.ErrVoucherMinSpend, code: response.CodeBadRequest, key: "error.voucher_min_spend"},
	{target: service.ErrVoucherScopeEmpty, code: response.CodeBadRequest, key: "error.voucher_scope_empty"},
	{target: service.ErrVoucherAlreadyUsed, code: response.CodeBadRequest, key: "error.voucher_already_used"},
}

var cartCheckoutExtraErrorRules = []mappedHandlerError{
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, key: "error.cart_empty"},
}

var paymentURLErrorRules = []mappedHandlerError{
	{target: service.ErrInvoiceNotFound, code: response.CodeNotFound, key: "error.invoice_not_found"},
	{target: service.ErrInvoiceNotPayable, code: response.CodeBadRequest, key: "error.invoice_not_payable"},
	{target: service.ErrPaymentConfigInvalid, code: response.CodeInternal, key: "error.payment_config_invalid"},
}

func respondCheckoutError(c *gin.Context, err error) {
	respondWithMappedError(c, err, checkoutCommonErrorRules, response.CodeInternal, "error.checkout_failed")
}

func respondCartCheckoutError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(checkoutCommonErrorRules, cartCheckoutExtraErrorRules), response.CodeInternal, "error.checkout_failed")
}

func respondPaymentURLError(c *gin.Context, err error) {
	respondWithMappedError(c, err, paymentURLErrorRules, response.CodeInternal, "error.payment_url_failed")
}
