package public

import (
	"net/http"
	"strings"

	"github.com/marketbay-next/internal/constants"
	"github.com/marketbay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// IPNResponse VNPay IPN 应答结构
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// VNPayReturn 同步跳转通道。无论对账结果如何都 302 跳回前端结果页，
// 不向网关抛出任何错误。
func (h *Handler) VNPayReturn(c *gin.Context) {
	query := c.Request.URL.Query()
	log := requestLog(c)
	log.Infow("vnpay_return_received",
		"client_ip", c.ClientIP(),
		"txn_ref", strings.TrimSpace(getFirstValue(query, "vnp_TxnRef")),
		"response_code", strings.TrimSpace(getFirstValue(query, "vnp_ResponseCode")),
	)

	result, err := h.PaymentService.HandleVNPayCallback(query)
	if err != nil {
		log.Errorw("vnpay_return_handle_failed", "error", err)
		h.redirectPaymentResult(c, "failed", strings.TrimSpace(getFirstValue(query, "vnp_ResponseCode")))
		return
	}
	if !result.IsValid {
		h.redirectPaymentResult(c, "invalid", result.ResponseCode)
		return
	}

	status := paymentResultStatus(result)
	h.redirectPaymentResult(c, status, result.ResponseCode)
}

// VNPayIPN 服务端通知通道。始终以 HTTP 200 + RspCode 应答：
// 97 验签失败，98 账单未命中，00 已受理（含重复投递），99 内部异常。
func (h *Handler) VNPayIPN(c *gin.Context) {
	form, err := parseCallbackForm(c)
	if err != nil {
		requestLog(c).Warnw("vnpay_ipn_form_parse_failed", "error", err)
		c.JSON(http.StatusOK, IPNResponse{RspCode: constants.IPNCodeUnknownError, Message: "Unknown error"})
		return
	}
	log := requestLog(c)
	log.Infow("vnpay_ipn_received",
		"client_ip", c.ClientIP(),
		"txn_ref", strings.TrimSpace(getFirstValue(form, "vnp_TxnRef")),
		"response_code", strings.TrimSpace(getFirstValue(form, "vnp_ResponseCode")),
		"raw_form", callbackRawFormForLog(form),
	)

	result, err := h.PaymentService.HandleVNPayCallback(form)
	if err != nil {
		log.Errorw("vnpay_ipn_handle_failed", "error", err)
		c.JSON(http.StatusOK, IPNResponse{RspCode: constants.IPNCodeUnknownError, Message: "Unknown error"})
		return
	}
	if !result.IsValid {
		c.JSON(http.StatusOK, IPNResponse{RspCode: constants.IPNCodeInvalidSignature, Message: "Invalid signature"})
		return
	}
	if result.TxnRef == "" || result.Invoice == nil {
		c.JSON(http.StatusOK, IPNResponse{RspCode: constants.IPNCodeOrderNotFound, Message: "Order not found"})
		return
	}

	c.JSON(http.StatusOK, IPNResponse{RspCode: constants.IPNCodeSuccess, Message: "Confirm success"})
}

func (h *Handler) redirectPaymentResult(c *gin.Context, status, code string) {
	target := h.PaymentService.ResultRedirect(status, code)
	if target == "" {
		c.String(http.StatusOK, "OK")
		return
	}
	c.Redirect(http.StatusFound, target)
}

// paymentResultStatus 目标状态到前端结果页状态的映射
func paymentResultStatus(result *service.CallbackResult) string {
	switch result.TargetStatus {
	case constants.PaymentStatusCompleted:
		return "success"
	case constants.PaymentStatusCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

func parseCallbackForm(c *gin.Context) (map[string][]string, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	if len(c.Request.PostForm) > 0 {
		return c.Request.PostForm, nil
	}
	return c.Request.Form, nil
}

func getFirstValue(form map[string][]string, key string) string {
	if values, ok := form[key]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

func truncateCallbackLogValue(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if len(raw) <= callbackLogValueLimit {
		return raw
	}
	return raw[:callbackLogValueLimit] + "...(truncated)"
}

func callbackRawFormForLog(form map[string][]string) map[string]interface{} {
	result := make(map[string]interface{}, len(form))
	for key, values := range form {
		if len(values) == 0 {
			result[key] = ""
			continue
		}
		if len(values) == 1 {
			result[key] = truncateCallbackLogValue(values[0])
			continue
		}
		copied := make([]string, 0, len(values))
		for _, value := range values {
			copied = append(copied, truncateCallbackLogValue(value))
		}
		result[key] = copied
	}
	return result
}
