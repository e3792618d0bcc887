package public

import (
	"github.com/marketbay-next/internal/http/response"
	"github.com/marketbay-next/internal/models"
	"github.com/marketbay-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePaymentURLRequest 创建支付链接请求
type CreatePaymentURLRequest struct {
	InvoiceID string        `json:"invoice_id" binding:"required"`
	Amount    *models.Money `json:"amount"`
	OrderInfo string        `json:"order_info"`
}

const callbackLogValueLimit = 4096

// CreatePaymentURL 为待支付账单生成 VNPay 跳转链接
func (h *Handler) CreatePaymentURL(c *gin.Context) {
	var req CreatePaymentURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.PaymentService.CreatePaymentURL(service.CreatePaymentURLInput{
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount,
		OrderInfo: req.OrderInfo,
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		respondPaymentURLError(c, err)
		return
	}

	response.Success(c, gin.H{
		"success":     true,
		"payment_url": result.PaymentURL,
	})
}
