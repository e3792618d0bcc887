package public

import (
	"strconv"
	"strings"

	handlershared "github.com/marketbay-next/internal/http/handlers/shared"
	"github.com/marketbay-next/internal/http/response"
	"github.com/marketbay-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListInvoices 获取用户账单列表
func (h *Handler) ListInvoices(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	invoices, total, err := h.InvoiceRepo.ListByUser(repository.InvoiceListFilter{
		Page:          page,
		PageSize:      pageSize,
		UserID:        uint(userID),
		PaymentMethod: strings.TrimSpace(c.Query("payment_method")),
		PaymentStatus: strings.TrimSpace(c.Query("payment_status")),
		OrderStatus:   strings.TrimSpace(c.Query("order_status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.invoice_fetch_failed", err)
		return
	}

	totalPage := total / int64(pageSize)
	if total%int64(pageSize) > 0 {
		totalPage++
	}
	response.SuccessWithPage(c, invoices, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// GetInvoice 获取账单详情
func (h *Handler) GetInvoice(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}
	invoiceID := strings.TrimSpace(c.Param("id"))
	if invoiceID == "" {
		respondError(c, response.CodeBadRequest, "error.invoice_id_invalid", nil)
		return
	}

	invoice, err := h.InvoiceRepo.GetByIDAndUser(invoiceID, uint(userID))
	if err != nil {
		respondError(c, response.CodeInternal, "error.invoice_fetch_failed", err)
		return
	}
	if invoice == nil {
		respondError(c, response.CodeNotFound, "error.invoice_not_found", nil)
		return
	}

	response.Success(c, invoice)
}
