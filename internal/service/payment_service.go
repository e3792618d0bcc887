package service

import (
	"fmt"
	"strings"

	"github.com/marketbay-next/internal/constants"
	"github.com/marketbay-next/internal/logger"
	"github.com/marketbay-next/internal/models"
	"github.com/marketbay-next/internal/payment/vnpay"
	"github.com/marketbay-next/internal/repository"
)

// PaymentService 支付服务
type PaymentService struct {
	invoiceRepo repository.InvoiceRepository
	checkoutSvc *CheckoutService
	vnpayConfig *vnpay.Config
}

// NewPaymentService 创建支付服务
func NewPaymentService(invoiceRepo repository.InvoiceRepository, checkoutSvc *CheckoutService, vnpayConfig *vnpay.Config) *PaymentService {
	return &PaymentService{
		invoiceRepo: invoiceRepo,
		checkoutSvc: checkoutSvc,
		vnpayConfig: vnpayConfig,
	}
}

// ResultRedirect 构造支付结果页跳转地址，配置缺失时返回空串。
func (s *PaymentService) ResultRedirect(status, code string) string {
	if s.vnpayConfig == nil {
		return ""
	}
	return s.vnpayConfig.ResultRedirectURL(status, code)
}

// CreatePaymentURLInput 创建支付链接请求
type CreatePaymentURLInput struct {
	InvoiceID string
	Amount    *models.Money // 客户端声明金额，仅用于一致性告警
	OrderInfo string
	ClientIP  string
}

// CreatePaymentURLResult 创建支付链接结果
type CreatePaymentURLResult struct {
	PaymentURL string
}

// CreatePaymentURL 为待支付账单构造 VNPay 跳转链接。
// 金额以账单落库值为准，客户端声明值不一致时仅告警。
func (s *PaymentService) CreatePaymentURL(input CreatePaymentURLInput) (*CreatePaymentURLResult, error) {
	if s.vnpayConfig == nil {
		return nil, ErrPaymentConfigInvalid
	}
	invoiceID := strings.TrimSpace(input.InvoiceID)
	if invoiceID == "" {
		return nil, ErrInvoiceNotFound
	}
	invoice, err := s.invoiceRepo.GetByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}
	if invoice.PaymentMethod != constants.PaymentMethodVNPay ||
		invoice.PaymentStatus != constants.PaymentStatusAwaitingPayment {
		return nil, ErrInvoiceNotPayable
	}
	if input.Amount != nil && input.Amount.Decimal.Cmp(invoice.TotalAmount.Decimal) != 0 {
		logger.Warnw("payment_url_amount_mismatch",
			"invoice_id", invoice.ID,
			"stored_amount", invoice.TotalAmount.String(),
			"client_amount", input.Amount.String(),
		)
	}

	orderInfo := strings.TrimSpace(input.OrderInfo)
	if orderInfo == "" {
		orderInfo = fmt.Sprintf("Thanh toan don hang %s", invoice.ID)
	}
	paymentURL, err := vnpay.BuildPaymentURL(s.vnpayConfig, vnpay.CreateInput{
		TxnRef:    invoice.ID,
		Amount:    invoice.TotalAmount.Decimal,
		OrderInfo: orderInfo,
		ClientIP:  strings.TrimSpace(input.ClientIP),
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("payment_url_created",
		"invoice_id", invoice.ID,
		"amount", invoice.TotalAmount.String(),
	)
	return &CreatePaymentURLResult{PaymentURL: paymentURL}, nil
}
