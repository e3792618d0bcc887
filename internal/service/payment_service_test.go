package service

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/marketbay-next/internal/constants"
	"github.com/marketbay-next/internal/models"
)

func TestCreatePaymentURLForAwaitingInvoice(t *testing.T) {
	svc, checkoutSvc, db := setupPaymentCallbackTest(t)
	invoice, _ := createAwaitingInvoice(t, checkoutSvc, db, 1, 100000, 1, 5)

	result, err := svc.CreatePaymentURL(CreatePaymentURLInput{
		InvoiceID: invoice.ID,
		ClientIP:  "203.0.113.10",
	})
	if err != nil {
		t.Fatalf("CreatePaymentURL error: %v", err)
	}
	parsed, err := url.Parse(result.PaymentURL)
	if err != nil {
		t.Fatalf("parse payment url failed: %v", err)
	}
	query := parsed.Query()
	if query.Get("vnp_TxnRef") != invoice.ID {
		t.Fatalf("expected txn ref %s, got %s", invoice.ID, query.Get("vnp_TxnRef"))
	}
	// 金额以账单落库值为准，换算为最小货币单位
	if query.Get("vnp_Amount") != "10000000" {
		t.Fatalf("expected amount 10000000, got %s", query.Get("vnp_Amount"))
	}
	if query.Get("vnp_SecureHash") == "" {
		t.Fatalf("expected signed payment url")
	}
	if !strings.HasPrefix(result.PaymentURL, "https://sandbox.vnpayment.vn/") {
		t.Fatalf("unexpected gateway prefix: %s", result.PaymentURL)
	}
}

func TestCreatePaymentURLAmountMismatchUsesStoredAmount(t *testing.T) {
	svc, checkoutSvc, db := setupPaymentCallbackTest(t)
	invoice, _ := createAwaitingInvoice(t, checkoutSvc, db, 1, 100000, 1, 5)

	claimed := models.NewMoneyFromInt(1)
	result, err := svc.CreatePaymentURL(CreatePaymentURLInput{
		InvoiceID: invoice.ID,
		Amount:    &claimed,
	})
	if err != nil {
		t.Fatalf("CreatePaymentURL error: %v", err)
	}
	parsed, err := url.Parse(result.PaymentURL)
	if err != nil {
		t.Fatalf("parse payment url failed: %v", err)
	}
	if parsed.Query().Get("vnp_Amount") != "10000000" {
		t.Fatalf("expected stored amount to win, got %s", parsed.Query().Get("vnp_Amount"))
	}
}

func TestCreatePaymentURLRejectsNonPayableInvoice(t *testing.T) {
	svc, checkoutSvc, db := setupPaymentCallbackTest(t)
	variation := createTestVariation(t, db, 1, 50000, 5)
	invoice, err := checkoutSvc.Checkout(CheckoutInput{
		UserID:        1,
		ShopID:        1,
		PaymentMethod: constants.PaymentMethodCOD,
		Items:         []CheckoutItem{checkoutItemFromVariation(variation, 1)},
	})
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if _, err := svc.CreatePaymentURL(CreatePaymentURLInput{InvoiceID: invoice.ID}); !errors.Is(err, ErrInvoiceNotPayable) {
		t.Fatalf("expected ErrInvoiceNotPayable, got %v", err)
	}
}

func TestCreatePaymentURLUnknownInvoice(t *testing.T) {
	svc, _, _ := setupPaymentCallbackTest(t)
	if _, err := svc.CreatePaymentURL(CreatePaymentURLInput{InvoiceID: "missing"}); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}
