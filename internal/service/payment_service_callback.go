package service

import (
	"errors"
	"strings"
	"time"

	"github.com/marketbay-next/internal/constants"
	"github.com/marketbay-next/internal/logger"
	"github.com/marketbay-next/internal/models"
	"github.com/marketbay-next/internal/payment/vnpay"

	"gorm.io/gorm"
)

// CallbackResult VNPay 回调对账结果。两条通道（同步跳转与 IPN）共用，
// 由各自的 handler 映射为跳转或 RspCode 应答。
type CallbackResult struct {
	IsValid      bool            // 签名是否通过
	TxnRef       string          // 交易引用（账单ID）
	ResponseCode string          // vnp_ResponseCode
	TargetStatus string          // 响应码映射出的目标状态
	Invoice      *models.Invoice // 引用命中的账单，未命中为 nil
	Applied      int             // 本次实际推进状态的账单数（含兄弟账单）
}

// resolveTargetStatus 响应码到目标状态的纯映射：00 支付成功，
// 24 用户取消，其余一律视为失败。
func resolveTargetStatus(responseCode string) string {
	switch responseCode {
	case constants.VNPayCodeSuccess:
		return constants.PaymentStatusCompleted
	case constants.VNPayCodeCancelled:
		return constants.PaymentStatusCancelled
	default:
		return constants.PaymentStatusFailed
	}
}

// HandleVNPayCallback 统一处理 VNPay 两条回调通道。
// 验签失败不触发任何状态变更；状态推进是 (当前状态, 响应码) 的纯函数，
// 以条件更新落库，重复投递与乱序投递收敛到同一终态。
func (s *PaymentService) HandleVNPayCallback(query map[string][]string) (*CallbackResult, error) {
	result := &CallbackResult{
		TxnRef:       strings.TrimSpace(firstQueryValue(query, "vnp_TxnRef")),
		ResponseCode: strings.TrimSpace(firstQueryValue(query, "vnp_ResponseCode")),
	}
	log := logger.SW(
		"txn_ref", result.TxnRef,
		"response_code", result.ResponseCode,
	)
	log.Infow("payment_callback_received")

	if err := vnpay.VerifyCallback(s.vnpayConfig, query); err != nil {
		if errors.Is(err, vnpay.ErrSignatureInvalid) {
			log.Warnw("payment_callback_signature_invalid")
			return result, nil
		}
		log.Errorw("payment_callback_verify_failed", "error", err)
		return nil, err
	}
	result.IsValid = true
	result.TargetStatus = resolveTargetStatus(result.ResponseCode)

	if result.TxnRef == "" {
		log.Warnw("payment_callback_txn_ref_missing")
		return result, nil
	}
	invoice, err := s.invoiceRepo.GetByID(result.TxnRef)
	if err != nil {
		log.Errorw("payment_callback_invoice_fetch_failed", "error", err)
		return nil, err
	}
	if invoice == nil {
		log.Warnw("payment_callback_invoice_not_found")
		return result, nil
	}
	result.Invoice = invoice

	// 目标状态已生效：重复投递或另一条通道已处理，幂等返回
	if invoice.PaymentStatus == result.TargetStatus {
		log.Infow("payment_callback_idempotent", "current_status", invoice.PaymentStatus)
		return result, nil
	}

	applied := 0
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		count, err := s.applyTransition(tx, invoice, result.TargetStatus)
		if err != nil {
			return err
		}
		applied += count

		// 同一次结算拆出的兄弟账单：同用户、同支付方式、
		// 回溯窗口内仍在等待支付的一并推进
		since := time.Now().Add(-s.checkoutSvc.ExpireWindow())
		siblings, err := s.invoiceRepo.WithTx(tx).ListAwaitingSiblings(
			invoice.ID,
			invoice.UserID,
			invoice.PaymentMethod,
			constants.PaymentStatusAwaitingPayment,
			since,
		)
		if err != nil {
			return err
		}
		for i := range siblings {
			count, err := s.applyTransition(tx, &siblings[i], result.TargetStatus)
			if err != nil {
				return err
			}
			applied += count
		}
		return nil
	})
	if err != nil {
		log.Errorw("payment_callback_apply_failed", "error", err)
		return nil, err
	}
	result.Applied = applied
	log.Infow("payment_callback_processed",
		"previous_status", invoice.PaymentStatus,
		"target_status", result.TargetStatus,
		"applied", applied,
	)
	return result, nil
}

// applyTransition 对单张账单执行条件状态推进。仅 awaiting_payment 可被推进；
// 0 行生效说明另一条通道已完成推进，直接跳过，保证补偿动作不重复执行。
func (s *PaymentService) applyTransition(tx *gorm.DB, invoice *models.Invoice, target string) (int, error) {
	updates := map[string]interface{}{}
	switch target {
	case constants.PaymentStatusCompleted:
		updates["paid_at"] = time.Now()
	case constants.PaymentStatusCancelled, constants.PaymentStatusFailed:
		updates["order_status"] = constants.OrderStatusCanceled
	}

	affected, err := s.invoiceRepo.WithTx(tx).TransitionPaymentStatus(
		invoice.ID,
		constants.PaymentStatusAwaitingPayment,
		target,
		updates,
	)
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, nil
	}
	// 未支付终态：回补库存、释放优惠券
	if target == constants.PaymentStatusCancelled || target == constants.PaymentStatusFailed {
		if err := s.checkoutSvc.CompensateInvoice(tx, invoice); err != nil {
			return 0, err
		}
	}
	return 1, nil
}

func firstQueryValue(query map[string][]string, key string) string {
	if values, ok := query[key]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}
