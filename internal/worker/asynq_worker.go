package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/marketbay-next/internal/logger"
	"github.com/marketbay-next/internal/provider"
	"github.com/marketbay-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskInvoiceTimeoutCancel, c.handleInvoiceTimeoutCancel)
}

// handleInvoiceTimeoutCancel 支付窗口到期的延迟取消。实际是否取消由
// 服务层的条件状态推进决定，已支付或已被回调推进的账单是 no-op。
func (c *Consumer) handleInvoiceTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_invoice_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.InvoiceTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_invoice_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	invoiceID := strings.TrimSpace(payload.InvoiceID)
	if invoiceID == "" {
		logger.Debugw("worker_invoice_timeout_cancel_skip_invalid_payload")
		return nil
	}
	if c.CheckoutService == nil {
		logger.Warnw("worker_invoice_timeout_cancel_skip_service_nil", "invoice_id", invoiceID)
		return nil
	}
	if err := c.CheckoutService.CancelExpiredInvoice(invoiceID); err != nil {
		logger.Warnw("worker_invoice_timeout_cancel_failed", "invoice_id", invoiceID, "error", err)
		return err
	}
	return nil
}
