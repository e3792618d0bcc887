package queue

import (
	"encoding/json"

	"github.com/marketbay-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskInvoiceTimeoutCancel 账单支付超时取消任务
	TaskInvoiceTimeoutCancel = constants.TaskInvoiceTimeoutCancel
)

// InvoiceTimeoutCancelPayload 账单超时取消任务载荷
type InvoiceTimeoutCancelPayload struct {
	InvoiceID string `json:"invoice_id"`
}

// NewInvoiceTimeoutCancelTask 创建账单超时取消任务
func NewInvoiceTimeoutCancelTask(payload InvoiceTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceTimeoutCancel, body), nil
}
