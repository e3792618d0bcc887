package constants

// 支付状态常量
const (
	PaymentStatusPending         = "pending"
	PaymentStatusAwaitingPayment = "awaiting_payment"
	PaymentStatusCompleted       = "COMPLETED"
	PaymentStatusCancelled       = "CANCELLED"
	PaymentStatusFailed          = "FAILED"
)

// 订单状态常量（履约生命周期，与支付状态相互独立）
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
)

// 支付方式常量
const (
	PaymentMethodCOD   = "COD"
	PaymentMethodVNPay = "VNPAY"
)

// 优惠券类型常量
const (
	VoucherTypeSystem = "voucher"
	VoucherTypeShop   = "shop_voucher"
)

// VNPay 协议常量
const (
	VNPayVersion          = "2.1.0"
	VNPayCommandPay       = "pay"
	VNPayCurrencyVND      = "VND"
	VNPayLocaleVN         = "vn"
	VNPayOrderTypeDefault = "other"
)

// VNPay 回调响应码常量
const (
	VNPayCodeSuccess   = "00"
	VNPayCodeCancelled = "24"
)

// VNPay IPN 应答码常量
const (
	IPNCodeSuccess          = "00"
	IPNCodeInvalidSignature = "97"
	IPNCodeOrderNotFound    = "98"
	IPNCodeUnknownError     = "99"
)

// 队列常量
const (
	QueueDefault             = "default"
	TaskInvoiceTimeoutCancel = "invoice:timeout_cancel"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "mb"
)

// 支付窗口常量
const (
	// PaymentExpireMinutesDefault 支付窗口默认时长（分钟），
	// 同时作为兄弟订单归并的回溯窗口
	PaymentExpireMinutesDefault = 15
)
