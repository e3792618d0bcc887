package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/marketbay-next/internal/constants"
	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("vnpay config invalid")
	ErrRequestInvalid   = errors.New("vnpay request invalid")
	ErrSignatureInvalid = errors.New("vnpay signature invalid")
)

// 时间戳使用越南时区（GMT+7），格式 yyyyMMddHHmmss
var vnpayLocation = time.FixedZone("ICT", 7*60*60)

const timestampLayout = "20060102150405"

// Config VNPay 配置
type Config struct {
	TmnCode       string `json:"tmn_code"`       // 商户号
	HashSecret    string `json:"hash_secret"`    // HMAC 密钥
	PayURL        string `json:"pay_url"`        // 支付网关地址
	ReturnURL     string `json:"return_url"`     // 同步跳转地址
	FrontendURL   string `json:"frontend_url"`   // 前端结果页基础地址
	ExpireMinutes int    `json:"expire_minutes"` // 支付链接有效期（分钟）
	Locale        string `json:"locale"`         // 界面语言
}

// CreateInput VNPay 下单输入
type CreateInput struct {
	TxnRef    string          // 交易引用（账单ID）
	Amount    decimal.Decimal // 金额（主币种单位）
	OrderInfo string          // 订单描述
	ClientIP  string          // 客户端IP
	Now       time.Time       // 下单时间（零值取当前时间）
}

// ParseConfig 解析配置
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: empty config", ErrConfigInvalid)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config failed", ErrConfigInvalid)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config failed", ErrConfigInvalid)
	}
	cfg.Normalize()
	return &cfg, nil
}

// ValidateConfig 校验 VNPay 配置完整性。配置缺失是启动期致命错误，
// 不允许推迟到请求期暴露。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.TmnCode) == "" {
		return fmt.Errorf("%w: tmn_code is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.HashSecret) == "" {
		return fmt.Errorf("%w: hash_secret is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.PayURL) == "" {
		return fmt.Errorf("%w: pay_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.ReturnURL) == "" {
		return fmt.Errorf("%w: return_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.FrontendURL) == "" {
		return fmt.Errorf("%w: frontend_url is required", ErrConfigInvalid)
	}
	return nil
}

// Normalize 清理空白并补齐默认值
func (c *Config) Normalize() {
	c.TmnCode = strings.TrimSpace(c.TmnCode)
	c.HashSecret = strings.TrimSpace(c.HashSecret)
	c.PayURL = strings.TrimSpace(c.PayURL)
	c.ReturnURL = strings.TrimSpace(c.ReturnURL)
	c.FrontendURL = strings.TrimRight(strings.TrimSpace(c.FrontendURL), "/")
	if c.ExpireMinutes <= 0 {
		c.ExpireMinutes = constants.PaymentExpireMinutesDefault
	}
	if c.Locale == "" {
		c.Locale = constants.VNPayLocaleVN
	}
}

// BuildPaymentURL 构造带签名的支付跳转链接。
// 参数按字典序排序后 URL 编码，HMAC-SHA512 摘要以 vnp_SecureHash 追加。
func BuildPaymentURL(cfg *Config, input CreateInput) (string, error) {
	if cfg == nil {
		return "", ErrConfigInvalid
	}
	if err := ValidateConfig(cfg); err != nil {
		return "", err
	}
	if strings.TrimSpace(input.TxnRef) == "" {
		return "", fmt.Errorf("%w: txn_ref is required", ErrRequestInvalid)
	}
	if input.Amount.IsNegative() {
		return "", fmt.Errorf("%w: amount is negative", ErrRequestInvalid)
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(vnpayLocation)
	expire := now.Add(time.Duration(cfg.ExpireMinutes) * time.Minute)

	params := map[string]string{
		"vnp_Version":    constants.VNPayVersion,
		"vnp_Command":    constants.VNPayCommandPay,
		"vnp_TmnCode":    cfg.TmnCode,
		"vnp_Amount":     input.Amount.Mul(decimal.NewFromInt(100)).Round(0).String(),
		"vnp_CreateDate": now.Format(timestampLayout),
		"vnp_CurrCode":   constants.VNPayCurrencyVND,
		"vnp_IpAddr":     input.ClientIP,
		"vnp_Locale":     cfg.Locale,
		"vnp_OrderInfo":  input.OrderInfo,
		"vnp_OrderType":  constants.VNPayOrderTypeDefault,
		"vnp_ReturnUrl":  cfg.ReturnURL,
		"vnp_ExpireDate": expire.Format(timestampLayout),
		"vnp_TxnRef":     input.TxnRef,
	}

	query := buildSignContent(params)
	secureHash := signHMACSHA512(cfg.HashSecret, query)
	return cfg.PayURL + "?" + query + "&vnp_SecureHash=" + secureHash, nil
}

// VerifyCallback 验证回调签名。剔除签名字段后按下单时的规则重新
// 编码并重算 HMAC，与来参的 vnp_SecureHash 做恒定时间比较。
func VerifyCallback(cfg *Config, query map[string][]string) error {
	if cfg == nil || cfg.HashSecret == "" {
		return ErrConfigInvalid
	}
	supplied := strings.TrimSpace(firstValue(query, "vnp_SecureHash"))
	if supplied == "" {
		return ErrSignatureInvalid
	}
	params := make(map[string]string, len(query))
	for key, values := range query {
		if len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	expected := signHMACSHA512(cfg.HashSecret, buildSignContent(params))
	if !hmac.Equal([]byte(strings.ToLower(supplied)), []byte(expected)) {
		return ErrSignatureInvalid
	}
	return nil
}

// ResultRedirectURL 构造前端结果页跳转地址
func (c *Config) ResultRedirectURL(status, code string) string {
	values := url.Values{}
	values.Set("status", status)
	values.Set("code", code)
	return c.FrontendURL + "/payment/result?" + values.Encode()
}

func buildSignContent(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}
	return strings.Join(pairs, "&")
}

func signHMACSHA512(secret, content string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))
}

func firstValue(query map[string][]string, key string) string {
	if values, ok := query[key]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}
