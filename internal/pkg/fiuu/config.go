package fiuu

import (
	"strings"

	"github.com/khairulanwar/PasarBox/internal/pkg/env"
)

// Vcode modes. Legacy hashes amount|merchant|order|verifyKey; extended
// appends the currency. Which one the gateway expects is account-specific.
const (
	VcodeModeLegacy   = "legacy"
	VcodeModeExtended = "extended"
)

const (
	defaultGatewayURL = "https://pay.fiuu.com/RMS/pay"
	defaultAPIBase    = "https://api.fiuu.com"
	sandboxAPIBase    = "https://sandbox-payment.fiuu.com"
)

// Config holds one Fiuu merchant account. Values come from the environment
// but can be overridden per call site (e.g. category-specific accounts).
type Config struct {
	MerchantID    string
	VerifyKey     string
	SecretKey     string
	GatewayURL    string
	APIBase       string
	PaymentMethod string
	Currency      string
	RequestMethod string
	VcodeMode     string
}

// ConfigFromEnv reads the default merchant account from the environment.
func ConfigFromEnv() Config {
	return Config{
		MerchantID:    strings.TrimSpace(env.GetEnv("FIUU_MERCHANT_ID", "")),
		VerifyKey:     strings.TrimSpace(env.GetEnv("FIUU_VERIFY_KEY", "")),
		SecretKey:     strings.TrimSpace(env.GetEnv("FIUU_SECRET_KEY", "")),
		GatewayURL:    strings.TrimSpace(env.GetEnv("FIUU_GATEWAY_URL", defaultGatewayURL)),
		APIBase:       strings.TrimSpace(env.GetEnv("FIUU_API_BASE", "")),
		PaymentMethod: strings.TrimSpace(env.GetEnv("FIUU_PAYMENT_METHOD", "")),
		Currency:      strings.TrimSpace(env.GetEnv("FIUU_CURRENCY", "MYR")),
		RequestMethod: strings.ToUpper(strings.TrimSpace(env.GetEnv("FIUU_REQUEST_METHOD", "GET"))),
		VcodeMode:     strings.ToLower(strings.TrimSpace(env.GetEnv("FIUU_VCODE_MODE", VcodeModeLegacy))),
	}
}

// IsConfigured reports whether hosted payments can be initiated.
func (c Config) IsConfigured() bool {
	return c.MerchantID != "" && c.VerifyKey != "" && c.SecretKey != "" && c.gatewayURL() != ""
}

// IsRefundConfigured reports whether the refund API can be called.
func (c Config) IsRefundConfigured() bool {
	return c.MerchantID != "" && c.SecretKey != ""
}

func (c Config) gatewayURL() string {
	if c.GatewayURL != "" {
		return c.GatewayURL
	}
	return defaultGatewayURL
}

func (c Config) currency() string {
	if c.Currency != "" {
		return c.Currency
	}
	return "MYR"
}

// apiBase resolves the host for non-payment APIs (refunds). An explicit
// APIBase wins; a sandbox gateway implies the sandbox API host.
func (c Config) apiBase() string {
	if b := strings.TrimRight(c.APIBase, "/"); b != "" {
		return b
	}
	if strings.Contains(c.gatewayURL(), "sandbox-payment.fiuu.com") {
		return sandboxAPIBase
	}
	return defaultAPIBase
}
