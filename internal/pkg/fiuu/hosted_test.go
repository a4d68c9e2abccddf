package fiuu

import (
	"strings"
	"testing"

	"github.com/khairulanwar/PasarBox/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() *models.Order {
	return &models.Order{
		ID:          42,
		OrderCode:   "PB-20250101-ABCD1234",
		TotalAmount: 12050,
	}
}

func TestBuildHostedPaymentRequestFields(t *testing.T) {
	cfg := testConfig()
	cfg.GatewayURL = "https://pay.fiuu.com/RMS/pay"
	cfg.RequestMethod = "GET"

	req, err := BuildHostedPaymentRequest(cfg, testOrder(), Customer{
		Name:   "Aminah",
		Email:  "aminah@example.com",
		Mobile: "+60 12-345 6789",
	}, "creditAN", "https://shop.example.com/")
	require.NoError(t, err)

	assert.Equal(t, "https://pay.fiuu.com/RMS/pay/pasarbox_dev", req.URL)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "120.50", req.Fields["amount"])
	assert.Equal(t, "PB-20250101-ABCD1234", req.Fields["orderid"])
	assert.Equal(t, "+60123456789", req.Fields["bill_mobile"])
	assert.Equal(t, "creditAN", req.Fields["channel"])
	assert.Equal(t, "https://shop.example.com/payment/return", req.Fields["returnurl"])
	assert.Equal(t, "https://shop.example.com/payment/callback", req.Fields["callbackurl"])
	assert.Equal(t, "https://shop.example.com/payment/cancel", req.Fields["cancelurl"])
	assert.Equal(t, BuildVcode("120.50", cfg.MerchantID, "PB-20250101-ABCD1234", cfg.VerifyKey, "MYR", cfg.VcodeMode), req.Fields["vcode"])

	// merchant id is a path segment, so it must not repeat as a field
	_, hasMerchantField := req.Fields["merchant_id"]
	assert.False(t, hasMerchantField)

	assert.True(t, strings.HasPrefix(req.FullURL, req.URL+"?"))
	assert.Contains(t, req.FullURL, "orderid=PB-20250101-ABCD1234")
}

func TestMerchantFieldKeptOnPrefixCollision(t *testing.T) {
	cfg := testConfig()
	cfg.MerchantID = "abc"

	// Another merchant's id sharing a prefix is not "our" path segment.
	cfg.GatewayURL = "https://pay.fiuu.com/RMS/pay/abcdef/credit"
	req, err := BuildHostedPaymentRequest(cfg, testOrder(), Customer{}, "", "https://shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, "abc", req.Fields["merchant_id"])

	cfg.GatewayURL = "https://pay.fiuu.com/RMS/pay/abc/credit"
	req, err = BuildHostedPaymentRequest(cfg, testOrder(), Customer{}, "", "https://shop.example.com")
	require.NoError(t, err)
	_, hasMerchantField := req.Fields["merchant_id"]
	assert.False(t, hasMerchantField)
}

func TestBuildHostedPaymentRequestNotConfigured(t *testing.T) {
	_, err := BuildHostedPaymentRequest(Config{}, testOrder(), Customer{}, "", "https://shop.example.com")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestResolveHostedURL(t *testing.T) {
	tests := []struct {
		name          string
		gatewayURL    string
		paymentMethod string
		want          string
	}{
		{
			name:       "bare domain",
			gatewayURL: "https://pay.fiuu.com",
			want:       "https://pay.fiuu.com/RMS/pay/pasarbox_dev",
		},
		{
			name:       "base path",
			gatewayURL: "https://pay.fiuu.com/RMS/pay",
			want:       "https://pay.fiuu.com/RMS/pay/pasarbox_dev",
		},
		{
			name:          "base path with channel",
			gatewayURL:    "https://pay.fiuu.com/RMS/pay",
			paymentMethod: "fpx",
			want:          "https://pay.fiuu.com/RMS/pay/pasarbox_dev/fpx",
		},
		{
			name:       "full url already",
			gatewayURL: "https://pay.fiuu.com/RMS/pay/other_merchant/credit",
			want:       "https://pay.fiuu.com/RMS/pay/other_merchant/credit",
		},
		{
			name:          "template placeholders",
			gatewayURL:    "https://pay.fiuu.com/RMS/pay/{MerchantID}/{Payment_Method}",
			paymentMethod: "credit",
			want:          "https://pay.fiuu.com/RMS/pay/pasarbox_dev/credit",
		},
		{
			name:       "template placeholder without method",
			gatewayURL: "https://pay.fiuu.com/RMS/pay/{MerchantID}/{Payment_Method}",
			want:       "https://pay.fiuu.com/RMS/pay/pasarbox_dev",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.GatewayURL = tt.gatewayURL
			cfg.PaymentMethod = tt.paymentMethod
			assert.Equal(t, tt.want, resolveHostedURL(cfg, cfg.MerchantID))
		})
	}
}

func TestSanitizeMobile(t *testing.T) {
	assert.Equal(t, "+60123456789", sanitizeMobile("+60 12-345 6789"))
	assert.Equal(t, "0123456789", sanitizeMobile("012 345 6789"))
	assert.Equal(t, "", sanitizeMobile("   "))
}
