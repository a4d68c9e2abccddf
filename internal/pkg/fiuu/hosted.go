package fiuu

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/khairulanwar/PasarBox/app/models"
)

// ErrNotConfigured is returned when hosted payments or refunds are
// attempted without merchant credentials.
var ErrNotConfigured = errors.New("fiuu: merchant account is not configured")

// Customer is the billing snapshot sent with a hosted payment request.
type Customer struct {
	Name   string
	Email  string
	Mobile string
}

// HostedRequest is everything the web layer needs to send the buyer to the
// gateway: the target URL, the form fields, and for GET mode the fully
// assembled URL.
type HostedRequest struct {
	URL     string
	Method  string
	Fields  map[string]string
	FullURL string
}

var (
	hostedFullURLPattern = regexp.MustCompile(`(?i)/RMS/pay/[^/]+(/[^/]+)?$`)
	hostedBasePattern    = regexp.MustCompile(`(?i)/RMS/pay\b`)
	hostedBaseEndPattern = regexp.MustCompile(`(?i)/RMS/pay$`)
	hostedOneSegPattern  = regexp.MustCompile(`(?i)/RMS/pay/[^/]+$`)
)

// sanitizeMobile keeps digits and a leading plus; the gateway rejects most
// other characters in bill_mobile.
func sanitizeMobile(phone string) string {
	raw := strings.TrimSpace(phone)
	if raw == "" {
		return ""
	}
	var b strings.Builder
	if strings.HasPrefix(raw, "+") {
		b.WriteByte('+')
	}
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildHostedPaymentRequest assembles the hosted-payment redirect for an
// order. The configured gateway URL may be a full hosted URL, a template
// with {MerchantID}/{Payment_Method} placeholders, an /RMS/pay base, or a
// bare domain; all resolve to the vendor's documented URL shape
// https://<host>/RMS/pay/{MerchantID}[/{Payment_Method}].
func BuildHostedPaymentRequest(cfg Config, order *models.Order, customer Customer, channel, appBaseURL string) (*HostedRequest, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	merchantID := cfg.MerchantID
	currency := cfg.currency()
	amountStr := FormatCents(order.TotalAmount)
	orderRef := order.Ref()

	method := "POST"
	if cfg.RequestMethod == "GET" {
		method = "GET"
	}

	base := strings.TrimRight(appBaseURL, "/")
	fields := map[string]string{
		"merchant_id": merchantID,
		"amount":      amountStr,
		"orderid":     orderRef,
		"bill_name":   customer.Name,
		"bill_email":  customer.Email,
		"bill_mobile": sanitizeMobile(customer.Mobile),
		"bill_desc":   fmt.Sprintf("Order %s", orderRef),
		"currency":    currency,
		"returnurl":   base + "/payment/return",
		"callbackurl": base + "/payment/callback",
		"cancelurl":   base + "/payment/cancel",
	}
	if channel != "" {
		fields["channel"] = channel
	}
	fields["vcode"] = BuildVcode(amountStr, merchantID, orderRef, cfg.VerifyKey, currency, cfg.VcodeMode)

	gatewayURL := resolveHostedURL(cfg, merchantID)

	// When the merchant id is already a path segment the gateway rejects a
	// duplicate merchant_id form field. The match is anchored so another
	// merchant's id sharing a prefix does not count.
	if merchantInPath(gatewayURL, merchantID) {
		delete(fields, "merchant_id")
	}

	req := &HostedRequest{URL: gatewayURL, Method: method, Fields: fields}
	if method == "GET" {
		qs := url.Values{}
		for k, v := range fields {
			qs.Set(k, v)
		}
		req.FullURL = gatewayURL + "?" + qs.Encode()
	}
	return req, nil
}

// merchantInPath reports whether the merchant id appears as a complete
// /RMS/pay path segment of the hosted URL.
func merchantInPath(gatewayURL, merchantID string) bool {
	pattern := regexp.MustCompile(`(?i)/RMS/pay/` + regexp.QuoteMeta(url.PathEscape(merchantID)) + `(?:/|$)`)
	return pattern.MatchString(gatewayURL)
}

func resolveHostedURL(cfg Config, merchantID string) string {
	raw := strings.TrimRight(cfg.gatewayURL(), "/")
	paymentMethod := strings.TrimSpace(cfg.PaymentMethod)

	// Full hosted URL already: /RMS/pay/<merchant>[/<method>].
	if !strings.Contains(raw, "{") && hostedFullURLPattern.MatchString(raw) {
		return raw
	}

	switch {
	case strings.Contains(raw, "{MerchantID}") || strings.Contains(raw, "{Payment_Method}"):
		u := strings.ReplaceAll(raw, "{MerchantID}", url.PathEscape(merchantID))
		if strings.Contains(u, "{Payment_Method}") {
			if paymentMethod != "" {
				u = strings.ReplaceAll(u, "{Payment_Method}", url.PathEscape(paymentMethod))
			} else {
				// Drop the optional segment so the gateway shows all channels.
				u = strings.ReplaceAll(u, "/{Payment_Method}", "")
				u = strings.ReplaceAll(u, "{Payment_Method}", "")
			}
		}
		return strings.TrimRight(u, "/")
	case hostedBasePattern.MatchString(raw):
		if hostedBaseEndPattern.MatchString(raw) {
			u := raw + "/" + url.PathEscape(merchantID)
			if paymentMethod != "" {
				u += "/" + url.PathEscape(paymentMethod)
			}
			return u
		}
		if hostedOneSegPattern.MatchString(raw) && paymentMethod != "" {
			return raw + "/" + url.PathEscape(paymentMethod)
		}
		return raw
	default:
		u := raw + "/RMS/pay/" + url.PathEscape(merchantID)
		if paymentMethod != "" {
			u += "/" + url.PathEscape(paymentMethod)
		}
		return u
	}
}
