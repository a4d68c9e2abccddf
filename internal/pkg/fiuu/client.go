package fiuu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const refundAPIPath = "/RMS/API/refundAPI/index.php"

// GatewayError is any refund API failure: transport errors, non-JSON
// responses and vendor error payloads. Callers must still persist a FAILED
// refund row so operators have an audit trail.
type GatewayError struct {
	Code       string
	Desc       string
	HTTPStatus int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("fiuu: refund request failed: %v", e.Err)
	case e.Code != "" || e.Desc != "":
		return strings.TrimSpace(fmt.Sprintf("fiuu: refund rejected: %s %s", e.Code, e.Desc))
	default:
		return fmt.Sprintf("fiuu: unexpected refund API response (http %d)", e.HTTPStatus)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Client talks to the gateway's non-payment APIs. It is independent of the
// HTTP framework serving inbound callbacks.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a refund API client with a hard request timeout; a
// timed-out request is treated as failed, never retried automatically
// (retries need a fresh RefID and are an operator decision).
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// RefundRequest describes one partial refund attempt. RefID is the
// caller-generated idempotency key the gateway uses to de-duplicate
// retries on its side; it must be unique per attempt.
type RefundRequest struct {
	TxnID       string
	RefID       string
	AmountCents int64
	NotifyURL   string
	MDRFlag     *int
}

// RefundResult captures the full exchange for audit logging. SignatureOK
// is tri-state: nil when the response carried no verifiable signature.
type RefundResult struct {
	HTTPStatus  int
	Request     map[string]string
	Response    map[string]any
	SignatureOK *bool
	RawBody     string
}

func respString(resp map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := resp[k]; ok && v != nil {
			s := strings.TrimSpace(fmt.Sprintf("%v", v))
			if s != "" {
				return s
			}
		}
	}
	return ""
}

// RefundPartial issues a partial refund (RefundType=P) against a captured
// transaction. A vendor error payload or malformed body yields a
// *GatewayError; a transport-level failure wraps the underlying error.
func (c *Client) RefundPartial(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if !c.cfg.IsRefundConfigured() {
		return nil, ErrNotConfigured
	}

	amountStr := FormatCents(req.AmountCents)
	signature := BuildRefundRequestSignature(RefundSignatureInput{
		RefundType: "P",
		MerchantID: c.cfg.MerchantID,
		RefID:      req.RefID,
		TxnID:      req.TxnID,
		Amount:     amountStr,
	}, c.cfg.SecretKey)

	form := url.Values{}
	form.Set("RefundType", "P")
	form.Set("MerchantID", c.cfg.MerchantID)
	form.Set("RefID", req.RefID)
	form.Set("TxnID", req.TxnID)
	form.Set("Amount", amountStr)
	form.Set("Signature", signature)
	if req.MDRFlag != nil {
		form.Set("mdr_flag", strconv.Itoa(*req.MDRFlag))
	}
	if req.NotifyURL != "" {
		form.Set("notify_url", req.NotifyURL)
	}

	endpoint := c.cfg.apiBase() + refundAPIPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &GatewayError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{HTTPStatus: httpResp.StatusCode, Err: err}
	}

	requestFields := map[string]string{
		"RefundType": "P",
		"MerchantID": c.cfg.MerchantID,
		"RefID":      req.RefID,
		"TxnID":      req.TxnID,
		"Amount":     amountStr,
		"Signature":  signature,
	}
	if req.NotifyURL != "" {
		requestFields["notify_url"] = req.NotifyURL
	}

	var resp map[string]any
	if err := json.Unmarshal(rawBody, &resp); err != nil {
		return nil, &GatewayError{
			HTTPStatus: httpResp.StatusCode,
			Body:       truncate(string(rawBody), 2000),
		}
	}

	if code, desc := respString(resp, "error_code"), respString(resp, "error_desc"); code != "" || desc != "" {
		return nil, &GatewayError{
			Code:       code,
			Desc:       desc,
			HTTPStatus: httpResp.StatusCode,
			Body:       truncate(string(rawBody), 2000),
		}
	}

	result := &RefundResult{
		HTTPStatus: httpResp.StatusCode,
		Request:    requestFields,
		Response:   resp,
		RawBody:    string(rawBody),
	}

	// Verify the response's own signature when present. A mismatch only
	// annotates the attempt; the refund is a request, not a completion.
	refundID := respString(resp, "RefundID", "refundID", "refundId")
	status := respString(resp, "Status", "status")
	respSig := respString(resp, "Signature", "signature")
	if refundID != "" && status != "" && respSig != "" {
		expected := BuildRefundResponseSignature(RefundSignatureInput{
			RefundType: firstNonEmpty(respString(resp, "RefundType"), "P"),
			MerchantID: firstNonEmpty(respString(resp, "MerchantID"), c.cfg.MerchantID),
			RefID:      firstNonEmpty(respString(resp, "RefID"), req.RefID),
			RefundID:   refundID,
			TxnID:      firstNonEmpty(respString(resp, "TxnID"), req.TxnID),
			Amount:     firstNonEmpty(respString(resp, "Amount"), amountStr),
			Status:     status,
		}, c.cfg.SecretKey)
		ok := strings.EqualFold(expected, respSig)
		result.SignatureOK = &ok
	}

	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
