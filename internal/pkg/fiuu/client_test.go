package fiuu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refundClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.APIBase = srv.URL
	return NewClient(cfg), srv
}

func TestRefundPartialSuccess(t *testing.T) {
	var gotForm map[string]string

	client, _ := refundClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}

		cfg := testConfig()
		resp := map[string]any{
			"RefundType": "P",
			"MerchantID": cfg.MerchantID,
			"RefID":      r.PostForm.Get("RefID"),
			"RefundID":   "555001",
			"TxnID":      r.PostForm.Get("TxnID"),
			"Amount":     r.PostForm.Get("Amount"),
			"Status":     "22",
		}
		resp["Signature"] = BuildRefundResponseSignature(RefundSignatureInput{
			RefundType: "P",
			MerchantID: cfg.MerchantID,
			RefID:      r.PostForm.Get("RefID"),
			RefundID:   "555001",
			TxnID:      r.PostForm.Get("TxnID"),
			Amount:     r.PostForm.Get("Amount"),
			Status:     "22",
		}, cfg.SecretKey)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	mdr := 0
	result, err := client.RefundPartial(context.Background(), RefundRequest{
		TxnID:       "T100",
		RefID:       "refund-PB-1-2-AAAA1111",
		AmountCents: 1550,
		NotifyURL:   "https://shop.example.com/payment/refund/notify",
		MDRFlag:     &mdr,
	})
	require.NoError(t, err)

	assert.Equal(t, "P", gotForm["RefundType"])
	assert.Equal(t, "15.50", gotForm["Amount"])
	assert.Equal(t, "0", gotForm["mdr_flag"])
	assert.Equal(t, "https://shop.example.com/payment/refund/notify", gotForm["notify_url"])
	assert.Equal(t, BuildRefundRequestSignature(RefundSignatureInput{
		RefundType: "P",
		MerchantID: testConfig().MerchantID,
		RefID:      "refund-PB-1-2-AAAA1111",
		TxnID:      "T100",
		Amount:     "15.50",
	}, testConfig().SecretKey), gotForm["Signature"])

	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Equal(t, "555001", result.Response["RefundID"])
	require.NotNil(t, result.SignatureOK)
	assert.True(t, *result.SignatureOK)
}

func TestRefundPartialVendorError(t *testing.T) {
	client, _ := refundClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"error_code":"REFUND_ERROR","error_desc":"Transaction not refundable"}`))
	})

	_, err := client.RefundPartial(context.Background(), RefundRequest{
		TxnID: "T1", RefID: "r1", AmountCents: 100,
	})
	require.Error(t, err)

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, "REFUND_ERROR", gatewayErr.Code)
	assert.Equal(t, "Transaction not refundable", gatewayErr.Desc)
}

func TestRefundPartialNonJSONBody(t *testing.T) {
	client, _ := refundClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>gateway exploded</html>"))
	})

	_, err := client.RefundPartial(context.Background(), RefundRequest{
		TxnID: "T1", RefID: "r1", AmountCents: 100,
	})
	require.Error(t, err)

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, http.StatusBadGateway, gatewayErr.HTTPStatus)
	assert.Contains(t, gatewayErr.Body, "gateway exploded")
}

func TestRefundPartialTamperedResponseSignature(t *testing.T) {
	client, _ := refundClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"RefundID":"1","Status":"00","Signature":"ffffffffffffffffffffffffffffffff"}`))
	})

	result, err := client.RefundPartial(context.Background(), RefundRequest{
		TxnID: "T1", RefID: "r1", AmountCents: 100,
	})
	require.NoError(t, err)
	require.NotNil(t, result.SignatureOK)
	assert.False(t, *result.SignatureOK)
}

func TestRefundPartialNotConfigured(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.RefundPartial(context.Background(), RefundRequest{TxnID: "T1", RefID: "r1"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
