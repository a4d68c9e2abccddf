package fiuu

import "strings"

// Payload is a flattened form-encoded gateway payload (query + body merged).
type Payload map[string]string

// Known gateway field aliases. The gateway and its relays are not
// consistent about key casing across integrations, so every lookup goes
// through this table instead of ad hoc string matching.
var (
	aliasTranID      = []string{"tranID", "tranId", "tranid", "tran_id", "txnID", "txnId", "txnid", "txn_id"}
	aliasOrderID     = []string{"orderid", "orderId", "orderID", "order"}
	aliasStatus      = []string{"status", "stat"}
	aliasDomain      = []string{"domain"}
	aliasMerchantID  = []string{"merchant_id", "merchantId", "merchantID", "MerchantID"}
	aliasAmount      = []string{"amount", "amt"}
	aliasCurrency    = []string{"currency", "cur"}
	aliasAppcode     = []string{"appcode", "app_code", "appCode"}
	aliasPaydate     = []string{"paydate", "pay_date", "payDate"}
	aliasSkey        = []string{"skey", "sKey", "SKEY"}
	aliasChannel     = []string{"channel", "Channel"}
	aliasRefundType  = []string{"RefundType", "refundType"}
	aliasRefID       = []string{"RefID", "refId", "refID", "refid", "RefId"}
	aliasRefundID    = []string{"RefundID", "refundID", "refundId", "RefundId"}
	aliasRefTxnID    = []string{"TxnID", "txnID", "txnId", "tranID", "tranId", "txnid"}
	aliasRefAmount   = []string{"Amount", "amount"}
	aliasRefStatus   = []string{"Status", "status"}
	aliasSignature   = []string{"Signature", "signature"}
	aliasNotifReason = []string{"Reason", "reason", "error_desc", "errorDesc"}
)

// Field returns the first non-empty value for any of the given keys,
// preferring exact key matches and falling back to case-insensitive ones.
func (p Payload) Field(names ...string) string {
	for _, name := range names {
		if v, ok := p[name]; ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	for k, v := range p {
		lk := strings.ToLower(k)
		for _, name := range names {
			if lk == strings.ToLower(name) && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// OrderRef extracts the order reference from a confirmation payload.
func (p Payload) OrderRef() string {
	return p.Field(aliasOrderID...)
}

// Channel extracts the gateway-reported payment sub-channel, if present.
func (p Payload) Channel() string {
	return p.Field(aliasChannel...)
}

// TranID extracts the gateway transaction id.
func (p Payload) TranID() string {
	return p.Field(aliasTranID...)
}

// StatusCode extracts the two-digit gateway status code.
func (p Payload) StatusCode() string {
	return p.Field(aliasStatus...)
}

// Amount extracts the amount string as sent by the gateway.
func (p Payload) Amount() string {
	return p.Field(aliasAmount...)
}

// Currency extracts the currency as sent by the gateway.
func (p Payload) Currency() string {
	return p.Field(aliasCurrency...)
}

// Refund notify accessors.

func (p Payload) RefID() string        { return p.Field(aliasRefID...) }
func (p Payload) RefundID() string     { return p.Field(aliasRefundID...) }
func (p Payload) RefundTxnID() string  { return p.Field(aliasRefTxnID...) }
func (p Payload) RefundAmount() string { return p.Field(aliasRefAmount...) }
func (p Payload) RefundStatus() string { return p.Field(aliasRefStatus...) }
func (p Payload) NotifyReason() string { return p.Field(aliasNotifReason...) }
