package fiuu

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// The gateway mandates MD5 over bare concatenation for all of its
// signatures. This is vendor wire format, not a security boundary we get
// to choose; it must stay bit-for-bit compatible.
func md5Hex(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

// BuildVcode builds the outbound hosted-payment request signature.
func BuildVcode(amountStr, merchantID, orderRef, verifyKey, currency, mode string) string {
	if strings.ToLower(mode) == VcodeModeExtended {
		return md5Hex(amountStr + merchantID + orderRef + verifyKey + currency)
	}
	return md5Hex(amountStr + merchantID + orderRef + verifyKey)
}

// RefundSignatureInput carries the fields of the refund request signature.
type RefundSignatureInput struct {
	RefundType string
	MerchantID string
	RefID      string
	RefundID   string
	TxnID      string
	Amount     string
	Status     string
}

// BuildRefundRequestSignature signs an outbound refund API request.
func BuildRefundRequestSignature(in RefundSignatureInput, secretKey string) string {
	return md5Hex(in.RefundType + in.MerchantID + in.RefID + in.TxnID + in.Amount + secretKey)
}

// BuildRefundResponseSignature computes the signature the gateway attaches
// to refund API responses and refund notify callbacks.
func BuildRefundResponseSignature(in RefundSignatureInput, secretKey string) string {
	return md5Hex(in.RefundType + in.MerchantID + in.RefID + in.RefundID + in.TxnID + in.Amount + in.Status + secretKey)
}

// SkeyMatch records which candidate combination matched (or, on failure,
// the first candidates tried) so production logs can narrow the variant
// space the live gateway actually uses.
type SkeyMatch struct {
	TranID     string
	OrderRef   string
	Status     string
	MerchantID string
	Amount     string
	Currency   string
	Appcode    string
	PayDate    string
	Attempts   int

	MerchantCandidates []string
	AmountCandidates   []string
	CurrencyCandidates []string
}

// SkeyResult is the structured outcome of inbound confirmation
// verification. It never carries a Go error: malformed input yields
// OK=false with a reason the caller can log and drop.
type SkeyResult struct {
	OK       bool
	Reason   string
	Expected string
	Received string
	Used     SkeyMatch
}

func appendUnique(dst []string, v string) []string {
	if v == "" {
		return dst
	}
	for _, existing := range dst {
		if existing == v {
			return dst
		}
	}
	return append(dst, v)
}

// amountVariants returns the bounded set of amount encodings the gateway
// has been observed to sign: as received, comma-stripped, numeric form and
// the canonical two-decimal string.
func amountVariants(raw string) []string {
	var out []string
	raw = strings.TrimSpace(raw)
	out = appendUnique(out, raw)

	deComma := strings.ReplaceAll(raw, ",", "")
	out = appendUnique(out, deComma)

	if n, err := strconv.ParseFloat(deComma, 64); err == nil {
		out = appendUnique(out, strconv.FormatFloat(n, 'f', -1, 64))
		out = appendUnique(out, strconv.FormatFloat(n, 'f', 2, 64))
	}
	return out
}

func currencyVariants(raw, fallback string) []string {
	var out []string
	raw = strings.TrimSpace(raw)
	fallback = strings.TrimSpace(fallback)
	if raw != "" {
		out = appendUnique(out, raw)
		out = appendUnique(out, strings.ToUpper(raw))
	}
	if fallback != "" {
		out = appendUnique(out, fallback)
		out = appendUnique(out, strings.ToUpper(fallback))
	}
	return out
}

// VerifySkey verifies a payment confirmation callback.
//
// Two-stage hash per vendor spec:
//
//	pre  = md5(tranID + orderRef + status + merchantID + amount + currency)
//	skey = md5(paydate + merchantID + pre + appcode + secretKey)
//
// Because the gateway's exact encoding of amount, currency and merchant id
// is not predictable, verification tries a bounded Cartesian product of
// normalized candidates and accepts on the first exact match.
func VerifySkey(payload Payload, secretKey string, cfg Config) SkeyResult {
	tranID := payload.Field(aliasTranID...)
	orderRef := payload.Field(aliasOrderID...)
	status := payload.Field(aliasStatus...)
	appcode := payload.Field(aliasAppcode...)
	paydate := payload.Field(aliasPaydate...)
	skey := payload.Field(aliasSkey...)

	// Merchant id arrives in `domain` per spec, but some integrations use
	// an explicit merchant field; the configured id is the last resort.
	var merchants []string
	merchants = appendUnique(merchants, payload.Field(aliasDomain...))
	merchants = appendUnique(merchants, payload.Field(aliasMerchantID...))
	merchants = appendUnique(merchants, strings.TrimSpace(cfg.MerchantID))

	amounts := amountVariants(payload.Field(aliasAmount...))
	currencies := currencyVariants(payload.Field(aliasCurrency...), cfg.currency())

	var missing []string
	if tranID == "" {
		missing = append(missing, "tranID")
	}
	if orderRef == "" {
		missing = append(missing, "orderid")
	}
	if status == "" {
		missing = append(missing, "status")
	}
	if len(merchants) == 0 {
		missing = append(missing, "domain")
	}
	if len(amounts) == 0 {
		missing = append(missing, "amount")
	}
	if len(currencies) == 0 {
		missing = append(missing, "currency")
	}
	if paydate == "" {
		missing = append(missing, "paydate")
	}
	if skey == "" {
		missing = append(missing, "skey")
	}
	if len(missing) > 0 {
		return SkeyResult{OK: false, Reason: "missing_fields:" + strings.Join(missing, ",")}
	}

	appcodes := []string{appcode}
	if appcode != "" {
		// Some payloads omit appcode from the hash even when present.
		appcodes = append(appcodes, "")
	}

	receivedLower := strings.ToLower(skey)
	attempts := 0

	for _, merchantID := range merchants {
		for _, amount := range amounts {
			for _, currency := range currencies {
				for _, ac := range appcodes {
					attempts++
					pre := md5Hex(tranID + orderRef + status + merchantID + amount + currency)
					expected := md5Hex(paydate + merchantID + pre + ac + secretKey)
					if strings.ToLower(expected) == receivedLower {
						return SkeyResult{
							OK:       true,
							Expected: expected,
							Received: skey,
							Used: SkeyMatch{
								TranID:     tranID,
								OrderRef:   orderRef,
								Status:     status,
								MerchantID: merchantID,
								Amount:     amount,
								Currency:   currency,
								Appcode:    ac,
								PayDate:    paydate,
								Attempts:   attempts,
							},
						}
					}
				}
			}
		}
	}

	// Deterministic "expected" from the first candidates for log forensics.
	pre0 := md5Hex(tranID + orderRef + status + merchants[0] + amounts[0] + currencies[0])
	expected0 := md5Hex(paydate + merchants[0] + pre0 + appcodes[0] + secretKey)

	return SkeyResult{
		OK:       false,
		Reason:   "mismatch",
		Expected: expected0,
		Received: skey,
		Used: SkeyMatch{
			TranID:             tranID,
			OrderRef:           orderRef,
			Status:             status,
			MerchantID:         merchants[0],
			Amount:             amounts[0],
			Currency:           currencies[0],
			Appcode:            appcodes[0],
			PayDate:            paydate,
			Attempts:           attempts,
			MerchantCandidates: merchants,
			AmountCandidates:   amounts,
			CurrencyCandidates: currencies,
		},
	}
}

// RefundSigResult is the structured outcome of refund response/notify
// signature verification.
type RefundSigResult struct {
	OK       bool
	Reason   string
	Expected string
	Received string
	Used     RefundSignatureInput
}

// VerifyRefundSignature verifies a refund API response or refund notify
// callback. Refund payloads are vendor-consistent, so this is a single
// deterministic hash with no candidate search.
func VerifyRefundSignature(payload Payload, secretKey string) RefundSigResult {
	in := RefundSignatureInput{
		RefundType: payload.Field(aliasRefundType...),
		MerchantID: payload.Field(aliasMerchantID...),
		RefID:      payload.Field(aliasRefID...),
		RefundID:   payload.Field(aliasRefundID...),
		TxnID:      payload.Field(aliasRefTxnID...),
		Amount:     payload.Field(aliasRefAmount...),
		Status:     payload.Field(aliasRefStatus...),
	}
	signature := payload.Field(aliasSignature...)

	var missing []string
	if in.RefundType == "" {
		missing = append(missing, "RefundType")
	}
	if in.MerchantID == "" {
		missing = append(missing, "MerchantID")
	}
	if in.RefID == "" {
		missing = append(missing, "RefID")
	}
	if in.RefundID == "" {
		missing = append(missing, "RefundID")
	}
	if in.TxnID == "" {
		missing = append(missing, "TxnID")
	}
	if in.Amount == "" {
		missing = append(missing, "Amount")
	}
	if in.Status == "" {
		missing = append(missing, "Status")
	}
	if signature == "" {
		missing = append(missing, "Signature")
	}
	if len(missing) > 0 {
		return RefundSigResult{OK: false, Reason: "missing_fields:" + strings.Join(missing, ",")}
	}

	expected := BuildRefundResponseSignature(in, secretKey)
	res := RefundSigResult{
		Expected: expected,
		Received: signature,
		Used:     in,
	}
	if strings.EqualFold(expected, signature) {
		res.OK = true
	} else {
		res.Reason = "mismatch"
	}
	return res
}

// StatusToPaymentStatus maps the gateway status code to the order payment
// status: 00 success, 22 pending, anything else failed.
func StatusToPaymentStatus(code string) string {
	switch code {
	case "00":
		return "PAID"
	case "22":
		return "PENDING"
	default:
		return "FAILED"
	}
}
