// Package payment implements the append-only, idempotent ledger of inbound
// gateway events. A duplicate callback is a normal outcome here, not an
// error: the unique insert is what makes at-least-once delivery safe.
package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/khairulanwar/PasarBox/app/models"
)

// InsertResult reports whether a payload was seen for the first time.
type InsertResult struct {
	Inserted    bool
	EventID     uint
	PayloadHash string
}

// Ledger gates event processing on a unique (provider, txn id, payload
// hash) insert.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// HashPayload computes a stable, key-order-independent hash of a callback
// payload: sorted keys joined as k=v&... and SHA-256 hashed.
func HashPayload(payload map[string]string) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(payload[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// TryInsert records an inbound event. A uniqueness collision is reported
// as Inserted=false with no error so callers can skip side effects for
// replayed callbacks.
func (l *Ledger) TryInsert(orderID uint, provider, providerTxnID string, payload map[string]string, verified bool) (InsertResult, error) {
	payloadJSON, _ := json.Marshal(payload)
	event := &models.PaymentEvent{
		OrderID:       orderID,
		Provider:      provider,
		ProviderTxnID: strings.TrimSpace(providerTxnID),
		PayloadHash:   HashPayload(payload),
		PayloadJSON:   string(payloadJSON),
		Verified:      verified,
	}

	created, stored, err := l.repo.CreateEventIfNotExists(event)
	if err != nil {
		return InsertResult{}, err
	}
	res := InsertResult{Inserted: created, PayloadHash: event.PayloadHash}
	if stored != nil {
		res.EventID = stored.ID
	}
	return res, nil
}

// LatestVerifiedTxnID returns the most recent verified gateway transaction
// id for an order; the refund path refunds against it.
func (l *Ledger) LatestVerifiedTxnID(orderID uint, provider string) (string, error) {
	return l.repo.LatestVerifiedTxnID(orderID, provider)
}
