package refund

import (
	"context"
	"strings"
	"testing"

	"github.com/khairulanwar/PasarBox/app/models"
	"github.com/khairulanwar/PasarBox/internal/pkg/fiuu"
	"github.com/khairulanwar/PasarBox/internal/pkg/orders"
	"github.com/khairulanwar/PasarBox/internal/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeStore is an in-memory refund Repository. Summaries mirror the SQL
// confirmed/in-flight conditions.
type fakeStore struct {
	itemRows  []*models.OrderItemRefund
	orderRows []*models.OrderRefund
	nextID    uint
}

func (f *fakeStore) Transaction(fn func(Repository) error) error { return fn(f) }

func (f *fakeStore) CreateItemRefund(row *models.OrderItemRefund) error {
	f.nextID++
	row.ID = f.nextID
	f.itemRows = append(f.itemRows, row)
	return nil
}

func (f *fakeStore) CreateOrderRefund(row *models.OrderRefund) error {
	f.nextID++
	row.ID = f.nextID
	f.orderRows = append(f.orderRows, row)
	return nil
}

func inFlightStatus(provider, status string) bool {
	if provider != models.PaymentProviderFiuu {
		return true
	}
	switch status {
	case "", models.RefundProviderStatusPending, models.RefundProviderStatusConfirmed:
		return true
	}
	return false
}

func (f *fakeStore) ItemRefundSummaryInFlight(orderItemID uint) (Summary, error) {
	var s Summary
	for _, r := range f.itemRows {
		if r.OrderItemID == orderItemID && inFlightStatus(r.Provider, r.ProviderStatus) {
			s.Quantity += r.QuantityRefunded
			s.Amount += r.AmountRefunded
		}
	}
	return s, nil
}

func (f *fakeStore) OrderItemRefundsSummaryInFlight(orderID uint) (Summary, error) {
	var s Summary
	for _, r := range f.itemRows {
		if r.OrderID == orderID && inFlightStatus(r.Provider, r.ProviderStatus) {
			s.Quantity += r.QuantityRefunded
			s.Amount += r.AmountRefunded
		}
	}
	return s, nil
}

func (f *fakeStore) OrderRefundsSummaryInFlight(orderID uint) (Summary, error) {
	var s Summary
	for _, r := range f.orderRows {
		if r.OrderID == orderID && inFlightStatus(r.Provider, r.ProviderStatus) {
			s.Amount += r.AmountRefunded
		}
	}
	return s, nil
}

func (f *fakeStore) OrderItemRefundsSummaryConfirmed(orderID uint) (Summary, error) {
	var s Summary
	for _, r := range f.itemRows {
		if r.OrderID == orderID && r.Provenance().Confirmed() {
			s.Quantity += r.QuantityRefunded
			s.Amount += r.AmountRefunded
		}
	}
	return s, nil
}

func (f *fakeStore) OrderRefundsSummaryConfirmed(orderID uint) (Summary, error) {
	var s Summary
	for _, r := range f.orderRows {
		if r.OrderID == orderID && r.Provenance().Confirmed() {
			s.Amount += r.AmountRefunded
		}
	}
	return s, nil
}

func applyItemUpdate(row *models.OrderItemRefund, u GatewayUpdate) {
	if u.ProviderRefundID != "" && row.ProviderRefundID == "" {
		row.ProviderRefundID = u.ProviderRefundID
	}
	if u.ProviderTxnID != "" && row.ProviderTxnID == "" {
		row.ProviderTxnID = u.ProviderTxnID
	}
	if u.ProviderStatus != "" {
		row.ProviderStatus = u.ProviderStatus
	}
	if u.ProviderReason != "" {
		row.ProviderReason = u.ProviderReason
	}
	if u.SignatureOk != nil {
		ok := *u.SignatureOk
		row.ProviderSignatureOk = &ok
	}
	if u.ResponseJSON != "" {
		row.ProviderResponse = u.ResponseJSON
	}
}

func applyOrderUpdate(row *models.OrderRefund, u GatewayUpdate) {
	if u.ProviderRefundID != "" && row.ProviderRefundID == "" {
		row.ProviderRefundID = u.ProviderRefundID
	}
	if u.ProviderTxnID != "" && row.ProviderTxnID == "" {
		row.ProviderTxnID = u.ProviderTxnID
	}
	if u.ProviderStatus != "" {
		row.ProviderStatus = u.ProviderStatus
	}
	if u.ProviderReason != "" {
		row.ProviderReason = u.ProviderReason
	}
	if u.SignatureOk != nil {
		ok := *u.SignatureOk
		row.ProviderSignatureOk = &ok
	}
	if u.ResponseJSON != "" {
		row.ProviderResponse = u.ResponseJSON
	}
}

func (f *fakeStore) UpdateItemRefundByRefID(refID string, u GatewayUpdate) (*models.OrderItemRefund, error) {
	for _, r := range f.itemRows {
		if r.Provider == u.Provider && r.ProviderRefID == refID {
			applyItemUpdate(r, u)
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateOrderRefundByRefID(refID string, u GatewayUpdate) (*models.OrderRefund, error) {
	for _, r := range f.orderRows {
		if r.Provider == u.Provider && r.ProviderRefID == refID {
			applyOrderUpdate(r, u)
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateItemRefundByRefundID(refundID string, u GatewayUpdate) (*models.OrderItemRefund, error) {
	for _, r := range f.itemRows {
		if r.Provider == u.Provider && r.ProviderRefundID == refundID {
			applyItemUpdate(r, u)
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateOrderRefundByRefundID(refundID string, u GatewayUpdate) (*models.OrderRefund, error) {
	for _, r := range f.orderRows {
		if r.Provider == u.Provider && r.ProviderRefundID == refundID {
			applyOrderUpdate(r, u)
			return r, nil
		}
	}
	return nil, nil
}

// stubOrders serves exactly one order.
type stubOrders struct {
	order   *models.Order
	promo   *models.OrderPromo
	history []models.OrderStatusHistory
}

func (s *stubOrders) Transaction(fn func(orders.Repository) error) error { return fn(s) }

func (s *stubOrders) GetWithItems(orderID uint) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrders) GetByCode(code string) (*models.Order, error) {
	if s.order == nil || s.order.OrderCode != code {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrders) GetPromo(orderID uint) (*models.OrderPromo, error) {
	if s.promo == nil || s.promo.OrderID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.promo, nil
}

func (s *stubOrders) Create(order *models.Order) error           { return nil }
func (s *stubOrders) CreatePromo(promo *models.OrderPromo) error { return nil }

func (s *stubOrders) SetPaymentStatus(orderID uint, status string) error {
	s.order.PaymentStatus = status
	return nil
}

func (s *stubOrders) SetFulfilmentStatus(orderID uint, status string) error {
	s.order.FulfilStatus = status
	return nil
}

func (s *stubOrders) SetRefundStatus(orderID uint, status string) error {
	s.order.RefundStatus = status
	return nil
}

func (s *stubOrders) SetPaymentChannel(orderID uint, channel string) error {
	s.order.PaymentChannel = channel
	return nil
}

func (s *stubOrders) AppendStatusHistory(row *models.OrderStatusHistory) error {
	s.history = append(s.history, *row)
	return nil
}

func (s *stubOrders) DeductStock(productID uint, qty int) (bool, error) { return true, nil }

func (s *stubOrders) RestoreStock(productID uint, qty int) error { return nil }

func (s *stubOrders) GetProduct(productID uint) (*models.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrders) CreateNotification(n *models.AdminNotification) error { return nil }

// fakeEvents backs the payment ledger.
type fakeEvents struct {
	events []*models.PaymentEvent
	nextID uint
}

func (f *fakeEvents) CreateEventIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	f.nextID++
	stored := *event
	stored.ID = f.nextID
	f.events = append(f.events, &stored)
	return true, &stored, nil
}

func (f *fakeEvents) LatestVerifiedTxnID(orderID uint, provider string) (string, error) {
	for i := len(f.events) - 1; i >= 0; i-- {
		e := f.events[i]
		if e.OrderID == orderID && e.Provider == provider && e.Verified && e.ProviderTxnID != "" {
			return e.ProviderTxnID, nil
		}
	}
	return "", nil
}

type fakeGateway struct {
	requests []fiuu.RefundRequest
	result   *fiuu.RefundResult
	err      error
}

func (g *fakeGateway) RefundPartial(ctx context.Context, req fiuu.RefundRequest) (*fiuu.RefundResult, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if g.result != nil {
		return g.result, nil
	}
	return &fiuu.RefundResult{
		Response: map[string]any{"RefundID": "555001", "Status": "22"},
	}, nil
}

type fixture struct {
	svc    *Service
	store  *fakeStore
	orders *stubOrders
	gw     *fakeGateway
}

func paidOrder() *models.Order {
	return &models.Order{
		ID:            1,
		OrderCode:     "PB-20250101-ABCD1234",
		PaymentMethod: models.PaymentMethodOnline,
		PaymentStatus: models.PaymentStatusPaid,
		RefundStatus:  models.RefundStatusNone,
		ItemsSubtotal: 10000,
		TotalAmount:   10000,
		Items: []models.OrderItem{
			{ID: 1, OrderID: 1, ProductID: 7, ProductName: "Sambal Hitam", PriceSnapshot: 1500, Quantity: 2, Subtotal: 3000},
			{ID: 2, OrderID: 1, ProductID: 8, ProductName: "Gift Box", PriceSnapshot: 4000, Quantity: 1, Subtotal: 4000},
			{ID: 3, OrderID: 1, ProductID: 9, ProductName: "Sampler", PriceSnapshot: 1000, Quantity: 3, Subtotal: 3000},
		},
	}
}

func newFixture(t *testing.T, order *models.Order) *fixture {
	t.Helper()

	events := &fakeEvents{}
	ledger := payment.NewLedger(events)
	if order != nil {
		_, err := ledger.TryInsert(order.ID, models.PaymentProviderFiuu, "T100",
			map[string]string{"status": "00"}, true)
		require.NoError(t, err)
	}

	f := &fixture{
		store:  &fakeStore{},
		orders: &stubOrders{order: order},
		gw:     &fakeGateway{},
	}
	cfg := fiuu.Config{MerchantID: "pasarbox_dev", VerifyKey: "verify123", SecretKey: "secret456", Currency: "MYR"}
	f.svc = NewService(f.store, f.orders, ledger, f.gw, cfg, "https://shop.example.com/")
	return f
}

func TestRefundOrderItemSuccess(t *testing.T) {
	f := newFixture(t, paidOrder())

	outcome, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{
		OrderID:     1,
		OrderItemID: 1,
		Quantity:    1,
		Reason:      "damaged in transit",
	})
	require.NoError(t, err)

	require.Len(t, f.gw.requests, 1)
	req := f.gw.requests[0]
	assert.Equal(t, "T100", req.TxnID)
	assert.Equal(t, int64(1500), req.AmountCents)
	assert.Equal(t, "https://shop.example.com/payment/refund/notify", req.NotifyURL)
	assert.True(t, strings.HasPrefix(req.RefID, "refund-PB-20250101-ABCD1234-1-"))

	row := outcome.ItemRefund
	require.NotNil(t, row)
	assert.Equal(t, models.RefundProviderStatusPending, row.ProviderStatus)
	assert.Equal(t, "555001", row.ProviderRefundID)
	assert.Equal(t, 1, row.QuantityRefunded)
	assert.Equal(t, int64(1500), row.AmountRefunded)
	assert.Equal(t, "damaged in transit", row.Reason)

	// A pending request confirms nothing yet.
	require.NotNil(t, outcome.Status)
	assert.Equal(t, models.RefundStatusNone, outcome.Status.RefundStatus)
	assert.Zero(t, outcome.Status.RefundedAmount)
	assert.Equal(t, models.PaymentStatusPaid, f.orders.order.PaymentStatus)
}

func TestRefundOrderItemGatewayFailureRecordsRow(t *testing.T) {
	f := newFixture(t, paidOrder())
	f.gw.err = &fiuu.GatewayError{Code: "REFUND_ERROR", Desc: "Transaction not refundable"}

	_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{
		OrderID: 1, OrderItemID: 1, Quantity: 1,
	})
	require.Error(t, err)

	var gatewayErr *fiuu.GatewayError
	require.ErrorAs(t, err, &gatewayErr)

	require.Len(t, f.store.itemRows, 1)
	row := f.store.itemRows[0]
	assert.Equal(t, models.RefundProviderStatusFailed, row.ProviderStatus)
	assert.Contains(t, row.ProviderResponse, "REFUND_ERROR")

	// Failed attempts never count towards ceilings.
	summary, serr := f.store.ItemRefundSummaryInFlight(1)
	require.NoError(t, serr)
	assert.Zero(t, summary.Quantity)
}

func TestRefundOrderItemQuantityCeiling(t *testing.T) {
	f := newFixture(t, paidOrder())

	_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{
		OrderID: 1, OrderItemID: 1, Quantity: 1,
	})
	require.NoError(t, err)

	// One of two units is pending; two more would oversubscribe the line.
	_, err = f.svc.RefundOrderItem(context.Background(), ItemRefundInput{
		OrderID: 1, OrderItemID: 1, Quantity: 2,
	})
	assert.ErrorIs(t, err, ErrQuantityExceeds)

	// The last unit still fits.
	_, err = f.svc.RefundOrderItem(context.Background(), ItemRefundInput{
		OrderID: 1, OrderItemID: 1, Quantity: 1,
	})
	assert.NoError(t, err)
}

func TestRefundOrderItemAmountCeiling(t *testing.T) {
	f := newFixture(t, paidOrder())

	over := int64(3500)
	_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{
		OrderID: 1, OrderItemID: 1, Quantity: 2, Amount: &over,
	})
	assert.ErrorIs(t, err, ErrAmountExceeds)

	exact := int64(3000)
	_, err = f.svc.RefundOrderItem(context.Background(), ItemRefundInput{
		OrderID: 1, OrderItemID: 1, Quantity: 2, Amount: &exact,
	})
	assert.NoError(t, err)
}

func TestRefundOrderItemValidation(t *testing.T) {
	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t, paidOrder())
		_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{OrderID: 99, OrderItemID: 1, Quantity: 1})
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("offline order", func(t *testing.T) {
		order := paidOrder()
		order.PaymentMethod = models.PaymentMethodOfflineTransfer
		f := newFixture(t, order)
		_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{OrderID: 1, OrderItemID: 1, Quantity: 1})
		assert.ErrorIs(t, err, ErrWrongPaymentMethod)
	})

	t.Run("fpx channel", func(t *testing.T) {
		order := paidOrder()
		order.PaymentChannel = "fpx_mb2u"
		f := newFixture(t, order)
		_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{OrderID: 1, OrderItemID: 1, Quantity: 1})
		assert.ErrorIs(t, err, ErrFPXNotRefundable)
	})

	t.Run("unpaid order", func(t *testing.T) {
		order := paidOrder()
		order.PaymentStatus = models.PaymentStatusPending
		f := newFixture(t, order)
		_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{OrderID: 1, OrderItemID: 1, Quantity: 1})
		assert.ErrorIs(t, err, ErrOrderNotPaid)
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newFixture(t, paidOrder())
		_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{OrderID: 1, OrderItemID: 42, Quantity: 1})
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("zero quantity", func(t *testing.T) {
		f := newFixture(t, paidOrder())
		_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{OrderID: 1, OrderItemID: 1, Quantity: 0})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("refund api not configured", func(t *testing.T) {
		f := newFixture(t, paidOrder())
		f.svc.cfg = fiuu.Config{}
		_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{OrderID: 1, OrderItemID: 1, Quantity: 1})
		assert.ErrorIs(t, err, fiuu.ErrNotConfigured)
	})
}

func TestRefundOrderItemMissingTxnID(t *testing.T) {
	f := newFixture(t, paidOrder())
	f.svc.ledger = payment.NewLedger(&fakeEvents{})

	_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{OrderID: 1, OrderItemID: 1, Quantity: 1})
	assert.ErrorIs(t, err, ErrMissingTxnID)
	assert.Empty(t, f.gw.requests)
}

func TestRefundOrderExtra(t *testing.T) {
	f := newFixture(t, paidOrder())

	_, err := f.svc.RefundOrderExtra(context.Background(), ExtraRefundInput{OrderID: 1, Amount: 0})
	assert.ErrorIs(t, err, ErrAmountRequired)

	_, err = f.svc.RefundOrderExtra(context.Background(), ExtraRefundInput{OrderID: 1, Amount: 10001})
	assert.ErrorIs(t, err, ErrAmountExceeds)

	outcome, err := f.svc.RefundOrderExtra(context.Background(), ExtraRefundInput{
		OrderID: 1, Amount: 800, Reason: "shipping credit",
	})
	require.NoError(t, err)

	row := outcome.OrderRefund
	require.NotNil(t, row)
	assert.Equal(t, int64(800), row.AmountRefunded)
	assert.Equal(t, models.RefundProviderStatusPending, row.ProviderStatus)
	assert.True(t, strings.HasPrefix(row.ProviderRefID, "refund-extra-PB-20250101-ABCD1234-"))
}

func TestRefundOrderExtraCeilingCountsPendingItems(t *testing.T) {
	f := newFixture(t, paidOrder())

	_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{
		OrderID: 1, OrderItemID: 2, Quantity: 1,
	})
	require.NoError(t, err)

	// 4000 pending on the item leaves 6000 refundable against the order.
	_, err = f.svc.RefundOrderExtra(context.Background(), ExtraRefundInput{OrderID: 1, Amount: 6001})
	assert.ErrorIs(t, err, ErrAmountExceeds)

	_, err = f.svc.RefundOrderExtra(context.Background(), ExtraRefundInput{OrderID: 1, Amount: 6000})
	assert.NoError(t, err)
}

func confirmedItemRefund(orderID, itemID uint, amount int64) *models.OrderItemRefund {
	ok := true
	return &models.OrderItemRefund{
		OrderID:             orderID,
		OrderItemID:         itemID,
		QuantityRefunded:    1,
		AmountRefunded:      amount,
		Provider:            models.PaymentProviderFiuu,
		ProviderStatus:      models.RefundProviderStatusConfirmed,
		ProviderSignatureOk: &ok,
	}
}

func TestRefreshOrderRefundStatus(t *testing.T) {
	f := newFixture(t, paidOrder())

	status, err := f.svc.RefreshOrderRefundStatus(1)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusNone, status.RefundStatus)

	require.NoError(t, f.store.CreateItemRefund(confirmedItemRefund(1, 2, 4000)))
	status, err = f.svc.RefreshOrderRefundStatus(1)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusPartial, status.RefundStatus)
	assert.Equal(t, int64(4000), status.RefundedAmount)
	assert.Equal(t, models.PaymentStatusPartiallyRefunded, f.orders.order.PaymentStatus)

	ok := true
	require.NoError(t, f.store.CreateOrderRefund(&models.OrderRefund{
		OrderID:             1,
		AmountRefunded:      6000,
		Provider:            models.PaymentProviderFiuu,
		ProviderStatus:      models.RefundProviderStatusConfirmed,
		ProviderSignatureOk: &ok,
	}))
	status, err = f.svc.RefreshOrderRefundStatus(1)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusFull, status.RefundStatus)
	assert.Equal(t, int64(10000), status.RefundedAmount)
	assert.Equal(t, models.PaymentStatusRefunded, f.orders.order.PaymentStatus)
}

func TestRefreshCountsManualButNotUnsignedGatewayRows(t *testing.T) {
	f := newFixture(t, paidOrder())

	// Manual override rows count without a gateway signature.
	require.NoError(t, f.store.CreateItemRefund(&models.OrderItemRefund{
		OrderID:          1,
		OrderItemID:      1,
		QuantityRefunded: 1,
		AmountRefunded:   1500,
		Provider:         models.PaymentProviderManual,
		ProviderStatus:   models.RefundProviderStatusMarked,
	}))
	// Gateway rows with success status but no verified signature do not.
	require.NoError(t, f.store.CreateItemRefund(&models.OrderItemRefund{
		OrderID:          1,
		OrderItemID:      2,
		QuantityRefunded: 1,
		AmountRefunded:   4000,
		Provider:         models.PaymentProviderFiuu,
		ProviderStatus:   models.RefundProviderStatusConfirmed,
	}))

	status, err := f.svc.RefreshOrderRefundStatus(1)
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusPartial, status.RefundStatus)
	assert.Equal(t, int64(1500), status.RefundedAmount)
}

func TestApplyGatewayNotifyConfirmsByRefID(t *testing.T) {
	f := newFixture(t, paidOrder())

	outcome, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{
		OrderID: 1, OrderItemID: 2, Quantity: 1,
	})
	require.NoError(t, err)
	refID := outcome.ItemRefund.ProviderRefID

	ok := true
	err = f.svc.ApplyGatewayNotify(GatewayUpdate{
		ProviderRefID:  refID,
		ProviderStatus: models.RefundProviderStatusConfirmed,
		SignatureOk:    &ok,
		ResponseJSON:   `{"Status":"00"}`,
	})
	require.NoError(t, err)

	row := f.store.itemRows[0]
	assert.Equal(t, models.RefundProviderStatusConfirmed, row.ProviderStatus)
	require.NotNil(t, row.ProviderSignatureOk)
	assert.True(t, *row.ProviderSignatureOk)

	assert.Equal(t, models.RefundStatusPartial, f.orders.order.RefundStatus)
	assert.Equal(t, models.PaymentStatusPartiallyRefunded, f.orders.order.PaymentStatus)
}

func TestApplyGatewayNotifyFallsBackToRefundID(t *testing.T) {
	f := newFixture(t, paidOrder())

	_, err := f.svc.RefundOrderItem(context.Background(), ItemRefundInput{
		OrderID: 1, OrderItemID: 2, Quantity: 1,
	})
	require.NoError(t, err)

	ok := true
	err = f.svc.ApplyGatewayNotify(GatewayUpdate{
		ProviderRefundID: "555001",
		ProviderStatus:   models.RefundProviderStatusConfirmed,
		SignatureOk:      &ok,
	})
	require.NoError(t, err)

	assert.Equal(t, models.RefundProviderStatusConfirmed, f.store.itemRows[0].ProviderStatus)
	assert.Equal(t, models.RefundStatusPartial, f.orders.order.RefundStatus)
}

func TestApplyGatewayNotifyUnmatchedIsHarmless(t *testing.T) {
	f := newFixture(t, paidOrder())

	err := f.svc.ApplyGatewayNotify(GatewayUpdate{
		ProviderRefID:    "refund-PB-UNKNOWN",
		ProviderRefundID: "999999",
		ProviderStatus:   models.RefundProviderStatusConfirmed,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RefundStatusNone, f.orders.order.RefundStatus)
}
