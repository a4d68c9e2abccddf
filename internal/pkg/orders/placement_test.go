package orders

import (
	"strings"
	"testing"

	"github.com/khairulanwar/PasarBox/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placementInput() PlaceOrderInput {
	return PlaceOrderInput{
		CustomerName:  "Aminah",
		Phone:         "0123456789",
		Email:         "aminah@example.com",
		Address:       "12 Jalan Besar",
		PaymentMethod: models.PaymentMethodOnline,
		Lines: []PlaceOrderLine{
			{ProductID: 1, ProductName: "Sambal Hitam", UnitPrice: 1500, Quantity: 2},
			{ProductID: 2, ProductName: "Gift Box", UnitPrice: 4000, Quantity: 1},
		},
		ShippingFee: 800,
	}
}

func TestPlaceOrderTotals(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	order, err := svc.PlaceOrder(placementInput())
	require.NoError(t, err)

	assert.Equal(t, int64(7000), order.ItemsSubtotal)
	assert.Equal(t, int64(800), order.ShippingFee)
	assert.Equal(t, int64(7800), order.TotalAmount)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, models.FulfilmentStatusNew, order.FulfilStatus)
	assert.True(t, strings.HasPrefix(order.OrderCode, "PB-"))
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(3000), order.Items[0].Subtotal)

	// placement never touches stock; that happens at payment time
	assert.Empty(t, repo.products)

	require.Len(t, repo.notifications, 1)
	assert.Equal(t, models.NotificationTypeOrderCreated, repo.notifications[0].Type)
}

func TestPlaceOrderWithPromo(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	in := placementInput()
	in.Promo = &models.OrderPromo{Code: "MERDEKA", DiscountAmount: 500}

	order, err := svc.PlaceOrder(in)
	require.NoError(t, err)

	assert.Equal(t, int64(500), order.DiscountAmount)
	assert.Equal(t, int64(7300), order.TotalAmount)

	promo, err := repo.GetPromo(order.ID)
	require.NoError(t, err)
	assert.Equal(t, "MERDEKA", promo.Code)
}

func TestPlaceOrderClampsTotalAtZero(t *testing.T) {
	svc := NewService(newFakeRepository())

	in := placementInput()
	in.Lines = []PlaceOrderLine{{ProductID: 1, ProductName: "Sampler", UnitPrice: 100, Quantity: 1}}
	in.ShippingFee = 0
	in.Promo = &models.OrderPromo{Code: "BIG", DiscountAmount: 9999}

	order, err := svc.PlaceOrder(in)
	require.NoError(t, err)
	assert.Equal(t, int64(0), order.TotalAmount)
}

func TestPlaceOrderFiltersInvalidLines(t *testing.T) {
	svc := NewService(newFakeRepository())

	in := placementInput()
	in.Lines = []PlaceOrderLine{
		{ProductID: 1, ProductName: "Sambal Hitam", UnitPrice: 1500, Quantity: 0},
		{ProductID: 2, ProductName: "Gift Box", UnitPrice: -1, Quantity: 1},
		{ProductID: 3, ProductName: "Sampler", UnitPrice: 100, Quantity: 3},
	}

	order, err := svc.PlaceOrder(in)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, uint(3), order.Items[0].ProductID)
	assert.Equal(t, int64(300), order.ItemsSubtotal)
	assert.Equal(t, int64(1100), order.TotalAmount)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	svc := NewService(newFakeRepository())

	in := placementInput()
	in.Lines = nil
	_, err := svc.PlaceOrder(in)
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestPlaceOrderOfflineTransferAwaitsVerification(t *testing.T) {
	svc := NewService(newFakeRepository())

	in := placementInput()
	in.PaymentMethod = models.PaymentMethodOfflineTransfer

	order, err := svc.PlaceOrder(in)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusAwaitingVerification, order.PaymentStatus)
}
