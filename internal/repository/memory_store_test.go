package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-fulfillment-ws/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, s Store, code string, qty int) *model.Product {
	t.Helper()
	p := &model.Product{ScanCode: code, Name: "Product " + code, AvailableQuantity: qty}
	require.NoError(t, s.Products().Create(context.Background(), p))
	return p
}

func TestMemoryStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "A-1", 10)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx Store) error {
		if _, err := tx.Products().AdjustQuantity(ctx, p.ID, -4); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AvailableQuantity)
}

func TestMemoryStore_WithinTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "A-1", 10)

	err := s.WithinTx(ctx, func(tx Store) error {
		_, err := tx.Products().AdjustQuantity(ctx, p.ID, -4)
		return err
	})
	require.NoError(t, err)

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.AvailableQuantity)
}

func TestMemoryStore_AdjustQuantityNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "A-1", 3)

	_, err := s.Products().AdjustQuantity(ctx, p.ID, -4)
	assert.ErrorIs(t, err, ErrQuantityConflict)

	got, err := s.Products().AdjustQuantity(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableQuantity)

	_, err = s.Products().AdjustQuantity(ctx, model.Product{}.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_FindByRoleKeepsRegistrationOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Now()

	names := []string{"first", "second", "third"}
	for i, name := range names {
		u := &model.User{Email: name + "@example.com", FullName: name, Role: model.RoleWarehouse, IsActive: i != 1}
		u.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Users().Create(ctx, u))
	}
	require.NoError(t, s.Users().Create(ctx, &model.User{Email: "s@example.com", Role: model.RoleSales, IsActive: true}))

	all, err := s.Users().FindByRole(ctx, model.RoleWarehouse, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].FullName)
	assert.Equal(t, "third", all[2].FullName)

	active, err := s.Users().FindByRole(ctx, model.RoleWarehouse, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "first", active[0].FullName)
	assert.Equal(t, "third", active[1].FullName)
}

func TestMemoryStore_OrdersResolveRelations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "A-1", 10)
	sales := &model.User{Email: "s@example.com", FullName: "Sales", Role: model.RoleSales, IsActive: true}
	require.NoError(t, s.Users().Create(ctx, sales))

	order := &model.Order{
		SalesUserID: sales.ID,
		Status:      model.OrderPending,
		Items:       []model.OrderItem{{ProductID: p.ID, Position: 0, RequestedQuantity: 2}},
	}
	require.NoError(t, s.Orders().Create(ctx, order))

	got, err := s.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SalesUser)
	assert.Equal(t, "Sales", got.SalesUser.FullName)
	require.Len(t, got.Items, 1)
	require.NotNil(t, got.Items[0].Product)
	assert.Equal(t, "A-1", got.Items[0].Product.ScanCode)

	// mutating the returned copy must not leak into the store
	got.Items[0].RequestedQuantity = 99
	again, err := s.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].RequestedQuantity)

	pending, err := s.Orders().FindAll(ctx, OrderFilter{Status: model.OrderCancelled})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMemoryStore_StockMovementSummary(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	p := seedProduct(t, s, "A-1", 10)

	require.NoError(t, s.Movements().Create(ctx, []model.StockMovement{
		{ProductID: p.ID, Type: model.MovementReserve, Quantity: -4, BalanceAfter: 6},
		{ProductID: p.ID, Type: model.MovementRelease, Quantity: 1, BalanceAfter: 7},
		{ProductID: p.ID, Type: model.MovementAdjust, Quantity: 5, BalanceAfter: 12},
	}))

	now := time.Now()
	data, err := s.Movements().GetStockMovement(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, 4, data[0].Reserved)
	assert.Equal(t, 1, data[0].Released)
	assert.Equal(t, 5, data[0].Adjusted)
}
