package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	all := []OrderStatus{OrderPending, OrderInProgress, OrderCompleted, OrderCancelled}
	allowed := map[[2]OrderStatus]bool{
		{OrderPending, OrderInProgress}:   true,
		{OrderInProgress, OrderCompleted}: true,
		{OrderPending, OrderCancelled}:    true,
		{OrderInProgress, OrderCancelled}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]OrderStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_Flags(t *testing.T) {
	assert.True(t, OrderPending.IsActive())
	assert.True(t, OrderInProgress.IsActive())
	assert.True(t, OrderCompleted.IsTerminal())
	assert.True(t, OrderCancelled.IsTerminal())
	assert.False(t, OrderStatus("shipped").Valid())
	assert.False(t, CanTransition(OrderStatus("shipped"), OrderPending))
}

func TestOrder_ReservedByProduct(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	o := Order{Items: []OrderItem{
		{ProductID: a, RequestedQuantity: 3},
		{ProductID: b, RequestedQuantity: 0},
	}}

	reserved := o.ReservedByProduct()
	assert.Equal(t, 3, reserved[a])
	assert.Equal(t, 0, reserved[b])
	assert.Len(t, reserved, 2)
}

func TestRolePrivileges(t *testing.T) {
	sales := User{Role: RoleSales}
	warehouse := User{Role: RoleWarehouse}
	admin := User{Role: RoleAdmin}

	assert.True(t, sales.HasPrivilege(PrivOrderCreate))
	assert.False(t, sales.HasPrivilege(PrivOrderUpdateStatus))
	assert.True(t, warehouse.HasPrivilege(PrivOrderUpdateStatus))
	assert.False(t, warehouse.HasPrivilege(PrivOrderCreate))
	assert.ElementsMatch(t, admin.GetPrivilegeCodes(), PrivilegesFor(RoleAdmin))
	assert.Len(t, admin.GetPrivilegeCodes(), len(DefaultPrivileges))
	assert.False(t, Role("root").Valid())
}
