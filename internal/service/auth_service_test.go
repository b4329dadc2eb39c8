package service

import (
	"context"
	"testing"
	"time"

	"go-fulfillment-ws/internal/event"
	"go-fulfillment-ws/internal/model"
	"go-fulfillment-ws/internal/repository"
	"go-fulfillment-ws/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T) (AuthService, UserService, *repository.MemoryStore, *eventLog) {
	t.Helper()
	store := repository.NewMemoryStore()
	log := &eventLog{}
	tokens := jwt.NewManager("test-secret", time.Hour, "test")
	return NewAuthService(store.Users(), tokens, 5*time.Minute, event.NewFanout("test", log)),
		NewUserService(store.Users()), store, log
}

func TestAuth_LoginAndValidate(t *testing.T) {
	ctx := context.Background()
	auth, users, _, _ := newAuth(t)

	_, err := users.CreateUser(ctx, &CreateUserRequest{Email: "Wh@Example.com", Password: "secret1", FullName: "Wen", Role: model.RoleWarehouse}, "system")
	require.NoError(t, err)

	_, err = auth.Login(ctx, "wh@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	first, err := auth.Login(ctx, "wh@example.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, first.Role)
	assert.Equal(t, model.RoleWarehouse, first.Role.Code)
	assert.Contains(t, first.Privileges, model.PrivOrderUpdateStatus)
	assert.NotContains(t, first.Privileges, model.PrivOrderCreate)

	v, err := auth.ValidateToken(ctx, first.Token)
	require.NoError(t, err)
	assert.Equal(t, "wh@example.com", v.User.Email)

	// a second login replaces the first session
	_, err = auth.Login(ctx, "wh@example.com", "secret1")
	require.NoError(t, err)
	_, err = auth.ValidateToken(ctx, first.Token)
	assert.ErrorIs(t, err, ErrSessionReplaced)
}

func TestAuth_InactiveAndReset(t *testing.T) {
	ctx := context.Background()
	auth, users, _, _ := newAuth(t)

	u, err := users.CreateUser(ctx, &CreateUserRequest{Email: "s@example.com", Password: "secret1", FullName: "Sam", Role: model.RoleSales}, "system")
	require.NoError(t, err)

	require.ErrorIs(t, auth.ResetPassword(ctx, "s@example.com", "nope", "secret2"), ErrWrongPassword)
	require.NoError(t, auth.ResetPassword(ctx, "s@example.com", "secret1", "secret2"))
	_, err = auth.Login(ctx, "s@example.com", "secret2")
	require.NoError(t, err)

	inactive := false
	_, err = users.UpdateUser(ctx, u.ID, &UpdateUserRequest{Email: "s@example.com", FullName: "Sam", Role: model.RoleSales, IsActive: &inactive}, "admin")
	require.NoError(t, err)
	_, err = auth.Login(ctx, "s@example.com", "secret2")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestAuth_HeartbeatPublishesPresence(t *testing.T) {
	ctx := context.Background()
	auth, users, store, log := newAuth(t)

	u, err := users.CreateUser(ctx, &CreateUserRequest{Email: "a@example.com", Password: "secret1", FullName: "Ada", Role: model.RoleAdmin}, "system")
	require.NoError(t, err)

	require.NoError(t, auth.Heartbeat(ctx, u.ID))
	got, err := store.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastSeenAt)
	assert.Equal(t, []event.Type{event.UserPresence}, log.types())
}

func TestUsers_CreateRejectsDuplicatesAndBadRoles(t *testing.T) {
	ctx := context.Background()
	_, users, _, _ := newAuth(t)

	_, err := users.CreateUser(ctx, &CreateUserRequest{Email: "a@example.com", Password: "secret1", FullName: "Ada", Role: "manager"}, "system")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = users.CreateUser(ctx, &CreateUserRequest{Email: "a@example.com", Password: "secret1", FullName: "Ada", Role: model.RoleAdmin}, "system")
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, &CreateUserRequest{Email: "A@example.com", Password: "secret1", FullName: "Ada", Role: model.RoleAdmin}, "system")
	assert.ErrorIs(t, err, ErrEmailExists)

	list, err := users.GetAllUsers(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	none, err := users.GetAllUsers(ctx, model.RoleSales)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = users.GetUserByID(ctx, list[0].ID)
	require.NoError(t, err)
	assert.NoError(t, users.DeleteUser(ctx, list[0].ID))
	assert.ErrorIs(t, users.DeleteUser(ctx, list[0].ID), ErrNotFound)
}
