package handler

import (
	"net/http"
	"testing"

	"go-fulfillment-ws/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_LoginStatuses(t *testing.T) {
	f := newAPI(t)
	f.login(t, "sam", model.RoleSales)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing password", map[string]any{"email": "sam@example.com"}, http.StatusBadRequest},
		{"not an email", map[string]any{"email": "sam", "password": "secret1"}, http.StatusBadRequest},
		{"wrong password", map[string]any{"email": "sam@example.com", "password": "nope"}, http.StatusUnauthorized},
		{"ok", map[string]any{"email": "sam@example.com", "password": "secret1"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			assert.Equal(t, tt.want, status, body)
			if tt.want == http.StatusOK {
				assert.NotEmpty(t, body["token"])
			}
		})
	}
}

func TestAuth_NewLoginReplacesSession(t *testing.T) {
	f := newAPI(t)
	_, first := f.login(t, "wen", model.RoleWarehouse)

	status, _ := f.do(t, http.MethodGet, "/api/v1/products", first, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "wen@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, status, body)

	status, _ = f.do(t, http.MethodGet, "/api/v1/products", first, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = f.do(t, http.MethodGet, "/api/v1/products", body["token"].(string), nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRoles_ServeCatalogue(t *testing.T) {
	f := newAPI(t)
	_, token := f.login(t, "sam", model.RoleSales)

	status, _ := f.do(t, http.MethodGet, "/api/v1/roles", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.do(t, http.MethodGet, "/api/v1/users", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}
