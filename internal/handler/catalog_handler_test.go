package handler

import (
	"net/http"
	"testing"

	"go-fulfillment-ws/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducts_ScanCodeConflictAndReuse(t *testing.T) {
	f := newAPI(t)
	_, token := f.login(t, "ada", model.RoleAdmin)
	soap := map[string]any{"scan_code": "7501", "name": "Soap", "available_quantity": 3}

	status, body := f.do(t, http.MethodPost, "/api/v1/products", token, soap)
	require.Equal(t, http.StatusCreated, status, body)
	id := body["data"].(map[string]any)["id"].(string)

	status, body = f.do(t, http.MethodPost, "/api/v1/products", token, soap)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_exists", body["code"])

	status, _ = f.do(t, http.MethodDelete, "/api/v1/products/"+id, token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = f.do(t, http.MethodPost, "/api/v1/products", token, soap)
	require.Equal(t, http.StatusCreated, status, body)
	assert.NotEqual(t, id, body["data"].(map[string]any)["id"])
}
