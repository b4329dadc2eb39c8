package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func uniqueIndexes(t *testing.T, dest interface{}) map[string]*schema.Index {
	t.Helper()
	s, err := schema.Parse(dest, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	out := map[string]*schema.Index{}
	for _, idx := range s.ParseIndexes() {
		if idx.Class == "UNIQUE" {
			out[idx.Name] = idx
		}
	}
	return out
}

// Soft-deleted rows must not hold on to unique values.
func TestUniqueIndexesSkipDeletedRows(t *testing.T) {
	products := uniqueIndexes(t, &Product{})
	require.Contains(t, products, "idx_products_scan_code_live")
	assert.Equal(t, "deleted_at IS NULL", products["idx_products_scan_code_live"].Where)

	orders := uniqueIndexes(t, &Order{})
	require.Contains(t, orders, "idx_orders_idempotency_key")
	assert.Equal(t, "deleted_at IS NULL", orders["idx_orders_idempotency_key"].Where)
}
