package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRows(t *testing.T) {
	sheet := `scan_code,name,image_url,quantity
7501, Shampoo 400ml ,https://img.example.com/1.png,12
7502,Soap,,
`
	rows, err := readRows(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "7501", rows[0].ScanCode)
	assert.Equal(t, "Shampoo 400ml", rows[0].Name)
	assert.Equal(t, 12, rows[0].AvailableQuantity)
	assert.Equal(t, "", rows[1].ImageURL)
	assert.Equal(t, 0, rows[1].AvailableQuantity)
}

func TestReadRows_Errors(t *testing.T) {
	tests := []struct {
		name  string
		sheet string
	}{
		{"bad quantity", "7501,Soap,,many\n"},
		{"missing name", "7501\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readRows(strings.NewReader(tt.sheet))
			assert.Error(t, err)
		})
	}
}
