package inventory

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteItemsCSVRowPerVariant(t *testing.T) {
	items := []Item{
		{ID: "1", Name: "Mug, large", SKU: "MUG", Category: FlatCategory("kitchen"), Price: 4.5, Quantity: IntPtr(7)},
		BulkTemplate()[0],
	}
	var buf bytes.Buffer
	require.NoError(t, WriteItemsCSV(&buf, items))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, itemCSVHeader, rows[0])
	assert.Equal(t, "Mug, large", rows[1][1])
	assert.Equal(t, "4.50", rows[1][4])
	assert.Equal(t, "7", rows[1][9])
	assert.Equal(t, "SAMPLE-001-BLUE-L", rows[3][5])
	assert.Equal(t, "29.99", rows[3][4])
	assert.Equal(t, "45", rows[3][11])
	assert.Equal(t, "true", rows[3][13])
}

func TestWriteChangeLogCSV(t *testing.T) {
	entries := []ChangeLogEntry{{
		ID:             "e1",
		Timestamp:      time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC),
		ProductName:    "Tee",
		VariantDetails: "M / Red",
		ChangeType:     ChangeReserve,
		Field:          FieldReserved,
		OldValue:       "0",
		NewValue:       "2",
		User:           "ann",
		Reason:         "order 42",
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteChangeLogCSV(&buf, entries))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Change Type", rows[0][3])
	assert.Equal(t, []string{"2024-03-01T08:30:00Z", "Tee", "M / Red", "reserve", "reserved", "0", "2", "ann", "order 42"}, rows[1])
}
