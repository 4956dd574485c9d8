package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID        string    `json:"id" validate:"required"`
	Count     int       `json:"count" validate:"min=0"`
	Kind      string    `json:"kind" validate:"oneof=a b"`
	CreatedAt time.Time `json:"created_at"`
}

func TestEncodeDecode(t *testing.T) {
	created := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	row, err := Encode(testRecord{ID: "r1", Count: 2, Kind: "a", CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, "r1", row["id"])
	assert.Equal(t, float64(2), row["count"])

	var got testRecord
	require.NoError(t, Decode(row, &got))
	assert.Equal(t, created, got.CreatedAt)
}

func TestDecode_RejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name string
		row  Row
	}{
		{name: "missing required", row: Row{"count": 1, "kind": "a"}},
		{name: "wrong type", row: Row{"id": "r1", "count": "many", "kind": "a"}},
		{name: "out of enum", row: Row{"id": "r1", "kind": "z"}},
		{name: "negative", row: Row{"id": "r1", "count": -1, "kind": "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testRecord
			assert.ErrorIs(t, Decode(tt.row, &got), ErrMalformedRow)
		})
	}
}

func TestDecodeAll_StopsAtFirstBadRow(t *testing.T) {
	_, err := DecodeAll[testRecord]([]Row{
		{"id": "ok", "kind": "a"},
		{"kind": "a"},
	})
	assert.ErrorIs(t, err, ErrMalformedRow)
	assert.Contains(t, err.Error(), "row 1")
}

func TestHub(t *testing.T) {
	hub := NewHub()
	var got []Row
	unsubscribe := hub.Subscribe(TableSupportRequests, Where(Eq("status", "pending")), func(r Row) {
		got = append(got, r)
	})

	hub.Publish(TableSupportRequests, Row{"id": "1", "status": "pending"}, Row{"id": "2", "status": "closed"})
	hub.Publish(TableEmergencyReports, Row{"id": "3", "status": "pending"})

	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0]["id"])

	got[0]["id"] = "mutated"
	unsubscribe()
	hub.Publish(TableSupportRequests, Row{"id": "4", "status": "pending"})
	assert.Len(t, got, 1)
}
