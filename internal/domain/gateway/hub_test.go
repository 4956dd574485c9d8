package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishMatchesTableAndFilter(t *testing.T) {
	h := NewHub()

	var pending, all []Row
	h.Subscribe(TableSupportRequests, Where(Eq("status", "pending")), func(r Row) { pending = append(pending, r) })
	h.Subscribe(TableSupportRequests, All(), func(r Row) { all = append(all, r) })

	h.Publish(TableSupportRequests, Row{"id": "s1", "status": "pending"}, Row{"id": "s2", "status": "closed"})
	h.Publish(TableClients, Row{"id": "c1", "status": "pending"})

	require.Len(t, pending, 1)
	assert.Equal(t, "s1", pending[0]["id"])
	assert.Len(t, all, 2)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()

	calls := 0
	unsubscribe := h.Subscribe(TableClients, All(), func(Row) { calls++ })
	h.Publish(TableClients, Row{"id": "c1"})
	unsubscribe()
	h.Publish(TableClients, Row{"id": "c2"})

	assert.Equal(t, 1, calls)
}

func TestHub_SubscribersGetCopies(t *testing.T) {
	h := NewHub()
	h.Subscribe(TableClients, All(), func(r Row) { r["name"] = "changed" })

	row := Row{"id": "c1", "name": "Torre Norte"}
	h.Publish(TableClients, row)

	assert.Equal(t, "Torre Norte", row["name"])
}
