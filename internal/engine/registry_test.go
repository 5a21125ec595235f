package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(testLine, Accessor) error { return nil }

func TestRegistry_RegisterAssignsOrder(t *testing.T) {
	r := NewRegistry[testLine]()

	h1 := r.Register("h1", Always(), noopHandler)
	h2 := r.Register("h2", FieldEquals("command", "PING"), noopHandler)

	assert.Equal(t, 1, h1.ID)
	assert.Equal(t, 2, h2.ID)
	assert.Equal(t, "h2", h2.Name)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_MatchPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry[testLine]()
	r.Register("ping-1", FieldEquals("command", "PING"), noopHandler)
	r.Register("all", Always(), noopHandler)
	r.Register("pong", FieldEquals("command", "PONG"), noopHandler)
	r.Register("ping-2", FieldEquals("command", "PING"), noopHandler)

	matched := r.Match(testLine{Command: "PING"})

	require.Len(t, matched, 3)
	assert.Equal(t, "ping-1", matched[0].Name)
	assert.Equal(t, "all", matched[1].Name)
	assert.Equal(t, "ping-2", matched[2].Name)
}

func TestRegistry_MatchNone(t *testing.T) {
	r := NewRegistry[testLine]()
	r.Register("pong", FieldEquals("command", "PONG"), noopHandler)

	assert.Empty(t, r.Match(testLine{Command: "PING"}))
}

func TestRegistry_RecordsIsCopy(t *testing.T) {
	r := NewRegistry[testLine]()
	r.Register("a", Always(), noopHandler)

	recs := r.Records()
	recs[0].Name = "changed"

	assert.Equal(t, "a", r.Records()[0].Name, "records must be immutable from outside")
}

func TestHandlerRecord_Call(t *testing.T) {
	r := NewRegistry[testLine]()
	var got string
	rec := r.Register("rec", Always(), func(l testLine, ns Accessor) error {
		got = l.Command
		ns.Set("seen", "cmd", l.Command)
		return nil
	})

	ns := NewNamespaces()
	require.NoError(t, rec.Call(testLine{Command: "JOIN"}, ns))

	assert.Equal(t, "JOIN", got)
	assert.Equal(t, "JOIN", ns.Get("seen", "cmd", nil))
}
