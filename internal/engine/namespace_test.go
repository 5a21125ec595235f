package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespaces_GetDefaultOnUnknown(t *testing.T) {
	ns := NewNamespaces()

	assert.Equal(t, "dflt", ns.Get("missing", "k", "dflt"), "unknown namespace yields default")

	ns.Set("a", "other", 1)
	assert.Equal(t, 7, ns.Get("a", "k", 7), "unknown key yields default")
	assert.Nil(t, ns.Get("a", "k", nil))
}

func TestNamespaces_SetOverwrites(t *testing.T) {
	ns := NewNamespaces()

	ns.Set("a", "k", "first")
	ns.Set("a", "k", "second")

	assert.Equal(t, "second", ns.Get("a", "k", nil))
}

func TestNamespaces_Isolation(t *testing.T) {
	ns := NewNamespaces()

	ns.Set("b", "k", "other_value")
	assert.Equal(t, "default", ns.Get("a", "k", "default"))

	ns.Set("a", "k", "mine")
	ns.Set("b", "k", "changed")
	assert.Equal(t, "mine", ns.Get("a", "k", "default"))
}

func TestNamespaces_StoredNilIsReturned(t *testing.T) {
	ns := NewNamespaces()
	ns.Set("a", "k", nil)

	assert.Nil(t, ns.Get("a", "k", "default"), "an explicitly stored nil is a value")
}

func TestNamespaces_Keys(t *testing.T) {
	ns := NewNamespaces()
	ns.Set("counters", "zeta", 1)
	ns.Set("counters", "alpha", 2)

	assert.Equal(t, []string{"alpha", "zeta"}, ns.Keys("counters"))
	assert.Empty(t, ns.Keys("nothing"))
}

func TestGetInt(t *testing.T) {
	ns := NewNamespaces()
	ns.Set("c", "n", 3)
	ns.Set("c", "s", "three")

	assert.Equal(t, 3, GetInt(ns, "c", "n", 0))
	assert.Equal(t, 0, GetInt(ns, "c", "s", 0), "non-int value falls back to default")
	assert.Equal(t, 9, GetInt(ns, "c", "missing", 9))
}
