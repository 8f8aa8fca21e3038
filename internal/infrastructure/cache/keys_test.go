package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys_Format(t *testing.T) {
	keys := NewKeys("")

	assert.Equal(t, "business:graph:node:abc", keys.Node("abc"))
	assert.Equal(t, "business:graph:neighbors:abc", keys.Neighbors("abc"))
	assert.Equal(t, "business:graph:subgraph:abc:2", keys.Subgraph("abc", 2))
	assert.Equal(t, "tenant:graph:node:abc", NewKeys("tenant").Node("abc"))
}

func TestKeys_NoCollisions(t *testing.T) {
	keys := NewKeys("ns")
	seen := map[string]bool{}

	for _, id := range []string{"a", "b", "a:1"} {
		for _, key := range keys.NodeFamily(id, 3) {
			assert.False(t, seen[key], "duplicate key %s", key)
			seen[key] = true
		}
	}
	assert.Len(t, seen, 15)
}

func TestKeys_Deterministic(t *testing.T) {
	assert.Equal(t, NewKeys("ns").Subgraph("x", 3), NewKeys("ns").Subgraph("x", 3))
}
