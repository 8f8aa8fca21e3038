package cache

import "strconv"

// DefaultNamespace prefixes every key written by the graph service.
const DefaultNamespace = "business"

// Keys builds namespaced cache keys. Ids are not validated here.
type Keys struct {
	namespace string
}

// NewKeys returns a key factory for namespace, or DefaultNamespace when empty.
func NewKeys(namespace string) Keys {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return Keys{namespace: namespace}
}

func (k Keys) Namespace() string { return k.namespace }

// Node is "<ns>:graph:node:<id>".
func (k Keys) Node(id string) string {
	return k.namespace + ":graph:node:" + id
}

// Neighbors is "<ns>:graph:neighbors:<id>".
func (k Keys) Neighbors(id string) string {
	return k.namespace + ":graph:neighbors:" + id
}

// Subgraph is "<ns>:graph:subgraph:<id>:<depth>".
func (k Keys) Subgraph(id string, depth int) string {
	return k.namespace + ":graph:subgraph:" + id + ":" + strconv.Itoa(depth)
}

// NodeFamily lists every key derived from node id: its node entry, its
// neighbours entry and one subgraph entry per depth up to maxDepth.
func (k Keys) NodeFamily(id string, maxDepth int) []string {
	keys := make([]string, 0, 2+maxDepth)
	keys = append(keys, k.Node(id), k.Neighbors(id))
	for depth := 1; depth <= maxDepth; depth++ {
		keys = append(keys, k.Subgraph(id, depth))
	}
	return keys
}
