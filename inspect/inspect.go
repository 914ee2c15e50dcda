// Package inspect renders live store trees for debugging: a Graphviz DOT
// graph, an indented outline and a text table.
package inspect

import (
	"fmt"
	"strings"

	"github.com/delaneyj/storeparty/store"
)

// Node is one store tree entry with its value already formatted.
type Node struct {
	ID     string
	Parent string
	Key    string
	Type   string
	TypeID uint64
	Depth  int
	Value  string
	// Adopted nodes follow a store owned by another tree.
	Adopted bool
}

func (n Node) Label() string {
	return n.Type + " = " + n.Value
}

func (n Node) Indent() string {
	return strings.Repeat("  ", n.Depth)
}

// Tree is a point-in-time copy of a store tree.
type Tree struct {
	Name       string
	Dispatcher string
	Nodes      []Node
}

// Snapshot walks h and copies its tree. It must not run concurrently with a
// dispatch on h's dispatcher.
func Snapshot(h *store.Handle) *Tree {
	t := &Tree{
		Name:       h.Name(),
		Dispatcher: h.Dispatcher().ID(),
	}
	var parents []string
	h.Walk(func(n store.Node) bool {
		id := fmt.Sprintf("n%d", len(t.Nodes))
		node := Node{
			ID:      id,
			Key:     n.Key,
			Type:    n.Type,
			TypeID:  n.TypeID,
			Depth:   n.Depth,
			Value:   fmt.Sprintf("%v", n.Value),
			Adopted: n.Adopted,
		}
		parents = parents[:n.Depth]
		if n.Depth > 0 {
			node.Parent = parents[n.Depth-1]
		}
		parents = append(parents, id)
		t.Nodes = append(t.Nodes, node)
		return true
	})
	return t
}
