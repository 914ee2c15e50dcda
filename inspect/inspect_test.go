package inspect_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/delaneyj/storeparty/inspect"
	"github.com/delaneyj/storeparty/store"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//	        board
//	   /    |    |    \
//	count label limit sum
//	(adopted)        /   \
//	                0     1
func board(t *testing.T) (*store.Handle, *store.Component[int, int]) {
	t.Helper()

	counter := &store.Component[int, int]{
		Name:         "counter",
		InitialState: func(start int) int { return start },
		Publish: func(self *store.Self[int, int]) (any, error) {
			return self.State(), nil
		},
	}
	leaf := &store.Component[int, struct{}]{
		Name: "leaf",
		Publish: func(self *store.Self[int, struct{}]) (any, error) {
			return self.Props() * 10, nil
		},
	}
	pair := &store.Component[int, struct{}]{
		Name: "pair",
		Subs: func(self *store.Self[int, struct{}]) (store.Subs, error) {
			return store.Indexed(leaf.Element(self.Props()-1), leaf.Element(self.Props())), nil
		},
	}
	root := &store.Component[*store.Handle, struct{}]{
		Name: "board",
		Subs: func(self *store.Self[*store.Handle, struct{}]) (store.Subs, error) {
			return store.Keyed(map[string]any{
				"count": store.Subscribe(self.Props()),
				"label": store.Constant("hi"),
				"limit": 10,
				"sum":   pair.Element(2),
			}), nil
		},
	}

	source := store.Instantiate(store.NewDispatcher(store.WithID("source")), counter.Element(5))
	h := store.Instantiate(store.NewDispatcher(store.WithID("demo")), root.Element(source))
	require.Equal(t, "demo", h.Dispatcher().ID())
	return h, counter
}

func TestSnapshot(t *testing.T) {
	h, _ := board(t)
	tree := inspect.Snapshot(h)

	assert.Equal(t, "board", tree.Name)
	assert.Equal(t, "demo", tree.Dispatcher)
	require.Len(t, tree.Nodes, 7)

	var parents []string
	for _, n := range tree.Nodes {
		parents = append(parents, fmt.Sprintf("%s<-%s", n.ID, n.Parent))
	}
	assert.Equal(t, []string{"n0<-", "n1<-n0", "n2<-n0", "n3<-n0", "n4<-n0", "n5<-n4", "n6<-n4"}, parents)
	assert.True(t, tree.Nodes[1].Adopted)
	assert.Equal(t, "[10 20]", tree.Nodes[4].Value)
}

func TestDOT(t *testing.T) {
	h, _ := board(t)
	g := goldie.New(t)
	g.Assert(t, "dot", []byte(inspect.DOT(inspect.Snapshot(h))))
}

func TestOutline(t *testing.T) {
	h, _ := board(t)
	g := goldie.New(t)
	g.Assert(t, "outline", []byte(inspect.Outline(inspect.Snapshot(h))))
}

func TestWriteTable(t *testing.T) {
	h, counter := board(t)

	var buf bytes.Buffer
	inspect.WriteTable(&buf, inspect.Snapshot(h))
	out := buf.String()

	assert.Contains(t, out, "board @ demo")
	assert.Contains(t, out, fmt.Sprintf("%016x", counter.TypeID()))
	assert.Contains(t, out, "[10 20]")
}
