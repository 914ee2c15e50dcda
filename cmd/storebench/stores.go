package main

import (
	"fmt"

	"github.com/delaneyj/storeparty/store"
)

var counter = &store.Component[int, int]{
	Name:         "counter",
	InitialState: func(start int) int { return start },
	Publish: func(self *store.Self[int, int]) (any, error) {
		return self.State(), nil
	},
}

func addOne(prev, _ int) int {
	return prev + 1
}

type linkProps struct {
	depth  int
	source *store.Handle
}

// link publishes its child's output plus one. The innermost link follows the
// shared source.
var link = &store.Component[linkProps, struct{}]{Name: "link"}

// link and branch declare themselves as children, so their hooks are set here.
func init() {
	link.Subs = func(self *store.Self[linkProps, struct{}]) (store.Subs, error) {
		p := self.Props()
		if p.depth <= 1 {
			return store.Single(store.Subscribe(p.source)), nil
		}
		return store.Single(link.Element(linkProps{depth: p.depth - 1, source: p.source})), nil
	}
	link.Publish = func(self *store.Self[linkProps, struct{}]) (any, error) {
		return self.Subs().(int) + 1, nil
	}
	branch.Subs = func(self *store.Self[branchProps, struct{}]) (store.Subs, error) {
		p := self.Props()
		children := make([]any, p.width)
		for i := range children {
			if p.depth <= 1 {
				children[i] = counter.Element(0)
			} else {
				children[i] = branch.Element(branchProps{width: p.width, depth: p.depth - 1})
			}
		}
		return store.Indexed(children...), nil
	}
}

type chainsProps struct {
	width, height int
	source        *store.Handle
}

// chains declares width independent chains of height links.
var chains = &store.Component[chainsProps, struct{}]{
	Name: "chains",
	Subs: func(self *store.Self[chainsProps, struct{}]) (store.Subs, error) {
		p := self.Props()
		children := make(map[string]any, p.width)
		for i := range p.width {
			children[fmt.Sprintf("chain%d", i)] = link.Element(linkProps{depth: p.height, source: p.source})
		}
		return store.Keyed(children), nil
	},
	Publish: func(self *store.Self[chainsProps, struct{}]) (any, error) {
		sum := 0
		for _, v := range self.Subs().(map[string]any) {
			sum += v.(int)
		}
		return sum, nil
	},
}

type branchProps struct {
	width, depth int
}

// branch is a balanced tree of counters publishing the sum of its leaves.
var branch = &store.Component[branchProps, struct{}]{
	Name: "branch",
	Publish: func(self *store.Self[branchProps, struct{}]) (any, error) {
		sum := 0
		for _, v := range self.Subs().([]any) {
			sum += v.(int)
		}
		return sum, nil
	},
}

// leaves returns the counters at the bottom of a branch tree.
func leaves(h *store.Handle) []*store.Self[int, int] {
	var out []*store.Self[int, int]
	h.Walk(func(n store.Node) bool {
		if n.Store == nil {
			return false
		}
		if self, ok := store.SelfOf[int, int](n.Store); ok {
			out = append(out, self)
		}
		return true
	})
	return out
}
