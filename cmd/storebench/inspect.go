package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/delaneyj/storeparty/inspect"
	"github.com/delaneyj/storeparty/store"
	"github.com/urfave/cli/v3"
)

var demo = &store.Component[*store.Handle, struct{}]{
	Name: "demo",
	Subs: func(self *store.Self[*store.Handle, struct{}]) (store.Subs, error) {
		source := self.Props()
		return store.Keyed(map[string]any{
			"source": store.Subscribe(source),
			"chain":  link.Element(linkProps{depth: 3, source: source}),
			"grid":   branch.Element(branchProps{width: 2, depth: 2}),
			"label":  store.Constant("storebench"),
		}), nil
	},
}

func runInspect(ctx context.Context, cmd *cli.Command) error {
	return inspectDemo(os.Stdout, cmd.String(formatKey), dispatcherOptions(cmd)...)
}

func inspectDemo(w io.Writer, format string, opts ...store.Option) error {
	d := store.NewDispatcher(opts...)
	source := store.Instantiate(d, counter.Element(1))
	defer source.Dispose()
	h := store.Instantiate(d, demo.Element(source))
	defer h.Dispose()

	tree := inspect.Snapshot(h)
	switch format {
	case "dot":
		inspect.WriteDOT(w, tree)
	case "outline":
		inspect.WriteOutline(w, tree)
	case "table":
		inspect.WriteTable(w, tree)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}
