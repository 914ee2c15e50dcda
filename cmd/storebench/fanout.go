package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/delaneyj/storeparty/store"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

func runFanout(ctx context.Context, cmd *cli.Command) error {
	scenario, err := loadScenario(cmd.String(configKey))
	if err != nil {
		return err
	}
	log.Print("Starting fanout benchmark, please wait...")
	defer log.Print("Finished fanout benchmark")

	return fanout(os.Stdout, scenario.Fanout, dispatcherOptions(cmd)...)
}

type fanoutResult struct {
	stores    int
	leaves    int
	sum       int
	published int
	duration  time.Duration
}

// fanoutOnce builds a balanced tree and bumps one leaf per iteration, cycling
// through the leaves.
func fanoutOnce(cfg FanoutConfig, opts ...store.Option) (fanoutResult, error) {
	d := store.NewDispatcher(opts...)
	root := store.Instantiate(d, branch.Element(branchProps{width: cfg.Width, depth: cfg.Depth}))
	if err := root.Err(); err != nil {
		return fanoutResult{}, err
	}
	defer root.Dispose()

	res := fanoutResult{}
	root.Walk(func(n store.Node) bool {
		res.stores++
		return true
	})
	counters := leaves(root)
	res.leaves = len(counters)

	sub := root.Subscribe(store.Observer{
		OnNext: func(any, store.DispatchFunc) { res.published++ },
	})
	defer sub.Cancel()

	start := time.Now()
	for i := range cfg.Iterations {
		counters[i%len(counters)].UpdateState(addOne, nil)
	}
	res.duration = time.Since(start)
	res.sum = store.ValueOf[int](root)

	if res.sum != cfg.Iterations {
		return res, fmt.Errorf("%s: sum %d after %d updates", cfg.Name, res.sum, cfg.Iterations)
	}
	return res, nil
}

func fanout(w io.Writer, cfgs []FanoutConfig, opts ...store.Option) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{
		"test", "size", "stores", "leaves", "nTimes", "time", "published", "updateRate",
	})

	for _, cfg := range cfgs {
		log.Printf("Running '%s' config", cfg.Name)
		res, err := fanoutOnce(cfg, opts...)
		if err != nil {
			return err
		}

		updateRate := float64(cfg.Iterations) / (float64(res.duration) / float64(time.Millisecond))
		table.Append([]string{
			cfg.Name,
			fmt.Sprintf("%dx%d", cfg.Width, cfg.Depth),
			humanize.Comma(int64(res.stores)),
			humanize.Comma(int64(res.leaves)),
			humanize.Comma(int64(cfg.Iterations)),
			fmt.Sprint(res.duration),
			humanize.Comma(int64(res.published)),
			humanize.Comma(int64(updateRate)),
		})
	}
	table.Render()
	return nil
}
