package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/delaneyj/storeparty/store"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

func runPropagate(ctx context.Context, cmd *cli.Command) error {
	scenario, err := loadScenario(cmd.String(configKey))
	if err != nil {
		return err
	}
	start := time.Now()
	log.Printf("propagate started")
	defer func() {
		log.Printf("propagate finished in %v", time.Since(start))
	}()

	return propagate(os.Stdout, scenario.Propagate, dispatcherOptions(cmd)...)
}

type propagateResult struct {
	width, height int
	final         int
	calc          *tachymeter.Metrics
}

// propagateOnce builds width chains of height links over one source and
// times iterations source updates.
func propagateOnce(width, height, iterations int, opts ...store.Option) (propagateResult, error) {
	d := store.NewDispatcher(opts...)
	source := store.Instantiate(d, counter.Element(0))
	defer source.Dispose()
	src, _ := store.SelfOf[int, int](source)

	root := store.Instantiate(d, chains.Element(chainsProps{width: width, height: height, source: source}))
	if err := root.Err(); err != nil {
		return propagateResult{}, err
	}

	published := 0
	sub := root.Subscribe(store.Observer{
		OnNext: func(any, store.DispatchFunc) { published++ },
	})
	defer sub.Cancel()
	defer root.Dispose()

	tach := tachymeter.New(&tachymeter.Config{Size: iterations})
	for range iterations {
		start := time.Now()
		src.UpdateState(addOne, nil)
		tach.AddTime(time.Since(start))
	}
	if published != iterations {
		return propagateResult{}, fmt.Errorf("%dx%d: published %d times for %d updates", width, height, published, iterations)
	}

	return propagateResult{
		width:  width,
		height: height,
		final:  store.ValueOf[int](root),
		calc:   tach.Calc(),
	}, nil
}

func propagate(w io.Writer, cfg PropagateConfig, opts ...store.Option) error {
	tbl := table.NewWriter()
	tbl.SetTitle("Store propagation")
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"benchmark", "output", "avg", "min", "p75", "p99", "max"})

	for _, width := range cfg.Widths {
		for _, height := range cfg.Heights {
			res, err := propagateOnce(width, height, cfg.Iterations, opts...)
			if err != nil {
				return err
			}
			tbl.AppendRow(table.Row{
				fmt.Sprintf("propagate: %d * %d", res.width, res.height),
				res.final,
				res.calc.Time.Avg,
				res.calc.Time.Min,
				res.calc.Time.P75,
				res.calc.Time.P99,
				res.calc.Time.Max,
			})
		}
	}
	tbl.Render()
	return nil
}
