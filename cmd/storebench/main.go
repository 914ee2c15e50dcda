package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/delaneyj/storeparty/store"
	"github.com/urfave/cli/v3"
)

const (
	configKey  = "config"
	verboseKey = "verbose"
	formatKey  = "format"
)

func main() {
	cmd := &cli.Command{
		Name:  "storebench",
		Usage: "Exercise and measure store dispatch",
		Commands: []*cli.Command{
			{
				Name:   "propagate",
				Usage:  "Time a source update through width x height chains of stores",
				Flags:  commonFlags(),
				Action: runPropagate,
			},
			{
				Name:   "fanout",
				Usage:  "Time leaf updates in balanced store trees",
				Flags:  commonFlags(),
				Action: runFanout,
			},
			{
				Name:  "inspect",
				Usage: "Print a demo store tree",
				Flags: append(commonFlags(), &cli.StringFlag{
					Name:  formatKey,
					Usage: "Output format: dot, outline or table",
					Value: "outline",
				}),
				Action: runInspect,
			},
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  configKey,
			Usage: "YAML scenario file",
		},
		&cli.BoolFlag{
			Name:  verboseKey,
			Usage: "Trace dispatches to stderr",
		},
	}
}

func dispatcherOptions(cmd *cli.Command) []store.Option {
	if !cmd.Bool(verboseKey) {
		return nil
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return []store.Option{store.WithLogger(logger)}
}
