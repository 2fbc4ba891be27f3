// Command penplot compiles SVG drawings into G-code for a polar pen
// plotter and streams the programs to the machine.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/penplot/penplot/config"
)

var logger = log.New(os.Stderr, "penplot: ", log.LstdFlags)

func newApp() *cli.App {
	return &cli.App{
		Name:  "penplot",
		Usage: "compile SVG drawings to plotter G-code and stream them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration `FILE` (yaml, json or toml)",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "only report errors",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("quiet") {
				logger.SetOutput(io.Discard)
			}
			return nil
		},
		Commands: []*cli.Command{
			generateCommand,
			estimateCommand,
			normalizeCommand,
			streamCommand,
			portsCommand,
			formatsCommand,
		},
	}
}

func main() {
	app := newApp()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "penplot:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the
// command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("format") {
		cfg.Paper.Format = c.String("format")
		cfg.Paper.Width, cfg.Paper.Height = 0, 0
	}
	if c.IsSet("landscape") {
		cfg.Paper.Landscape = c.Bool("landscape")
	}
	if c.IsSet("margin") {
		m := c.Float64("margin")
		cfg.Paper.Margins = config.Margins{Top: m, Right: m, Bottom: m, Left: m}
	}
	if c.IsSet("optimize") {
		cfg.Plot.Optimize = c.Bool("optimize")
	}
	if c.IsSet("join-radius") {
		cfg.Plot.JoinRadius = c.Float64("join-radius")
	}
	if c.IsSet("speed") {
		cfg.Plot.TravelSpeed = c.Float64("speed")
	}
	if c.IsSet("errors") {
		cfg.Plot.ErrorMode = c.String("errors")
	}
	if c.IsSet("port") {
		cfg.Stream.Port = c.String("port")
	}
	if c.IsSet("baud") {
		cfg.Stream.BaudRates = c.IntSlice("baud")
	}
	if c.IsSet("url") {
		cfg.Stream.URL = c.String("url")
	}
	if c.IsSet("buffer") {
		cfg.Stream.BufferCapacity = c.Int("buffer")
	}
	if c.IsSet("line-numbers") {
		cfg.Stream.LineNumbers = c.Bool("line-numbers")
	}
	return cfg, nil
}
