package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/penplot/penplot/config"
	"github.com/penplot/penplot/gcode"
	"github.com/penplot/penplot/slicer"
	"github.com/penplot/penplot/stream"
	"github.com/penplot/penplot/svgdoc"
	"github.com/penplot/penplot/transport"
)

var paperFlags = []cli.Flag{
	&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "paper format (see the formats command)"},
	&cli.BoolFlag{Name: "landscape", Usage: "use the paper in landscape orientation"},
	&cli.Float64Flag{Name: "margin", Aliases: []string{"m"}, Usage: "margin on every side, in `MM`"},
	&cli.BoolFlag{Name: "optimize", Usage: "reorder paths to reduce pen-up travel"},
	&cli.Float64Flag{Name: "join-radius", Usage: "merge points closer than `MM`"},
	&cli.Float64Flag{Name: "speed", Usage: "travel speed, in `MM/MIN`"},
	&cli.StringFlag{Name: "errors", Usage: "reaction to unsupported SVG content: ignore, warn or strict"},
}

var generateCommand = &cli.Command{
	Name:      "generate",
	Usage:     "compile an SVG file into one G-code program per pen color",
	ArgsUsage: "DRAWING.svg",
	Flags: append([]cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: "output `DIR`"},
	}, paperFlags...),
	Action: func(c *cli.Context) error {
		input := c.Args().First()
		if input == "" {
			return cli.Exit("missing input SVG file", 2)
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		sc, err := cfg.Slicer(logger)
		if err != nil {
			return err
		}
		paper := sc.Paper
		fmt.Fprintf(c.App.Writer, "paper: %s, %g x %g mm\n",
			config.MatchFormat(paper.Width, paper.Height), paper.Width, paper.Height)
		res, err := slicer.GenerateFile(c.Context, input, sc)
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			logger.Println("warning:", w)
		}
		if len(res.Colors) == 0 {
			return errors.Errorf("%s: nothing to draw", input)
		}

		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		for _, color := range res.Colors {
			out := res.Outputs[color]
			name := filepath.Join(c.String("out"), fmt.Sprintf("%s-%s.gcode", base, color))
			if err := writeProgram(name, out.Program); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s: %d lines, %s\n", name, len(out.Program.Lines), out.Estimate.Formatted())
			for _, d := range out.Estimate.Details() {
				fmt.Fprintln(c.App.Writer, "    "+d)
			}
		}
		return nil
	},
}

func writeProgram(name string, prog *gcode.Program) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := prog.WriteTo(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", name)
	}
	return f.Close()
}

func readLines(name string) ([]string, error) {
	var r io.Reader = os.Stdin
	if name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, errors.Wrapf(sc.Err(), "reading %s", name)
}

var estimateCommand = &cli.Command{
	Name:      "estimate",
	Usage:     "estimate the plotting time of a G-code program",
	ArgsUsage: "PROGRAM.gcode",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "speed", Usage: "travel speed, in `MM/MIN`"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		lines, err := readLines(c.Args().First())
		if err != nil {
			return err
		}
		est := gcode.Estimate(lines, cfg.Plot.TravelSpeed, cfg.PenConfig())
		fmt.Fprintln(c.App.Writer, est.Formatted())
		for _, d := range est.Details() {
			fmt.Fprintln(c.App.Writer, "    "+d)
		}
		return nil
	},
}

var normalizeCommand = &cli.Command{
	Name:      "normalize",
	Usage:     "rewrite every shape of an SVG file as a flattened path",
	ArgsUsage: "DRAWING.svg",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output `FILE` (default: stdout)"},
		&cli.StringFlag{Name: "errors", Usage: "reaction to unsupported SVG content: ignore, warn or strict"},
	},
	Action: func(c *cli.Context) error {
		input := c.Args().First()
		if input == "" {
			return cli.Exit("missing input SVG file", 2)
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		mode, err := config.ParseErrorMode(cfg.Plot.ErrorMode)
		if err != nil {
			return err
		}
		d, err := svgdoc.ReadDrawing(input, svgdoc.Options{ErrorMode: mode, Logger: logger})
		if err != nil {
			return err
		}
		w := c.App.Writer
		if out := c.String("out"); out != "" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		_, err = d.WriteTo(w)
		return err
	},
}

var streamCommand = &cli.Command{
	Name:      "stream",
	Usage:     "send a G-code program to the plotter",
	ArgsUsage: "PROGRAM.gcode",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "serial `DEVICE`"},
		&cli.IntSliceFlag{Name: "baud", Usage: "bit rates to try, in order"},
		&cli.StringFlag{Name: "url", Usage: "websocket bridge `URL` (ws:// or wss://)"},
		&cli.BoolFlag{Name: "simulate", Usage: "acknowledge every line without a plotter"},
		&cli.IntFlag{Name: "buffer", Usage: "unacknowledged lines in flight"},
		&cli.BoolFlag{Name: "line-numbers", Usage: "send numbered lines with checksums"},
		&cli.StringFlag{Name: "name", Usage: "job name (default: the file name)"},
	},
	Action: func(c *cli.Context) error {
		input := c.Args().First()
		if input == "" {
			return cli.Exit("missing input program", 2)
		}
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		lines, err := readLines(input)
		if err != nil {
			return err
		}
		t, err := openTransport(c, cfg)
		if err != nil {
			return err
		}
		defer t.Close()

		s := stream.NewStreamer(t, cfg.StreamOptions(logger))
		s.OnEvent = func(ev stream.Event) {
			if ev.Kind == stream.EventProgress {
				fmt.Fprintf(c.App.Writer, "\r%s", ev.Progress)
			}
		}
		name := c.String("name")
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		}
		res, err := s.Stream(c.Context, strings.Join(lines, "\n"), name)
		fmt.Fprintln(c.App.Writer)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s: %d lines in %s\n", res.JobName, res.Sent, res.Duration)
		return nil
	},
}

func openTransport(c *cli.Context, cfg *config.Config) (transport.Transport, error) {
	switch {
	case c.Bool("simulate"):
		logger.Println("simulated plotter")
		return transport.NewSimulator(nil), nil
	case cfg.Stream.URL != "":
		ws, err := transport.DialWebSocket(c.Context, cfg.Stream.URL)
		if err != nil {
			return nil, err
		}
		logger.Println("connected to", cfg.Stream.URL)
		return ws, nil
	case cfg.Stream.Port != "":
		s, err := transport.OpenSerial(cfg.Stream.Port, cfg.Stream.BaudRates)
		if err != nil {
			return nil, err
		}
		logger.Printf("connected to %s at %d baud", s.Name, s.Baud)
		return s, nil
	}
	return nil, cli.Exit("no plotter: use --port, --url or --simulate", 2)
}

var portsCommand = &cli.Command{
	Name:  "ports",
	Usage: "list the serial ports",
	Action: func(c *cli.Context) error {
		ports, err := transport.Ports()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			logger.Println("no serial port found")
		}
		for _, p := range ports {
			fmt.Fprintln(c.App.Writer, p)
		}
		return nil
	},
}

var formatsCommand = &cli.Command{
	Name:  "formats",
	Usage: "list the paper formats",
	Action: func(c *cli.Context) error {
		formats, err := config.Formats()
		if err != nil {
			return err
		}
		for _, f := range formats {
			fmt.Fprintf(c.App.Writer, "%-4s %4g x %4g mm\n", f.Name, f.Width, f.Height)
		}
		return nil
	},
}
