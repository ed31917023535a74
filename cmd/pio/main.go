// Command pio inspects PIO dump files, appends processor id arrays to them
// and estimates clone cell overhead for processor counts.
package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/robert-malhotra/go-pio/internal/config"
	"github.com/robert-malhotra/go-pio/internal/logx"
	"github.com/robert-malhotra/go-pio/internal/metrics"
	"github.com/robert-malhotra/go-pio/internal/metrics/fileexporter"
)

var version = "development"

// env is the state shared by all commands, set up before any of them runs.
type env struct {
	cfg      config.Config
	log      zerolog.Logger
	exporter metrics.Exporter
}

func newApp() *cli.App {
	e := &env{log: zerolog.Nop()}

	app := &cli.App{
		Name:    "pio",
		Usage:   "Inspect and extend PIO dump files",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "", TakesFile: true, Usage: "TOML configuration file", EnvVars: []string{"PIO_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Set log level (trace, debug, info, warn, error)", EnvVars: []string{"PIO_LOG_LEVEL"}},
			&cli.StringFlag{Name: "metrics-file", Value: "", TakesFile: true, Usage: "Write prometheus metrics to this file on exit", EnvVars: []string{"PIO_METRICS_FILE"}},
		},
		Before: func(c *cli.Context) error {
			return e.setup(c)
		},
		After: func(c *cli.Context) error {
			if e.exporter == nil {
				return nil
			}
			if err := e.exporter.Export(); err != nil {
				return errors.Wrap(err, "exporting metrics")
			}
			return nil
		},
	}

	app.Commands = []*cli.Command{
		infoCommand(e),
		dumpCommand(e),
		addProcIDCommand(e),
		clonesCommand(e),
		cloneInfoCommand(e),
		exportProcIDCommand(e),
		verifyCommand(e),
	}
	return app
}

func (e *env) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("metrics-file") {
		cfg.MetricsFile = c.String("metrics-file")
	}

	log, err := logx.NewLoggerTo(c.App.ErrWriter, cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.MetricsFile != "" {
		metrics.Register()
		e.exporter = fileexporter.New(cfg.MetricsFile)
	}

	e.cfg = cfg
	e.log = log
	return nil
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log, _ := logx.NewLogger("error")
		log.Fatal().Err(err).Msg("pio failed")
	}
}
