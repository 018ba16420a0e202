package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"github.com/zoomoid/ipfix-inspect"
	"github.com/zoomoid/ipfix-inspect/internal/config"
	"github.com/zoomoid/ipfix-inspect/internal/lifecycle"
	"github.com/zoomoid/ipfix-inspect/internal/logging"
	"github.com/zoomoid/ipfix-inspect/internal/printing"
)

func flags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "load configuration from `FILE`",
			EnvVar: "IPFIX_INSPECT_CONFIG",
		},
		cli.StringFlag{
			Name:   "listen, l",
			Usage:  "UDP `ADDRESS` to receive IPFIX messages on (default: 0.0.0.0:9995)",
			EnvVar: "IPFIX_INSPECT_LISTEN",
		},
		cli.StringFlag{
			Name:   "transport",
			Usage:  "transport to receive IPFIX messages on: udp or tcp (default: udp)",
			EnvVar: "IPFIX_INSPECT_TRANSPORT",
		},
		cli.StringFlag{
			Name:  "file, f",
			Usage: "replay the IPFIX `FILE` instead of listening on UDP",
		},
		cli.StringFlag{
			Name:  "exporter",
			Usage: "source `ADDRESS` attributed to messages replayed from a file (default: 0.0.0.0)",
		},
		cli.DurationFlag{
			Name:  "duration, t",
			Usage: "stop after `DURATION` (e.g. 30s, 5m); 0 runs until interrupted",
		},
		cli.DurationFlag{
			Name:  "interval, i",
			Usage: "print an interim report every `DURATION`; 0 only reports on shutdown",
		},
		cli.StringFlag{
			Name:  "format",
			Usage: "report format: table, yaml or json (default: table)",
		},
		cli.IntFlag{
			Name:  "top-templates",
			Usage: "number of templates to list (default: 10)",
		},
		cli.IntFlag{
			Name:  "top-fields",
			Usage: "number of field types to list (default: 20)",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "log level: debug, info, warn, error (default: info)",
			EnvVar: "IPFIX_INSPECT_LOG_LEVEL",
		},
		cli.StringFlag{
			Name:  "log-format",
			Usage: "log format: text or json (default: text)",
		},
		cli.StringFlag{
			Name:   "metrics",
			Usage:  "serve prometheus metrics on `ADDRESS`; disabled if empty",
			EnvVar: "IPFIX_INSPECT_METRICS",
		},
	}
}

// loadConfiguration applies flags on top of the configuration file and the defaults
func loadConfiguration(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("transport") {
		cfg.Listen.Transport = c.String("transport")
	}
	if c.IsSet("listen") {
		cfg.Listen.Address = c.String("listen")
	}
	if c.IsSet("file") {
		cfg.Input.File = c.String("file")
	}
	if c.IsSet("exporter") {
		cfg.Input.Exporter = c.String("exporter")
	}
	if c.IsSet("duration") {
		cfg.Run.Duration = c.Duration("duration")
	}
	if c.IsSet("interval") {
		cfg.Run.ReportInterval = c.Duration("interval")
	}
	if c.IsSet("format") {
		cfg.Report.Format = c.String("format")
	}
	if c.IsSet("top-templates") {
		cfg.Report.TopTemplates = c.Int("top-templates")
	}
	if c.IsSet("top-fields") {
		cfg.Report.TopFieldTypes = c.Int("top-fields")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("metrics") {
		cfg.Metrics.Address = c.String("metrics")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfiguration(c)
	if err != nil {
		return err
	}

	logger, err := logging.New(c.App.ErrWriter, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	ipfix.SetLogger(logger)
	ctx := ipfix.IntoContext(context.Background(), logger)

	if cfg.Metrics.Address != "" {
		stop := serveMetrics(cfg.Metrics.Address, logger)
		defer stop()
	}

	source, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	decoder := ipfix.NewDecoder(nil)
	collector := ipfix.NewCollector(source, decoder)

	report := reportFunc(c.App.Writer, decoder.Statistics(), cfg)
	manager := lifecycle.NewManager(collector, source, report, logger)

	return manager.Run(ctx, lifecycle.Options{
		Duration:       cfg.Run.Duration,
		ReportInterval: cfg.Run.ReportInterval,
	})
}

func openSource(ctx context.Context, cfg *config.Config) (ipfix.PacketSource, error) {
	if cfg.Input.File != "" {
		f, err := os.Open(cfg.Input.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open IPFIX file: %w", err)
		}
		return ipfix.NewFileReader(f, cfg.ExporterAddr()), nil
	}

	if cfg.Listen.Transport == "tcp" {
		listener := ipfix.NewTCPListener(cfg.Listen.Address)
		if err := listener.Listen(ctx); err != nil {
			return nil, err
		}
		return listener, nil
	}

	listener := ipfix.NewUDPListener(cfg.Listen.Address, ipfix.UDPListenerOptions{
		BufferSize: cfg.Listen.BufferSize,
		ReusePort:  cfg.Listen.ReusePort,
	})
	if err := listener.Listen(ctx); err != nil {
		return nil, err
	}
	return listener, nil
}

func reportFunc(w io.Writer, stats *ipfix.Statistics, cfg *config.Config) lifecycle.ReportFunc {
	opts := ipfix.ReportOptions{
		TopTemplates:  cfg.Report.TopTemplates,
		TopFieldTypes: cfg.Report.TopFieldTypes,
	}
	return func(final bool) error {
		report := ipfix.NewReport(stats.Snapshot(), opts)
		if !final && cfg.Report.Format == printing.FormatTable {
			fmt.Fprintf(w, "--- interim report ---\n")
		}
		return printing.Render(w, report, cfg.Report.Format)
	}
}

func serveMetrics(addr string, logger logr.Logger) (stop func()) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(ipfix.Collectors()...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
