// Command nestup-evn turns the EVN consumption snapshot written by the fetch
// collaborator into Home Assistant style sensor entities.
//
// Usage:
//
//	nestup-evn [flags]
//
// Flags:
//
//	-config string    Configuration file path (default "config.yaml")
//	-customer string  Customer ID, overrides customerId from the config
//	-areas            List EVN areas and exit
//	-sensors          List sensor descriptors and exit
//	-analyze          Resolve the customer's area and suggest a configuration
//	-report           Print the current sensor values
//	-sample string    Write a sample snapshot to the given path and exit
//	-serve            Serve areas, sensors and states over HTTP
//	-debug            Enable debug logging
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hieulq/nestup-evn/internal/analyzer"
	"github.com/hieulq/nestup-evn/internal/config"
	"github.com/hieulq/nestup-evn/internal/entity"
	"github.com/hieulq/nestup-evn/internal/evn"
	"github.com/hieulq/nestup-evn/internal/logging"
	"github.com/hieulq/nestup-evn/internal/models"
	"github.com/hieulq/nestup-evn/internal/sensor"
	"github.com/hieulq/nestup-evn/internal/server"
	"github.com/hieulq/nestup-evn/internal/setup"
	"github.com/hieulq/nestup-evn/internal/snapshot"
)

func printAreas() {
	fmt.Printf("%-10s %-24s %-9s %-5s %s\n", "Name", "Location", "Supported", "Auth", "Patterns")
	fmt.Printf("%s\n", strings.Repeat("-", 71))
	for _, a := range evn.Areas() {
		fmt.Printf("%-10s %-24s %-9t %-5t %s\n",
			a.Name, a.Location, a.Supported, a.AuthNeeded, strings.Join(a.Patterns, ", "))
	}
}

func printSensors() {
	fmt.Printf("%-16s %-30s %-6s %-12s %s\n", "Key", "Name", "Unit", "State class", "Device class")
	fmt.Printf("%s\n", strings.Repeat("-", 83))
	for _, d := range sensor.Descriptors() {
		fmt.Printf("%-16s %-30s %-6s %-12s %s\n",
			d.Key, d.Name, d.Unit, d.StateClass, d.DeviceClass)
	}
}

func printReport(area evn.Area, stats *analyzer.ConsumptionStats, entities []models.Entity) {
	fmt.Printf("\nEVN report for %s\n", area)
	fmt.Printf("Billing period: %s\n", stats.Period)
	fmt.Printf("Last update:    %s\n\n", stats.LatestUpdate.Format("2006-01-02 15:04:05 MST"))

	fmt.Printf("Sensors:\n")
	fmt.Printf("-------\n")
	for _, e := range entities {
		fmt.Printf("%-30s %25s %s\n",
			e.Attributes.FriendlyName, e.State, e.Attributes.UnitOfMeasurement)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("-------\n")
	fmt.Printf("Average per day:      %.2f kWh\n", stats.AverageDailyConsumption())
	fmt.Printf("Average price:        %.0f %s/kWh\n", stats.AveragePrice(), sensor.UnitVND)
	fmt.Printf("Projected month cost: %.0f %s\n", stats.ProjectedMonthlyCost(), sensor.UnitVND)
}

func report(ctx context.Context, cfg *config.Config, area evn.Area, logger *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	source := snapshot.NewFileSource(cfg.SnapshotPath, loc)
	stats, data, err := analyzer.NewAnalyzer(source, logger).Analyze(ctx)
	if err != nil {
		return fmt.Errorf("analyzing snapshot: %w", err)
	}

	entities, err := entity.Build(area, cfg.CustomerID, sensor.Descriptors(), data, time.Now())
	if err != nil {
		logger.Warn("some sensors are unavailable", zap.Error(err))
	}
	printReport(area, stats, entities)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, area evn.Area, logger *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	srv, err := server.New(server.Options{
		Addr:            cfg.Address(),
		Area:            area,
		CustomerID:      cfg.CustomerID,
		RefreshInterval: cfg.RefreshInterval,
		StateTTL:        cfg.StateTTL,
	}, snapshot.NewFileSource(cfg.SnapshotPath, loc), logger)
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Run(ctx)
}

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	customer := flag.String("customer", "", "Customer ID, overrides customerId from the config")
	areas := flag.Bool("areas", false, "List EVN areas")
	sensors := flag.Bool("sensors", false, "List sensor descriptors")
	analyze := flag.Bool("analyze", false, "Resolve the customer's area and suggest configuration")
	showReport := flag.Bool("report", false, "Print the current sensor values")
	sample := flag.String("sample", "", "Write a sample snapshot to this path")
	serveHTTP := flag.Bool("serve", false, "Serve areas, sensors and states over HTTP")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Parse()

	if *areas {
		printAreas()
		return
	}
	if *sensors {
		printSensors()
		return
	}

	path := *configFile
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && *customer != "" {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = *debug
	if *customer != "" {
		cfg.CustomerID = *customer
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	logger, err := logging.NewLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *analyze {
		hint, err := setup.AnalyzeSetup(cfg.CustomerID)
		if err != nil {
			logger.Fatal("setup analysis failed", zap.Error(err))
		}
		setup.PrintSetupHint(os.Stdout, hint)
		return
	}

	if *sample != "" {
		if err := snapshot.Write(*sample, snapshot.Sample(time.Now())); err != nil {
			logger.Fatal("writing sample snapshot failed", zap.Error(err))
		}
		logger.Info("sample snapshot written", zap.String("path", *sample))
		return
	}

	area, err := cfg.Validate()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	logger.Debug("configuration loaded",
		zap.String("customer_id", cfg.CustomerID),
		zap.String("area", string(area.Name)),
		zap.String("snapshot", cfg.SnapshotPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *showReport {
		if err := report(ctx, cfg, area, logger); err != nil {
			logger.Fatal("report failed", zap.Error(err))
		}
		return
	}

	if *serveHTTP {
		if err := serve(ctx, cfg, area, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("server stopped with error", zap.Error(err))
		}
		return
	}

	flag.Usage()
}
