package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hieulq/nestup-evn/internal/sensor"
	"github.com/hieulq/nestup-evn/internal/snapshot"
)

// ConsumptionStats summarises one snapshot for the billing period it covers
type ConsumptionStats struct {
	Period             snapshot.Period
	LatestUpdate       time.Time
	DailyConsumption   float64 // kWh, latest day
	MonthlyConsumption float64 // kWh, period to date
	DailyCost          float64 // VNĐ, latest day
	MonthlyCost        float64 // VNĐ, period to date
}

// AverageDailyConsumption spreads the period consumption over its days
func (stats *ConsumptionStats) AverageDailyConsumption() float64 {
	days := stats.Period.Days()
	if days <= 0 {
		return 0
	}
	return stats.MonthlyConsumption / float64(days)
}

// AveragePrice is the period cost per kWh
func (stats *ConsumptionStats) AveragePrice() float64 {
	if stats.MonthlyConsumption <= 0 {
		return 0
	}
	return stats.MonthlyCost / stats.MonthlyConsumption
}

// ProjectedMonthlyCost extrapolates the period cost to a full billing month
// starting at the period start.
func (stats *ConsumptionStats) ProjectedMonthlyCost() float64 {
	days := stats.Period.Days()
	if days <= 0 {
		return 0
	}
	start := stats.Period.Start
	full := snapshot.Period{Start: start, End: start.AddDate(0, 1, -1)}.Days()
	return stats.MonthlyCost / float64(days) * float64(full)
}

type Analyzer struct {
	source snapshot.Source
	logger *zap.Logger
}

func NewAnalyzer(source snapshot.Source, logger *zap.Logger) *Analyzer {
	return &Analyzer{source: source, logger: logger}
}

// Analyze loads the current snapshot and summarises it
func (a *Analyzer) Analyze(ctx context.Context) (*ConsumptionStats, sensor.Data, error) {
	data, err := a.source.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}
	stats, err := Summarize(data)
	if err != nil {
		return nil, data, err
	}

	if stats.DailyConsumption > stats.MonthlyConsumption {
		a.logger.Warn("daily consumption exceeds period consumption",
			zap.Float64("daily_kwh", stats.DailyConsumption),
			zap.Float64("monthly_kwh", stats.MonthlyConsumption))
	}
	if stats.DailyCost > stats.MonthlyCost {
		a.logger.Warn("daily cost exceeds period cost",
			zap.Float64("daily_cost", stats.DailyCost),
			zap.Float64("monthly_cost", stats.MonthlyCost))
	}
	a.logger.Debug("snapshot analyzed",
		zap.Stringer("period", stats.Period),
		zap.Time("latest_update", stats.LatestUpdate))

	return stats, data, nil
}

// Summarize reads the values through the sensor descriptors so that a
// missing key fails the same way it does for entities.
func Summarize(data sensor.Data) (*ConsumptionStats, error) {
	period, err := snapshot.BillingPeriod(data)
	if err != nil {
		return nil, fmt.Errorf("billing period: %w", err)
	}

	stats := &ConsumptionStats{Period: period}
	fields := []struct {
		key string
		dst *float64
	}{
		{sensor.KeyEconPerDay, &stats.DailyConsumption},
		{sensor.KeyEconPerMonth, &stats.MonthlyConsumption},
		{sensor.KeyEcostPerDay, &stats.DailyCost},
		{sensor.KeyEcostPerMonth, &stats.MonthlyCost},
	}
	for _, f := range fields {
		v, err := readFloat(data, f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	d, _ := sensor.Lookup(sensor.KeyLatestUpdate)
	v, err := d.Read(data)
	if err != nil {
		return nil, err
	}
	ts, ok := v.(time.Time)
	if !ok {
		return nil, fmt.Errorf("%w: %s has type %T", snapshot.ErrInvalidValue, sensor.KeyLatestUpdate, v)
	}
	stats.LatestUpdate = ts

	return stats, nil
}

func readFloat(data sensor.Data, key string) (float64, error) {
	d, ok := sensor.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("no descriptor for %s", key)
	}
	v, err := d.Read(data)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s has type %T", snapshot.ErrInvalidValue, key, v)
	}
	return f, nil
}
