package snapshot

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/hieulq/nestup-evn/internal/sensor"
)

// Write stores data as YAML atomically (write to temp, then rename). Times
// are written in the layouts Parse reads back.
func Write(path string, data sensor.Data) error {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	if t, ok := data[sensor.KeyLatestUpdate].(time.Time); ok {
		out[sensor.KeyLatestUpdate] = t.Format(time.RFC3339)
	}
	for _, key := range dateKeys {
		if t, ok := data[key].(time.Time); ok {
			out[key] = t.Format("02/01/2006")
		}
	}

	buf, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp snapshot file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming snapshot file: %w", err)
	}

	return nil
}

// Sample returns a complete mapping with plausible values, for trying out
// the tool before the fetch collaborator runs.
func Sample(now time.Time) sensor.Data {
	today := NormalizeDate(now)
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	if today.Day() == 1 {
		from = from.AddDate(0, -1, 0)
	}
	to := today.AddDate(0, 0, -1)
	days := float64(Period{Start: from, End: to}.Days())

	return sensor.Data{
		sensor.KeyEconPerDay:    11.0,
		sensor.KeyEconPerMonth:  11.0 * days,
		sensor.KeyEcostPerDay:   33000.0,
		sensor.KeyEcostPerMonth: 33000.0 * days,
		sensor.KeyLatestUpdate:  now.Truncate(time.Second),
		sensor.KeyFromDate:      from,
		sensor.KeyToDate:        to,
	}
}
