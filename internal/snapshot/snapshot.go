// Package snapshot reads the data mapping that the fetch collaborator writes
// to disk and normalises its values for the sensor descriptors.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/hieulq/nestup-evn/internal/sensor"
)

// ErrInvalidValue is returned for values that cannot be normalised
var ErrInvalidValue = errors.New("invalid value")

var (
	numericKeys = []string{
		sensor.KeyEconPerDay,
		sensor.KeyEconPerMonth,
		sensor.KeyEcostPerDay,
		sensor.KeyEcostPerMonth,
	}
	dateKeys = []string{sensor.KeyFromDate, sensor.KeyToDate}

	timestampLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
	}
	// Commas are thousands separators only when they group digits by three.
	groupedNumber = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+(\.\d+)?$`)

	dateLayouts = []string{
		"02/01/2006",
		"2006-01-02",
		"02.01.2006",
		"02-01-2006",
	}
)

// Source yields the current data mapping
type Source interface {
	Load(ctx context.Context) (sensor.Data, error)
}

// FileSource reads a YAML or JSON snapshot from disk on every Load
type FileSource struct {
	Path     string
	Location *time.Location
}

func NewFileSource(path string, loc *time.Location) *FileSource {
	if loc == nil {
		loc = time.Local
	}
	return &FileSource{Path: path, Location: loc}
}

func (s *FileSource) Load(ctx context.Context) (sensor.Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	data, err := Parse(buf, s.Location)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.Path, err)
	}
	return data, nil
}

// Parse decodes a snapshot document. JSON is accepted since it is valid YAML.
func Parse(buf []byte, loc *time.Location) (sensor.Data, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return Normalize(raw, loc)
}

// Normalize converts known keys to the types the descriptors expose:
// float64 for consumption and cost, time.Time for the update timestamp and
// the billing dates. Unknown keys are copied as they are; absent known keys
// stay absent.
func Normalize(raw map[string]any, loc *time.Location) (sensor.Data, error) {
	if loc == nil {
		loc = time.Local
	}
	data := make(sensor.Data, len(raw))
	for k, v := range raw {
		data[k] = v
	}

	var errs []error
	for _, key := range numericKeys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err))
			continue
		}
		data[key] = f
	}

	if v, ok := raw[sensor.KeyLatestUpdate]; ok && v != nil {
		ts, err := toTime(v, timestampLayouts, loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidValue, sensor.KeyLatestUpdate, err))
		} else {
			data[sensor.KeyLatestUpdate] = ts
		}
	}

	for _, key := range dateKeys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		d, err := toTime(v, dateLayouts, loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err))
			continue
		}
		data[key] = NormalizeDate(d.In(loc))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return data, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, checkFinite(n)
	case float32:
		return float64(n), checkFinite(float64(n))
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), " ", "")
		if strings.Contains(s, ",") {
			if !groupedNumber.MatchString(s) {
				return 0, fmt.Errorf("misplaced thousands separator: %q", n)
			}
			s = strings.ReplaceAll(s, ",", "")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return f, checkFinite(f)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func checkFinite(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a finite number: %v", f)
	}
	return nil
}

func toTime(v any, layouts []string, loc *time.Location) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		var parseErr error
		for _, layout := range layouts {
			parsed, err := time.ParseInLocation(layout, s, loc)
			if err == nil {
				return parsed, nil
			}
			parseErr = err
		}
		return time.Time{}, fmt.Errorf("unrecognised time %q: %v", t, parseErr)
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}
}
