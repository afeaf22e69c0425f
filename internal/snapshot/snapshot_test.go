package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hieulq/nestup-evn/internal/sensor"
)

var hcm = time.FixedZone("ICT", 7*60*60)

func TestParse(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		data, err := Parse([]byte(`
econ_per_day: 12.5
econ_per_month: "1,230.25"
ecost_per_day: 37500
ecost_per_month: "3,690,000"
latest_update: "14/05/2024 08:30:00"
from_date: "25/04/2024"
to_date: "2024-05-13"
meter_serial: "12345"
`), hcm)
		require.NoError(t, err)
		require.NoError(t, sensor.Check(data))

		assert.Equal(t, 12.5, data[sensor.KeyEconPerDay])
		assert.Equal(t, 1230.25, data[sensor.KeyEconPerMonth])
		assert.Equal(t, 37500.0, data[sensor.KeyEcostPerDay])
		assert.Equal(t, 3690000.0, data[sensor.KeyEcostPerMonth])
		assert.True(t, time.Date(2024, 5, 14, 8, 30, 0, 0, hcm).Equal(data[sensor.KeyLatestUpdate].(time.Time)))
		assert.True(t, time.Date(2024, 4, 25, 0, 0, 0, 0, hcm).Equal(data[sensor.KeyFromDate].(time.Time)))
		assert.True(t, time.Date(2024, 5, 13, 0, 0, 0, 0, hcm).Equal(data[sensor.KeyToDate].(time.Time)))
		assert.Equal(t, "12345", data["meter_serial"])
	})

	t.Run("json", func(t *testing.T) {
		data, err := Parse([]byte(`{"econ_per_day": 3, "latest_update": "2024-05-14T08:30:00+07:00"}`), hcm)
		require.NoError(t, err)
		assert.Equal(t, 3.0, data[sensor.KeyEconPerDay])
		assert.IsType(t, time.Time{}, data[sensor.KeyLatestUpdate])

		err = sensor.Check(data)
		assert.ErrorIs(t, err, sensor.ErrMissingValue)
	})

	t.Run("invalid values are joined", func(t *testing.T) {
		_, err := Parse([]byte(`
econ_per_day: lots
econ_per_month: "12,5"
ecost_per_day: "1,2,3"
latest_update: yesterday
to_date: 2024/13/45
`), hcm)
		require.ErrorIs(t, err, ErrInvalidValue)
		assert.ErrorContains(t, err, sensor.KeyEconPerDay)
		assert.ErrorContains(t, err, sensor.KeyEconPerMonth)
		assert.ErrorContains(t, err, sensor.KeyEcostPerDay)
		assert.ErrorContains(t, err, "misplaced thousands separator")
		assert.ErrorContains(t, err, sensor.KeyLatestUpdate)
		assert.ErrorContains(t, err, sensor.KeyToDate)
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := Parse([]byte("econ_per_day: [1"), hcm)
		assert.ErrorContains(t, err, "parsing snapshot")
	})
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evn-data.yaml")
	now := time.Date(2024, 5, 14, 8, 30, 0, 0, hcm)

	require.NoError(t, Write(path, Sample(now)))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	src := NewFileSource(path, hcm)
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, sensor.Check(data))
	assert.True(t, now.Equal(data[sensor.KeyLatestUpdate].(time.Time)))
	assert.Equal(t, 11.0, data[sensor.KeyEconPerDay])

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := src.Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(dir, "nope.yaml"), nil).Load(context.Background())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestBillingPeriod(t *testing.T) {
	now := time.Date(2024, 5, 14, 8, 30, 0, 0, hcm)

	p, err := BillingPeriod(Sample(now))
	require.NoError(t, err)
	assert.Equal(t, 13, p.Days())
	assert.Equal(t, "2024-05-01 to 2024-05-13 (13 days)", p.String())
	assert.True(t, p.Contains(time.Date(2024, 5, 13, 23, 0, 0, 0, hcm)))
	assert.False(t, p.Contains(time.Date(2024, 5, 14, 0, 0, 0, 0, hcm)))

	t.Run("first of month rolls back", func(t *testing.T) {
		p, err := BillingPeriod(Sample(time.Date(2024, 3, 1, 9, 0, 0, 0, hcm)))
		require.NoError(t, err)
		assert.Equal(t, "2024-02-01 to 2024-02-29 (29 days)", p.String())
	})

	t.Run("inverted period", func(t *testing.T) {
		data := Sample(now)
		data[sensor.KeyFromDate], data[sensor.KeyToDate] = data[sensor.KeyToDate], data[sensor.KeyFromDate]
		_, err := BillingPeriod(data)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("missing bound", func(t *testing.T) {
		data := Sample(now)
		delete(data, sensor.KeyToDate)
		_, err := BillingPeriod(data)
		assert.ErrorIs(t, err, sensor.ErrMissingValue)
	})

	t.Run("unnormalised value", func(t *testing.T) {
		data := Sample(now)
		data[sensor.KeyFromDate] = "01/05/2024"
		_, err := BillingPeriod(data)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
}
