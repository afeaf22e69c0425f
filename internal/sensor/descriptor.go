// Package sensor describes the EVN sensor entities: which data key each one
// reads and how it is presented.
package sensor

import (
	"errors"
	"fmt"
)

// Keys populated by the fetch collaborator
const (
	KeyEconPerDay    = "econ_per_day"
	KeyEconPerMonth  = "econ_per_month"
	KeyEcostPerDay   = "ecost_per_day"
	KeyEcostPerMonth = "ecost_per_month"
	KeyLatestUpdate  = "latest_update"
	KeyFromDate      = "from_date"
	KeyToDate        = "to_date"
)

const (
	UnitKWh = "kWh"
	UnitVND = "VNĐ"
)

// StateClass follows the Home Assistant sensor state classes
type StateClass string

const StateClassMeasurement StateClass = "measurement"

// DeviceClass follows the Home Assistant sensor device classes
type DeviceClass string

const (
	DeviceClassNone      DeviceClass = ""
	DeviceClassEnergy    DeviceClass = "energy"
	DeviceClassTimestamp DeviceClass = "timestamp"
)

// ErrMissingValue is returned when a data mapping lacks a descriptor's key
var ErrMissingValue = errors.New("missing value")

// Data is the mapping produced by the fetch collaborator
type Data map[string]any

// Descriptor describes one sensor entity
type Descriptor struct {
	Key         string
	Name        string
	Icon        string
	Unit        string
	StateClass  StateClass
	DeviceClass DeviceClass
	Value       func(Data) (any, error)
}

// Read extracts the descriptor's value from data
func (d Descriptor) Read(data Data) (any, error) {
	if d.Value == nil {
		return nil, fmt.Errorf("sensor %s: no value function", d.Key)
	}
	return d.Value(data)
}

// Field returns an extraction function reading key out of a data mapping
func Field(key string) func(Data) (any, error) {
	return func(data Data) (any, error) {
		v, ok := data[key]
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingValue, key)
		}
		return v, nil
	}
}

var descriptors = [...]Descriptor{
	{
		Key:         KeyEconPerDay,
		Name:        "Chỉ số ngày (mới nhất)",
		Icon:        "mdi:flash-outline",
		Unit:        UnitKWh,
		StateClass:  StateClassMeasurement,
		DeviceClass: DeviceClassEnergy,
		Value:       Field(KeyEconPerDay),
	},
	{
		Key:         KeyEconPerMonth,
		Name:        "Chỉ số tháng (tạm tính)",
		Icon:        "mdi:flash-outline",
		Unit:        UnitKWh,
		StateClass:  StateClassMeasurement,
		DeviceClass: DeviceClassEnergy,
		Value:       Field(KeyEconPerMonth),
	},
	{
		Key:        KeyEcostPerDay,
		Name:       "Tiền điện ngày (mới nhất)",
		Icon:       "mdi:cash-multiple",
		Unit:       UnitVND,
		StateClass: StateClassMeasurement,
		Value:      Field(KeyEcostPerDay),
	},
	{
		Key:        KeyEcostPerMonth,
		Name:       "Tiền điện tháng (tạm tính)",
		Icon:       "mdi:cash-multiple",
		Unit:       UnitVND,
		StateClass: StateClassMeasurement,
		Value:      Field(KeyEcostPerMonth),
	},
	{
		Key:         KeyLatestUpdate,
		Name:        "Lần cập nhật cuối",
		Icon:        "mdi:calendar-check",
		DeviceClass: DeviceClassTimestamp,
		Value:       Field(KeyLatestUpdate),
	},
	{
		Key:   KeyFromDate,
		Name:  "Ngày bắt đầu hóa đơn tháng",
		Icon:  "mdi:calendar-clock",
		Value: Field(KeyFromDate),
	},
	{
		Key:   KeyToDate,
		Name:  "Ngày mới nhất",
		Icon:  "mdi:calendar-clock",
		Value: Field(KeyToDate),
	},
}

// Descriptors returns the sensor descriptors in declaration order
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors[:])
	return out
}

// Keys returns the data keys read by the descriptors
func Keys() []string {
	keys := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		keys = append(keys, d.Key)
	}
	return keys
}

// Lookup finds a descriptor by key
func Lookup(key string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Key == key {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Check reads every descriptor and reports all values that cannot be read
func Check(data Data) error {
	var errs []error
	for _, d := range descriptors {
		if _, err := d.Read(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
