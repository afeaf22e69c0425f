// Package entity turns sensor descriptors and a data mapping into Home
// Assistant style entity states.
package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hieulq/nestup-evn/internal/evn"
	"github.com/hieulq/nestup-evn/internal/models"
	"github.com/hieulq/nestup-evn/internal/sensor"
)

const domain = "sensor"

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/hieulq/nestup-evn"))

// Build creates one entity per descriptor, in descriptor order. Values that
// cannot be read leave their entity unavailable and are reported in the
// joined error; the entities are returned either way.
func Build(area evn.Area, customerID string, descriptors []sensor.Descriptor, data sensor.Data, now time.Time) ([]models.Entity, error) {
	id, err := evn.NormalizeCustomerID(customerID)
	if err != nil {
		return nil, err
	}

	updated := now
	if ts, ok := data[sensor.KeyLatestUpdate].(time.Time); ok {
		updated = ts
	}

	var errs []error
	entities := make([]models.Entity, 0, len(descriptors))
	for _, d := range descriptors {
		e := models.Entity{
			EntityID:    EntityID(id, d.Key),
			UniqueID:    UniqueID(area.Name, id, d.Key),
			State:       models.StateUnavailable,
			LastUpdated: updated,
			Attributes: models.Attributes{
				FriendlyName:      d.Name,
				Icon:              d.Icon,
				UnitOfMeasurement: d.Unit,
				DeviceClass:       string(d.DeviceClass),
				StateClass:        string(d.StateClass),
				Area:              string(area.Name),
				CustomerID:        id,
			},
		}

		v, err := d.Read(data)
		if err == nil {
			e.State, err = FormatState(d, v)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.EntityID, err))
		}
		entities = append(entities, e)
	}

	return entities, errors.Join(errs...)
}

// EntityID returns sensor.<customer>_<key>
func EntityID(customerID, key string) string {
	return domain + "." + Slugify(customerID+"_"+key)
}

// UniqueID is stable for a given area, customer and key
func UniqueID(area evn.AreaName, customerID, key string) string {
	name := fmt.Sprintf("%s/%s/%s", area, strings.ToUpper(customerID), key)
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// FormatState renders a value the way Home Assistant expects sensor states
func FormatState(d sensor.Descriptor, v any) (string, error) {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case time.Time:
		if d.DeviceClass == sensor.DeviceClassTimestamp {
			return val.Format(time.RFC3339), nil
		}
		return val.Format("2006-01-02"), nil
	case string:
		return val, nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		return "", fmt.Errorf("sensor %s: cannot render %T", d.Key, v)
	}
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lower-cases s, drops diacritics and joins words with underscores
func Slugify(s string) string {
	plain, _, err := transform.String(stripMarks, s)
	if err != nil {
		plain = s
	}
	plain = strings.NewReplacer("đ", "d", "Đ", "d").Replace(plain)

	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(plain) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
