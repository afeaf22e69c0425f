package models

import "time"

// Entity mirrors the Home Assistant state object
type Entity struct {
	EntityID    string     `json:"entity_id"`
	UniqueID    string     `json:"unique_id"`
	State       string     `json:"state"`
	Attributes  Attributes `json:"attributes"`
	LastUpdated time.Time  `json:"last_updated"`
}

type Attributes struct {
	FriendlyName      string `json:"friendly_name"`
	Icon              string `json:"icon,omitempty"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	DeviceClass       string `json:"device_class,omitempty"`
	StateClass        string `json:"state_class,omitempty"`
	Area              string `json:"area"`
	CustomerID        string `json:"customer_id"`
}

// Available is false when the entity's value could not be read
func (e Entity) Available() bool {
	return e.State != StateUnavailable
}

const StateUnavailable = "unavailable"

type AreaView struct {
	Name           string   `json:"name"`
	Location       string   `json:"location"`
	LoginURL       string   `json:"login_url"`
	DataRequestURL string   `json:"data_request_url"`
	Supported      bool     `json:"supported"`
	AuthNeeded     bool     `json:"auth_needed"`
	HasEndpoints   bool     `json:"has_endpoints"`
	Patterns       []string `json:"patterns"`
}

type SensorView struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Unit        string `json:"unit,omitempty"`
	StateClass  string `json:"state_class,omitempty"`
	DeviceClass string `json:"device_class,omitempty"`
}
