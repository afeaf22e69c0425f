// Package evn holds the registry of EVN service areas and resolves customer
// IDs to the area that serves them.
package evn

import (
	"errors"
	"fmt"
	"strings"
)

// AreaName identifies one EVN power corporation
type AreaName string

const (
	HANOI AreaName = "EVNHANOI"
	HCMC  AreaName = "EVNHCMC"
	NPC   AreaName = "EVNNPC"
	CPC   AreaName = "EVNCPC"
	SPC   AreaName = "EVNSPC"
)

// NotYetSupported marks an endpoint that has no known URL yet
const NotYetSupported = "NOT_YET_SUPPORTED"

// prefixLen is the length of the meter-code prefix that identifies an area
const prefixLen = 2

var (
	ErrUnknownArea       = errors.New("unknown EVN area")
	ErrUnsupportedArea   = errors.New("EVN area not supported")
	ErrInvalidCustomerID = errors.New("invalid customer ID")
)

// Area describes one electricity-provider region
type Area struct {
	Name           AreaName `json:"name" yaml:"name"`
	Location       string   `json:"location" yaml:"location"`
	LoginURL       string   `json:"login_url" yaml:"loginUrl"`
	DataRequestURL string   `json:"data_request_url" yaml:"dataRequestUrl"`
	Supported      bool     `json:"supported" yaml:"supported"`
	AuthNeeded     bool     `json:"auth_needed" yaml:"authNeeded"`
	Patterns       []string `json:"patterns" yaml:"patterns"`
}

var vietnamAreas = []Area{
	{
		Name:           HCMC,
		Location:       "Thành phố Hồ Chí Minh",
		LoginURL:       "https://cskh.evnhcmc.vn/Dangnhap/checkLG",
		DataRequestURL: "https://cskh.evnhcmc.vn/Tracuu/ajax_dienNangTieuThuTheoNgay",
		Supported:      true,
		AuthNeeded:     true,
		Patterns:       []string{"PE"},
	},
	{
		Name:           HANOI,
		Location:       "Thủ đô Hà Nội",
		LoginURL:       "https://apicskh.evnhanoi.com.vn/connect/token",
		DataRequestURL: "https://evnhanoi.vn/api/TraCuu/LayChiSoDoXa",
		Supported:      true,
		AuthNeeded:     true,
		Patterns:       []string{"PD"},
	},
	{
		Name:           NPC,
		Location:       "Khu vực miền Bắc",
		LoginURL:       "(EVNNPC does not need this field)",
		DataRequestURL: "https://meterindex.enterhub.asia/SLngay",
		Supported:      true,
		AuthNeeded:     false,
		Patterns:       []string{"PA", "PH", "PM", "PN"},
	},
	{
		Name:           SPC,
		Location:       "Khu vực miền Nam",
		LoginURL:       "(EVNSPC does not need this field)",
		DataRequestURL: "https://www.cskh.evnspc.vn/TraCuu/TraCuuSanLuongDienTieuThuTrongNgay",
		Supported:      true,
		AuthNeeded:     false,
		Patterns:       []string{"PB", "PK"},
	},
	{
		Name:           CPC,
		Location:       "Khu vực miền Trung",
		LoginURL:       NotYetSupported,
		DataRequestURL: NotYetSupported,
		Supported:      true,
		AuthNeeded:     true,
		Patterns:       []string{"PQ", "PC", "PP"},
	},
}

func init() {
	mustValidate(vietnamAreas)
}

func mustValidate(areas []Area) {
	if err := Validate(areas); err != nil {
		panic(fmt.Sprintf("evn: invalid area registry: %v", err))
	}
}

// Areas returns a copy of the registry in declaration order
func Areas() []Area {
	out := make([]Area, len(vietnamAreas))
	for i, a := range vietnamAreas {
		out[i] = a.clone()
	}
	return out
}

// Supported returns the areas that can be configured
func Supported() []Area {
	var out []Area
	for _, a := range vietnamAreas {
		if a.Supported {
			out = append(out, a.clone())
		}
	}
	return out
}

// Lookup finds an area by name, ignoring case
func Lookup(name string) (Area, error) {
	for _, a := range vietnamAreas {
		if strings.EqualFold(string(a.Name), strings.TrimSpace(name)) {
			return a.clone(), nil
		}
	}
	return Area{}, fmt.Errorf("%w: %q", ErrUnknownArea, name)
}

// NormalizeCustomerID trims and upper-cases a customer ID and checks that it
// is long enough to carry an area prefix.
func NormalizeCustomerID(customerID string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(customerID))
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCustomerID)
	}
	if len(id) <= prefixLen {
		return "", fmt.Errorf("%w: %q is too short", ErrInvalidCustomerID, customerID)
	}
	for _, r := range id {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidCustomerID, customerID, r)
		}
	}
	return id, nil
}

// ForCustomer returns the area whose meter-code prefix matches the customer ID
func ForCustomer(customerID string) (Area, error) {
	return forCustomer(vietnamAreas, customerID)
}

// forCustomer prefers a supported match over an unsupported one that claims
// the same prefix.
func forCustomer(areas []Area, customerID string) (Area, error) {
	id, err := NormalizeCustomerID(customerID)
	if err != nil {
		return Area{}, err
	}
	var unsupported *Area
	for i, a := range areas {
		if !a.Matches(id) {
			continue
		}
		if a.Supported {
			return a.clone(), nil
		}
		if unsupported == nil {
			unsupported = &areas[i]
		}
	}
	if unsupported != nil {
		return unsupported.clone(), fmt.Errorf("%w: %s (%s)", ErrUnsupportedArea, unsupported.Name, id)
	}
	return Area{}, fmt.Errorf("%w: no area serves prefix %q", ErrUnknownArea, id[:prefixLen])
}

// Matches reports whether the customer ID carries one of the area's prefixes
func (a Area) Matches(customerID string) bool {
	id := strings.ToUpper(strings.TrimSpace(customerID))
	for _, p := range a.Patterns {
		if p != "" && strings.HasPrefix(id, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

// HasEndpoints is false while either endpoint is still a placeholder
func (a Area) HasEndpoints() bool {
	return a.LoginURL != NotYetSupported && a.DataRequestURL != NotYetSupported
}

func (a Area) String() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.Location)
}

func (a Area) clone() Area {
	a.Patterns = append([]string(nil), a.Patterns...)
	return a
}
