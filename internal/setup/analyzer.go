package setup

import (
	"errors"
	"fmt"
	"io"

	"github.com/hieulq/nestup-evn/internal/evn"
)

var resolveArea = evn.ForCustomer

// SetupHint is what AnalyzeSetup learned about a customer ID
type SetupHint struct {
	CustomerID string
	Area       evn.Area
	Warnings   []string
}

// AnalyzeSetup resolves the area serving a customer ID and collects the
// things the user has to take care of before the fetch collaborator can run.
// An unsupported area is returned with a warning, not an error, so the hint
// can explain why configuration will be refused.
func AnalyzeSetup(customerID string) (*SetupHint, error) {
	id, err := evn.NormalizeCustomerID(customerID)
	if err != nil {
		return nil, err
	}

	area, err := resolveArea(id)
	if err != nil && !errors.Is(err, evn.ErrUnsupportedArea) {
		return nil, fmt.Errorf("failed to resolve area: %w", err)
	}

	hint := &SetupHint{CustomerID: id, Area: area}
	if !area.Supported {
		hint.Warnings = append(hint.Warnings, fmt.Sprintf("%s is not supported yet, configuration will be rejected", area.Name))
	}
	if !area.HasEndpoints() {
		hint.Warnings = append(hint.Warnings, fmt.Sprintf("%s has no known data endpoint yet", area.Name))
	}
	if area.AuthNeeded {
		hint.Warnings = append(hint.Warnings, fmt.Sprintf("%s requires the EVN account username and password", area.Name))
	}

	return hint, nil
}

// PrintSetupHint writes a summary and a suggested config.yaml section
func PrintSetupHint(w io.Writer, hint *SetupHint) {
	fmt.Fprintf(w, "\nEVN Setup Hint:\n")
	fmt.Fprintf(w, "Customer ID: %s\n", hint.CustomerID)
	fmt.Fprintf(w, "Area:        %s\n", hint.Area.Name)
	fmt.Fprintf(w, "Location:    %s\n", hint.Area.Location)
	fmt.Fprintf(w, "Data URL:    %s\n", hint.Area.DataRequestURL)
	if hint.Area.AuthNeeded {
		fmt.Fprintf(w, "Login URL:   %s\n", hint.Area.LoginURL)
	}

	for _, warning := range hint.Warnings {
		fmt.Fprintf(w, "\nWarning: %s\n", warning)
	}

	if !hint.Area.Supported {
		return
	}

	fmt.Fprintf(w, "\nSuggested config.yaml:\n")
	fmt.Fprintf(w, "customerId: %q\n", hint.CustomerID)
	fmt.Fprintf(w, "area: %q\n", hint.Area.Name)
	fmt.Fprintf(w, "snapshotPath: %q\n", "evn-data.yaml")
}
