package evn

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks a set of areas for structural problems: missing names,
// duplicate names, empty pattern sets and prefixes claimed by more than one
// supported area. All violations are reported together.
func Validate(areas []Area) error {
	var errs []error
	names := make(map[AreaName]bool)
	owners := make(map[string]AreaName)

	for _, a := range areas {
		if a.Name == "" {
			errs = append(errs, errors.New("area without name"))
		} else if names[a.Name] {
			errs = append(errs, fmt.Errorf("duplicate area %s", a.Name))
		}
		names[a.Name] = true

		if len(a.Patterns) == 0 {
			errs = append(errs, fmt.Errorf("area %s has no meter-code patterns", a.Name))
		}

		for _, p := range a.Patterns {
			p = strings.ToUpper(strings.TrimSpace(p))
			if p == "" {
				errs = append(errs, fmt.Errorf("area %s has an empty pattern", a.Name))
				continue
			}
			if !a.Supported {
				continue
			}
			if owner, ok := owners[p]; ok && owner != a.Name {
				errs = append(errs, fmt.Errorf("prefix %q claimed by %s and %s", p, owner, a.Name))
				continue
			}
			owners[p] = a.Name
		}
	}

	for p1, a1 := range owners {
		for p2, a2 := range owners {
			if a1 != a2 && p1 != p2 && strings.HasPrefix(p2, p1) {
				errs = append(errs, fmt.Errorf("prefix %q of %s shadows %q of %s", p1, a1, p2, a2))
			}
		}
	}

	return errors.Join(errs...)
}
