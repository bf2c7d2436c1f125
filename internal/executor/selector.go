package executor

import (
	"errors"
	"sort"
)

// ErrNoModelConfigured is returned when selection runs against an empty
// catalog. This is a configuration-time fatal condition: no job may be
// started and no cost is committed.
var ErrNoModelConfigured = errors.New("no execution model configured")

// tierPreferences is the fixed preference ordering consulted per
// complexity tier. The first name present in the catalog wins.
var tierPreferences = map[Complexity][]string{
	ComplexitySimple:  {"gpt-4o-mini", "deepseek", "claude-3-5-haiku"},
	ComplexityMedium:  {"gpt-4o", "deepseek", "claude-3-5-sonnet"},
	ComplexityComplex: {"claude-3-5-sonnet", "gpt-4o", "o1"},
}

// SelectModel deterministically picks a model from the catalog.
//
// An override naming a catalog entry is returned directly, bypassing
// complexity ranking. Otherwise the tier's preference list is consulted in
// order. When no preferred name exists in the catalog the first entry by
// sorted name is returned rather than failing, as long as the catalog is
// non-empty.
func SelectModel(complexity Complexity, catalog Catalog, override string) (*ModelDescriptor, error) {
	if len(catalog) == 0 {
		return nil, ErrNoModelConfigured
	}

	if override != "" {
		if m, ok := catalog[override]; ok {
			return m, nil
		}
	}

	for _, name := range tierPreferences[complexity] {
		if m, ok := catalog[name]; ok {
			return m, nil
		}
	}

	// Deterministic fallback: first catalog entry by name.
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return catalog[names[0]], nil
}
