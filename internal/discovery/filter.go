package discovery

import "strings"

// DefaultNamePrefixes are the vendor prefixes accepted by FilterName.
var DefaultNamePrefixes = []string{"EPSON", "TM-"}

// NameMatcher applies the name half of a FilterOption.
type NameMatcher struct {
	prefixes []string
}

// NewNameMatcher creates a matcher for the given prefixes. An empty list
// falls back to DefaultNamePrefixes.
func NewNameMatcher(prefixes []string) *NameMatcher {
	if len(prefixes) == 0 {
		prefixes = DefaultNamePrefixes
	}
	m := &NameMatcher{prefixes: make([]string, 0, len(prefixes))}
	for _, p := range prefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			m.prefixes = append(m.prefixes, p)
		}
	}
	return m
}

// Accept reports whether a device passes the filter's name check. Either
// DeviceName or AdvertisedName may match. Matching is case-insensitive and
// ignores leading whitespace.
func (m *NameMatcher) Accept(filter FilterOption, info DeviceInfo) bool {
	if filter.NameFilter != FilterName {
		return true
	}
	return m.matches(info.DeviceName) || m.matches(info.AdvertisedName)
}

func (m *NameMatcher) matches(name string) bool {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Prefixes returns the normalized prefixes in use.
func (m *NameMatcher) Prefixes() []string {
	out := make([]string, len(m.prefixes))
	copy(out, m.prefixes)
	return out
}
