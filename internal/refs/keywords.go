package refs

import "strings"

// Keywords are the curated property-key tables that mark a property value as
// an asset reference. They are supplied by configuration.
type Keywords struct {
	Sound    []string
	Model    []string
	Material []string
}

type keySet map[string]struct{}

func newKeySet(keys []string) keySet {
	s := make(keySet, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			s[k] = struct{}{}
		}
	}
	return s
}

// has matches key case-insensitively.
func (s keySet) has(key string) bool {
	_, ok := s[strings.ToLower(key)]
	return ok
}
