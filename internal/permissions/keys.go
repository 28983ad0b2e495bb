// Package permissions implements the capability model for userbase: the
// capability-key type, the code-declared registry, group-scoped grants, the
// per-user resolution engine, and the startup sync that reconciles the
// registry into the database.
package permissions

import (
	"fmt"
	"regexp"
	"sort"
)

// Key is a flat capability identifier gating a specific action or view,
// e.g. "admin.manage". Keys are compared by exact string match only:
// "admin.manage" implies nothing about "admin.manage.extra" even though the
// dot notation looks hierarchical. Groups may hold keys that are not (yet)
// declared in the registry; unknown keys are stored and resolved like any
// other.
type Key string

// keyPattern constrains keys to dot-separated lowercase segments. No
// wildcard syntax exists.
var keyPattern = regexp.MustCompile(`^[a-z0-9_-]+(\.[a-z0-9_-]+)*$`)

// Validate checks the key's format. Called for every registry entry at
// startup and for grant mutations arriving over the API.
func (k Key) Validate() error {
	if k == "" {
		return fmt.Errorf("permission key must not be empty")
	}
	if len(k) > 255 {
		return fmt.Errorf("permission key exceeds 255 characters")
	}
	if !keyPattern.MatchString(string(k)) {
		return fmt.Errorf("permission key %q is not a dot-separated lowercase identifier", string(k))
	}
	return nil
}

// Set is a principal's effective capability set: the union of all
// capability keys granted to every group the principal belongs to.
type Set map[Key]struct{}

// NewSet builds a Set from the given keys.
func NewSet(keys ...Key) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether the set contains exactly the given key.
func (s Set) Has(key Key) bool {
	_, ok := s[key]
	return ok
}

// HasAny reports whether the set contains at least one of the given keys.
func (s Set) HasAny(keys ...Key) bool {
	for _, k := range keys {
		if s.Has(k) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every one of the given keys.
// Vacuously true for an empty key list.
func (s Set) HasAll(keys ...Key) bool {
	for _, k := range keys {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

// Keys returns the set's members in sorted order, for stable JSON output.
func (s Set) Keys() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Strings returns the sorted members as plain strings.
func (s Set) Strings() []string {
	keys := s.Keys()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
