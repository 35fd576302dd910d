package types

import (
	"encoding/json"
	"sort"
)

// CapabilitySet is a set of opaque capability tags declared by an agent or
// required by a task.
type CapabilitySet map[string]struct{}

// NewCapabilitySet builds a capability set from tags.
func NewCapabilitySet(tags ...string) CapabilitySet {
	s := make(CapabilitySet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the tag.
func (s CapabilitySet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Superset reports whether s contains every tag of other. Every set is a
// superset of the empty set.
func (s CapabilitySet) Superset(other CapabilitySet) bool {
	for tag := range other {
		if _, ok := s[tag]; !ok {
			return false
		}
	}
	return true
}

// Equal reports whether both sets contain exactly the same tags.
func (s CapabilitySet) Equal(other CapabilitySet) bool {
	return len(s) == len(other) && s.Superset(other)
}

// Clone returns an independent copy of the set.
func (s CapabilitySet) Clone() CapabilitySet {
	c := make(CapabilitySet, len(s))
	for tag := range s {
		c[tag] = struct{}{}
	}
	return c
}

// Tags returns the sorted tag list.
func (s CapabilitySet) Tags() []string {
	tags := make([]string, 0, len(s))
	for tag := range s {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// MarshalJSON encodes the set as a sorted tag array.
func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Tags())
}

// UnmarshalJSON decodes a tag array.
func (s *CapabilitySet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewCapabilitySet(tags...)
	return nil
}
