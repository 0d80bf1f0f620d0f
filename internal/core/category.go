package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// CategoryDescription is a category name with the enriched text that gets embedded
type CategoryDescription struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CategorySet is an ordered, immutable collection of categories keyed by name
type CategorySet struct {
	order       []string
	byName      map[string]CategoryDescription
	fingerprint string
}

// NewCategorySet builds a set from descriptions. A repeated name replaces the
// earlier description but keeps the earlier position.
func NewCategorySet(descriptions []CategoryDescription) (*CategorySet, error) {
	set := &CategorySet{
		byName: make(map[string]CategoryDescription, len(descriptions)),
	}
	for _, d := range descriptions {
		if d.Name == "" {
			continue
		}
		if _, seen := set.byName[d.Name]; !seen {
			set.order = append(set.order, d.Name)
		}
		set.byName[d.Name] = d
	}
	if len(set.order) == 0 {
		return nil, fmt.Errorf("%w: category set is empty", ErrCategoryLoadFailed)
	}

	h := sha256.New()
	for _, name := range set.order {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(set.byName[name].Description))
		h.Write([]byte{0})
	}
	set.fingerprint = hex.EncodeToString(h.Sum(nil))

	return set, nil
}

// Len returns the number of categories
func (s *CategorySet) Len() int {
	return len(s.order)
}

// Names returns category names in definition order
func (s *CategorySet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Descriptions returns enriched descriptions aligned with Names
func (s *CategorySet) Descriptions() []string {
	out := make([]string, len(s.order))
	for i, name := range s.order {
		out[i] = s.byName[name].Description
	}
	return out
}

// Get looks up a category by name
func (s *CategorySet) Get(name string) (CategoryDescription, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Fingerprint identifies the exact names and descriptions of the set
func (s *CategorySet) Fingerprint() string {
	return s.fingerprint
}
