package matrix

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ResultTree is the aggregated outcome of a matrix run:
// interface → version → role → charm name → pass/fail. Order is
// preserved from traversal (registry order, provider before requirer),
// including in the JSON serialization. An empty role map means the role
// had no tests or no charms registered; it was not attempted and is
// deliberately distinct from a recorded failure.
type ResultTree struct {
	Interfaces []InterfaceResult
}

// InterfaceResult holds per-version results for one interface.
type InterfaceResult struct {
	Name     string
	Versions []VersionResult
}

// VersionResult holds per-role results for one interface version.
type VersionResult struct {
	Label string
	Roles []RoleResult
}

// RoleResult holds per-charm outcomes for one role. A non-nil empty Charms
// slice is the "nothing to run" signal.
type RoleResult struct {
	Role   string
	Charms []CharmResult
}

// CharmResult is one leaf: exactly one provision + execution attempt.
type CharmResult struct {
	Name   string
	Passed bool
}

// AllPassed reports whether every leaf in the tree passed. A tree with no
// leaves passes vacuously.
func (t *ResultTree) AllPassed() bool {
	for _, f := range t.walk() {
		if !f.Passed {
			return false
		}
	}
	return true
}

// LeafCount returns the number of leaves (attempted units) in the tree.
func (t *ResultTree) LeafCount() int {
	return len(t.walk())
}

// Leaf is one flattened unit outcome with its full coordinates.
type Leaf struct {
	Interface string
	Version   string
	Role      string
	Charm     string
	Passed    bool
}

// Failures returns the leaves that failed, in traversal order.
func (t *ResultTree) Failures() []Leaf {
	var failures []Leaf
	for _, leaf := range t.walk() {
		if !leaf.Passed {
			failures = append(failures, leaf)
		}
	}
	return failures
}

// Walk returns every leaf in traversal order.
func (t *ResultTree) Walk() []Leaf {
	return t.walk()
}

func (t *ResultTree) walk() []Leaf {
	var leaves []Leaf
	for _, iface := range t.Interfaces {
		for _, version := range iface.Versions {
			for _, role := range version.Roles {
				for _, charm := range role.Charms {
					leaves = append(leaves, Leaf{
						Interface: iface.Name,
						Version:   version.Label,
						Role:      role.Role,
						Charm:     charm.Name,
						Passed:    charm.Passed,
					})
				}
			}
		}
	}
	return leaves
}

// MarshalJSON emits the nested mapping form with traversal order preserved.
// encoding/json's map marshalling would sort keys (putting "v10" before
// "v2"), so the objects are written by hand.
func (t *ResultTree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, iface := range t.Interfaces {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, iface.Name); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, version := range iface.Versions {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, version.Label); err != nil {
				return nil, err
			}
			buf.WriteByte('{')
			for k, role := range version.Roles {
				if k > 0 {
					buf.WriteByte(',')
				}
				if err := writeKey(&buf, role.Role); err != nil {
					return nil, err
				}
				buf.WriteByte('{')
				for l, charm := range role.Charms {
					if l > 0 {
						buf.WriteByte(',')
					}
					if err := writeKey(&buf, charm.Name); err != nil {
						return nil, err
					}
					fmt.Fprintf(&buf, "%t", charm.Passed)
				}
				buf.WriteByte('}')
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeKey writes a JSON string key followed by a colon.
func writeKey(buf *bytes.Buffer, key string) error {
	encoded, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(encoded)
	buf.WriteByte(':')
	return nil
}
