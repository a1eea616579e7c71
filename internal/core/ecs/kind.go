package ecs

import "strings"

// Kind identifies one component type. The set is closed: every component the
// simulation knows about has a Kind constant here, and a store is bound to
// exactly one Kind.
type Kind uint8

const (
	KindPosition Kind = iota
	KindVelocity
	KindBody
	KindStepInput
	KindDrawable
	KindPathFollower
	KindPedometer
	KindHealth

	kindCount
)

var kindNames = [kindCount]string{
	KindPosition:     "position",
	KindVelocity:     "velocity",
	KindBody:         "body",
	KindStepInput:    "step_input",
	KindDrawable:     "drawable",
	KindPathFollower: "path_follower",
	KindPedometer:    "pedometer",
	KindHealth:       "health",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}

// Mask is a bitset of component kinds.
type Mask uint32

// MaskOf builds a mask from the given kinds.
func MaskOf(kinds ...Kind) Mask {
	var m Mask
	for _, k := range kinds {
		m |= 1 << k
	}
	return m
}

func (m Mask) Has(k Kind) bool { return m&(1<<k) != 0 }

// Contains reports whether every kind in req is also in m.
func (m Mask) Contains(req Mask) bool { return m&req == req }

func (m Mask) String() string {
	var parts []string
	for k := Kind(0); k < kindCount; k++ {
		if m.Has(k) {
			parts = append(parts, k.String())
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}
