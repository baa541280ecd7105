package domain

import (
	"fmt"
	"strings"
)

// WasteType categorizes the material carried for a pickup.
type WasteType string

const (
	WasteFurniture   WasteType = "furniture"
	WasteAppliances  WasteType = "appliances"
	WasteElectronics WasteType = "electronics"
	WasteRubble      WasteType = "rubble"
	WasteGreen       WasteType = "green_waste"
	WasteHousehold   WasteType = "household"
	WasteHazardous   WasteType = "hazardous"
)

var knownWasteTypes = map[WasteType]struct{}{
	WasteFurniture:   {},
	WasteAppliances:  {},
	WasteElectronics: {},
	WasteRubble:      {},
	WasteGreen:       {},
	WasteHousehold:   {},
	WasteHazardous:   {},
}

// ParseWasteType normalizes s and checks it against the known tags.
func ParseWasteType(s string) (WasteType, error) {
	w := WasteType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownWasteTypes[w]; !ok {
		return "", fmt.Errorf("parse waste type: unknown type %q", s)
	}
	return w, nil
}

// WasteTypes is a set of tags kept as a slice; order carries no meaning.
type WasteTypes []WasteType

func (ws WasteTypes) Contains(w WasteType) bool {
	for _, x := range ws {
		if x == w {
			return true
		}
	}
	return false
}

// ContainsAll reports whether ws is a superset of other.
func (ws WasteTypes) ContainsAll(other WasteTypes) bool {
	for _, w := range other {
		if !ws.Contains(w) {
			return false
		}
	}
	return true
}

// UnionWasteTypes collapses the tags of several sets, keeping first-seen order.
func UnionWasteTypes(sets ...WasteTypes) WasteTypes {
	seen := make(map[WasteType]struct{})
	out := WasteTypes{}
	for _, set := range sets {
		for _, w := range set {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
