package adsb

import (
	"fmt"
	"strings"
	"sync"

	"github.com/unklstewy/adsb-terminal/pkg/refdata"
)

// ReferenceProvider resolves type codes and airline designators.
// *refdata.Provider satisfies it.
type ReferenceProvider interface {
	AircraftModel(code string) (refdata.Record, bool)
	Airline(icao string) (refdata.Record, bool)
}

// airlinePrefixLen is the length of the ICAO airline designator that
// starts an airline callsign (BAW456 -> BAW).
const airlinePrefixLen = 3

// militaryDBFlag is bit 0 of readsb's dbFlags.
const militaryDBFlag = 1

// Normalizer turns raw feed records into canonical Aircraft.
// It remembers each aircraft's altitude from the last normalized poll, keyed
// by ICAO hex, so it can populate PreviousAltitude. Safe for concurrent use.
type Normalizer struct {
	refs ReferenceProvider

	mu       sync.Mutex
	previous map[string]float64
}

// NewNormalizer creates a Normalizer. A nil provider resolves nothing.
func NewNormalizer(refs ReferenceProvider) *Normalizer {
	if refs == nil {
		refs = refdata.NewProvider(nil, nil)
	}
	return &Normalizer{
		refs:     refs,
		previous: make(map[string]float64),
	}
}

// Normalize converts one poll's raw records and advances the altitude memory
// to this poll. Output preserves input order and every ID is unique.
//
// Call it only for polls that are actually applied; a discarded poll must
// not update the memory.
func (n *Normalizer) Normalize(raw []RawAircraft) []Aircraft {
	n.mu.Lock()
	defer n.mu.Unlock()

	result := make([]Aircraft, 0, len(raw))
	seen := make(map[string]int, len(raw))
	next := make(map[string]float64, len(raw))

	hexCount := make(map[string]int, len(raw))
	for _, r := range raw {
		hexCount[normalizeHex(r.Hex)]++
	}

	for i, r := range raw {
		ac := n.convert(r)
		ac.ID = uniqueID(r.Hex, i, seen)

		// Only a hex seen exactly once identifies the same aircraft across
		// polls; positional and suffixed IDs carry no altitude memory.
		if hex := normalizeHex(r.Hex); hex != "" && hexCount[hex] == 1 {
			if prev, ok := n.previous[hex]; ok {
				p := prev
				ac.PreviousAltitude = &p
			}
			next[hex] = ac.Altitude
		}

		result = append(result, ac)
	}

	n.previous = next
	return result
}

// Reset forgets all remembered altitudes.
func (n *Normalizer) Reset() {
	n.mu.Lock()
	n.previous = make(map[string]float64)
	n.mu.Unlock()
}

// convert maps fields and resolves reference data. ID is set by the caller.
func (n *Normalizer) convert(r RawAircraft) Aircraft {
	ac := Aircraft{
		Callsign:     NoCallsign,
		Type:         strings.TrimSpace(r.T),
		Registration: strings.TrimSpace(r.R),
		Owner:        strings.TrimSpace(r.OwnOp),
		Category:     r.Category,
		Squawk:       r.Squawk,
		Model:        Unknown,
		Airline:      Unknown,
	}

	if r.Flight != nil {
		if cs := strings.TrimSpace(*r.Flight); cs != "" {
			ac.Callsign = cs
		}
	}

	if alt, ground, ok := parseAltitude(r.AltBaro); ok {
		ac.Altitude = alt
		ac.OnGround = ground
	}
	if r.Gs != nil {
		ac.Speed = *r.Gs
	}
	if r.Track != nil {
		ac.Heading = *r.Track
	}
	if r.Lat != nil {
		ac.Lat = *r.Lat
	}
	if r.Lon != nil {
		ac.Lon = *r.Lon
	}
	if r.BaroRate != nil {
		ac.VerticalRate = *r.BaroRate
	}

	switch {
	case r.Military != nil:
		ac.IsMilitary = *r.Military
	case r.DBFlags != nil:
		ac.IsMilitary = *r.DBFlags&militaryDBFlag != 0
	}

	ac.ModelCode = ac.Type
	if rec, ok := n.refs.AircraftModel(ac.Type); ok && ac.Type != "" && rec.Name != "" {
		ac.Model = rec.Name
	}

	if ac.Callsign != NoCallsign && len(ac.Callsign) >= airlinePrefixLen {
		prefix := ac.Callsign[:airlinePrefixLen]
		if rec, ok := n.refs.Airline(prefix); ok && rec.Name != "" {
			ac.Airline = rec.Name
			ac.AirlineCode = prefix
		}
	}

	return ac
}

// uniqueID derives a stable identifier from the hex address. Entries without
// one get a positional placeholder; repeats within a poll get a suffix.
func uniqueID(hex string, index int, seen map[string]int) string {
	id := normalizeHex(hex)
	if id == "" {
		id = fmt.Sprintf("~anon-%d", index)
	}

	count := seen[id]
	seen[id] = count + 1
	if count == 0 {
		return id
	}

	// Suffixed IDs can themselves collide with a real entry; keep counting.
	for {
		candidate := fmt.Sprintf("%s#%d", id, count)
		if seen[candidate] == 0 {
			seen[candidate] = 1
			return candidate
		}
		count++
	}
}

func normalizeHex(hex string) string {
	return strings.ToLower(strings.TrimSpace(hex))
}
