// Package ranking filters and orders a poll's aircraft for display.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/unklstewy/adsb-terminal/pkg/adsb"
	"github.com/unklstewy/adsb-terminal/pkg/coordinates"
	"github.com/unklstewy/adsb-terminal/pkg/preferences"
)

// SortField selects the ordering key.
type SortField string

const (
	SortDistance SortField = "distance"
	SortAltitude SortField = "altitude"
	SortSpeed    SortField = "speed"
	SortCallsign SortField = "callsign"
	SortAirline  SortField = "airline"
)

// SortFields lists every field in cycling order.
var SortFields = []SortField{SortDistance, SortAltitude, SortSpeed, SortCallsign, SortAirline}

// ParseSortField accepts a field name case-insensitively.
func ParseSortField(s string) (SortField, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SortFields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// Next returns the field after f, wrapping around.
func (f SortField) Next() SortField {
	for i, known := range SortFields {
		if known == f {
			return SortFields[(i+1)%len(SortFields)]
		}
	}
	return SortDistance
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// ParseSortDirection accepts "asc" or "desc" case-insensitively.
func ParseSortDirection(s string) (SortDirection, error) {
	switch SortDirection(strings.ToLower(strings.TrimSpace(s))) {
	case Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", s)
	}
}

// Toggle flips the direction.
func (d SortDirection) Toggle() SortDirection {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// Arrow returns ▲ for ascending and ▼ for descending.
func (d SortDirection) Arrow() string {
	if d == Descending {
		return "▼"
	}
	return "▲"
}

// Ranked is an aircraft annotated for display.
type Ranked struct {
	adsb.Aircraft

	// Distance from the preferences location in miles
	Distance float64 `json:"distance"`

	// Bearing from the preferences location in degrees
	Bearing float64 `json:"bearing"`

	// Favorite is true when the callsign is a favorite
	Favorite bool `json:"favorite"`
}

// Query bundles the interactive list controls.
type Query struct {
	Search    string
	Field     SortField
	Direction SortDirection
}

// DefaultQuery sorts nearest first with no search.
func DefaultQuery() Query {
	return Query{Field: SortDistance, Direction: Ascending}
}

// Rank filters list to the preferences radius, then to aircraft matching
// search, and sorts the survivors. The input is not modified.
//
// The radius is inclusive and expressed in the preferences' unit. Search is
// a case-insensitive substring match on callsign, airline or model; blank
// search matches everything. Sorting is stable, and descending order is the
// exact reverse of ascending order for distinct keys while equal keys keep
// their input order in both.
func Rank(list []adsb.Aircraft, prefs preferences.Preferences, search string, field SortField, dir SortDirection) []Ranked {
	origin := coordinates.Geographic{Latitude: prefs.Location.Lat, Longitude: prefs.Location.Lon}
	radius := coordinates.RadiusToMiles(prefs.MaxRadius, prefs.UseMetric)
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]Ranked, 0, len(list))
	for _, ac := range list {
		pos := coordinates.Geographic{Latitude: ac.Lat, Longitude: ac.Lon}
		d := coordinates.DistanceBetween(origin, pos)
		if !(d <= radius) {
			continue
		}
		if needle != "" && !matches(ac, needle) {
			continue
		}
		out = append(out, Ranked{
			Aircraft: ac,
			Distance: d,
			Bearing:  coordinates.Bearing(origin, pos),
			Favorite: prefs.IsFavorite(ac.Callsign),
		})
	}

	less := comparator(field)
	if dir == Descending {
		sort.SliceStable(out, func(i, j int) bool { return less(out[j], out[i]) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}

	return out
}

// RankQuery is Rank with the controls taken from q.
func RankQuery(list []adsb.Aircraft, prefs preferences.Preferences, q Query) []Ranked {
	return Rank(list, prefs, q.Search, q.Field, q.Direction)
}

func matches(ac adsb.Aircraft, needle string) bool {
	return strings.Contains(strings.ToLower(ac.Callsign), needle) ||
		strings.Contains(strings.ToLower(ac.Airline), needle) ||
		strings.Contains(strings.ToLower(ac.Model), needle)
}

// comparator returns the ascending less function for field. Unknown fields
// sort by distance.
func comparator(field SortField) func(a, b Ranked) bool {
	switch field {
	case SortAltitude:
		return func(a, b Ranked) bool { return a.Altitude < b.Altitude }
	case SortSpeed:
		return func(a, b Ranked) bool { return a.Speed < b.Speed }
	case SortCallsign:
		return func(a, b Ranked) bool { return a.Callsign < b.Callsign }
	case SortAirline:
		return func(a, b Ranked) bool { return a.Airline < b.Airline }
	default:
		return func(a, b Ranked) bool { return a.Distance < b.Distance }
	}
}
