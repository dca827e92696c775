// Package preferences holds the user's dashboard settings: reference
// location, search radius, units, favorite callsigns and visual theme.
//
// Settings are validated before they are applied and persisted as one JSON
// blob under a fixed storage key.
package preferences

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// StorageKey names the persisted preferences blob in every backend.
const StorageKey = "adsb-terminal.preferences"

// Defaults applied on first run and by Reset.
const (
	DefaultLatitude  = 51.5074
	DefaultLongitude = -0.1278
	DefaultMaxRadius = 250.0
	DefaultPalette   = PaletteGreen
)

// Palettes supported by the dashboard theme.
const (
	PaletteGreen = "green"
	PaletteAmber = "amber"
	PaletteCyan  = "cyan"
	PaletteWhite = "white"
)

// Palettes lists every valid palette name in display order.
var Palettes = []string{PaletteGreen, PaletteAmber, PaletteCyan, PaletteWhite}

// Location is the observer's reference position in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Theme toggles the dashboard's retro terminal effects.
type Theme struct {
	Scanlines     bool   `json:"scanlines"`
	TextGlow      bool   `json:"textGlow"`
	ScreenFlicker bool   `json:"screenFlicker"`
	CursorBlink   bool   `json:"cursorBlink"`
	Palette       string `json:"palette"`
}

// Preferences is the complete persisted settings document.
type Preferences struct {
	// Location is the point distances are measured from
	Location Location `json:"location"`

	// MaxRadius is the display radius in the user's current unit
	// (miles when UseMetric is false, kilometers otherwise)
	MaxRadius float64 `json:"maxRadius"`

	// UseMetric switches every displayed quantity to metric
	UseMetric bool `json:"useMetric"`

	// FavoriteCallsigns are highlighted in the list
	FavoriteCallsigns CallsignSet `json:"favoriteCallsigns"`

	// Theme controls visual effects
	Theme Theme `json:"theme"`
}

// Default returns the first-run preferences.
func Default() Preferences {
	return Preferences{
		Location:          Location{Lat: DefaultLatitude, Lon: DefaultLongitude},
		MaxRadius:         DefaultMaxRadius,
		UseMetric:         false,
		FavoriteCallsigns: CallsignSet{},
		Theme: Theme{
			Scanlines:     true,
			TextGlow:      true,
			ScreenFlicker: false,
			CursorBlink:   true,
			Palette:       DefaultPalette,
		},
	}
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	p.FavoriteCallsigns = p.FavoriteCallsigns.Clone()
	return p
}

// IsFavorite reports whether callsign is in the favorites set.
func (p Preferences) IsFavorite(callsign string) bool {
	return p.FavoriteCallsigns.Contains(callsign)
}

// CallsignSet is a set of callsigns. It encodes as a sorted JSON array.
type CallsignSet map[string]struct{}

// NewCallsignSet builds a set from a list, trimming and dropping blanks.
func NewCallsignSet(callsigns ...string) CallsignSet {
	s := make(CallsignSet, len(callsigns))
	for _, cs := range callsigns {
		if cs = strings.TrimSpace(cs); cs != "" {
			s[cs] = struct{}{}
		}
	}
	return s
}

// Contains reports membership. A nil set contains nothing.
func (s CallsignSet) Contains(callsign string) bool {
	_, ok := s[callsign]
	return ok
}

// Sorted returns the members in ascending order.
func (s CallsignSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for cs := range s {
		out = append(out, cs)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy; a nil set clones to an empty set.
func (s CallsignSet) Clone() CallsignSet {
	c := make(CallsignSet, len(s))
	for cs := range s {
		c[cs] = struct{}{}
	}
	return c
}

// MarshalJSON encodes the set as a sorted array.
func (s CallsignSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON accepts an array of strings. Duplicates collapse.
func (s *CallsignSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("favoriteCallsigns: %w", err)
	}
	*s = NewCallsignSet(list...)
	return nil
}

// ValidationError describes one rejected field.
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// Validate checks every constraint and returns all violations joined,
// or nil when p is acceptable.
func (p Preferences) Validate() error {
	var errs []error

	if math.IsNaN(p.Location.Lat) || p.Location.Lat < -90 || p.Location.Lat > 90 {
		errs = append(errs, &ValidationError{
			Field:  "location.lat",
			Value:  p.Location.Lat,
			Reason: "must be between -90 and 90",
		})
	}
	if math.IsNaN(p.Location.Lon) || p.Location.Lon < -180 || p.Location.Lon > 180 {
		errs = append(errs, &ValidationError{
			Field:  "location.lon",
			Value:  p.Location.Lon,
			Reason: "must be between -180 and 180",
		})
	}
	if math.IsNaN(p.MaxRadius) || math.IsInf(p.MaxRadius, 0) || p.MaxRadius <= 0 {
		errs = append(errs, &ValidationError{
			Field:  "maxRadius",
			Value:  p.MaxRadius,
			Reason: "must be a positive number",
		})
	}
	if !validPalette(p.Theme.Palette) {
		errs = append(errs, &ValidationError{
			Field:  "theme.palette",
			Value:  p.Theme.Palette,
			Reason: fmt.Sprintf("must be one of %s", strings.Join(Palettes, ", ")),
		})
	}

	return errors.Join(errs...)
}

func validPalette(name string) bool {
	for _, p := range Palettes {
		if p == name {
			return true
		}
	}
	return false
}

// ValidationErrors extracts every *ValidationError from err.
func ValidationErrors(err error) []*ValidationError {
	if err == nil {
		return nil
	}

	var out []*ValidationError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, ValidationErrors(e)...)
		}
		return out
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		out = append(out, ve)
	}
	return out
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Lat       *float64
	Lon       *float64
	MaxRadius *float64
	UseMetric *bool

	// Favorites replaces the whole set when non-nil
	Favorites CallsignSet

	Scanlines     *bool
	TextGlow      *bool
	ScreenFlicker *bool
	CursorBlink   *bool
	Palette       *string
}

// apply returns p with the patch merged in. p is not modified.
// UseMetric here is a raw flag change; the caller converts the radius.
func (pt Patch) apply(p Preferences) Preferences {
	next := p.Clone()

	if pt.Lat != nil {
		next.Location.Lat = *pt.Lat
	}
	if pt.Lon != nil {
		next.Location.Lon = *pt.Lon
	}
	if pt.MaxRadius != nil {
		next.MaxRadius = *pt.MaxRadius
	}
	if pt.UseMetric != nil {
		next.UseMetric = *pt.UseMetric
	}
	if pt.Favorites != nil {
		next.FavoriteCallsigns = pt.Favorites.Clone()
	}
	if pt.Scanlines != nil {
		next.Theme.Scanlines = *pt.Scanlines
	}
	if pt.TextGlow != nil {
		next.Theme.TextGlow = *pt.TextGlow
	}
	if pt.ScreenFlicker != nil {
		next.Theme.ScreenFlicker = *pt.ScreenFlicker
	}
	if pt.CursorBlink != nil {
		next.Theme.CursorBlink = *pt.CursorBlink
	}
	if pt.Palette != nil {
		next.Theme.Palette = *pt.Palette
	}

	return next
}

// decode parses a stored blob over the defaults, so fields missing from
// older blobs keep their default values.
func decode(data []byte) (Preferences, error) {
	p := Default()
	if err := json.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("failed to decode preferences: %w", err)
	}
	if p.FavoriteCallsigns == nil {
		p.FavoriteCallsigns = CallsignSet{}
	}
	if err := p.Validate(); err != nil {
		return Default(), fmt.Errorf("stored preferences rejected: %w", err)
	}
	return p, nil
}

func encode(p Preferences) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode preferences: %w", err)
	}
	return data, nil
}
