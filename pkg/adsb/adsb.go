package adsb

import (
	"context"
	"encoding/json"
	"strings"
)

// Sentinel values used when the feed or reference data has nothing to offer.
const (
	// NoCallsign is shown when the feed reports no flight identifier
	NoCallsign = "N/A"

	// Unknown is used for airline and model names that could not be resolved
	Unknown = "Unknown"
)

// Aircraft is the canonical, enriched view of one aircraft for a single poll.
// It is rebuilt on every poll cycle.
type Aircraft struct {
	// ID is the lower-cased ICAO hex address, unique within one poll
	ID string `json:"id"`

	// Callsign is the trimmed flight identifier, or NoCallsign
	Callsign string `json:"callsign"`

	// Altitude is barometric altitude in feet (0 when on the ground or unknown)
	Altitude float64 `json:"altitude"`

	// PreviousAltitude is Altitude for the same ID in the prior applied poll.
	// Nil when the aircraft is newly observed.
	PreviousAltitude *float64 `json:"previousAltitude,omitempty"`

	// Speed is ground speed in knots
	Speed float64 `json:"speed"`

	// Heading is the ground track in degrees (0-359)
	Heading float64 `json:"heading"`

	// Lat and Lon are the reported position in decimal degrees
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// Type is the raw ICAO type designator from the feed (e.g. "A320")
	Type string `json:"type"`

	// Model is the human-readable model name, or Unknown
	Model string `json:"model"`

	// ModelCode is the type code the model lookup was made with
	ModelCode string `json:"modelCode"`

	// Airline is the airline name resolved from the callsign prefix, or Unknown
	Airline string `json:"airline"`

	// AirlineCode is the matched airline ICAO designator, empty on no match
	AirlineCode string `json:"airlineCode"`

	// IsMilitary reports the feed's military flag
	IsMilitary bool `json:"isMilitary"`

	// Owner is the registered owner/operator when the feed provides it
	Owner string `json:"owner,omitempty"`

	// Category is the ADS-B emitter category (e.g. "A3")
	Category string `json:"category,omitempty"`

	// Registration is the tail number when known
	Registration string `json:"registration,omitempty"`

	// Squawk is the transponder code
	Squawk string `json:"squawk,omitempty"`

	// VerticalRate in feet per minute (positive = climbing)
	VerticalRate float64 `json:"verticalRate"`

	// OnGround is true when the feed reports the aircraft on the ground
	OnGround bool `json:"onGround"`
}

// Trend describes altitude change between two polls.
type Trend int

const (
	TrendUnknown Trend = iota
	TrendLevel
	TrendClimbing
	TrendDescending
)

// Arrow returns a single-character indicator for the trend.
func (t Trend) Arrow() string {
	switch t {
	case TrendClimbing:
		return "↑"
	case TrendDescending:
		return "↓"
	case TrendLevel:
		return "→"
	default:
		return " "
	}
}

// AltitudeTrend compares Altitude with PreviousAltitude.
func (a Aircraft) AltitudeTrend() Trend {
	if a.PreviousAltitude == nil {
		return TrendUnknown
	}
	switch {
	case a.Altitude > *a.PreviousAltitude:
		return TrendClimbing
	case a.Altitude < *a.PreviousAltitude:
		return TrendDescending
	default:
		return TrendLevel
	}
}

// RawAircraft is one element of the readsb aircraft.json "aircraft" array.
// Only the fields the dashboard uses are decoded; everything is optional.
// Field reference: https://github.com/wiedehopf/readsb/blob/dev/README-json.md
type RawAircraft struct {
	// Hex is the 24-bit ICAO address (e.g. "4ca7b5"), "~" prefixed for non-ICAO
	Hex string `json:"hex"`

	// Flight is the callsign, usually space padded to 8 characters
	Flight *string `json:"flight"`

	// AltBaro is barometric altitude in feet, or the string "ground"
	AltBaro interface{} `json:"alt_baro"`

	// Gs is ground speed in knots
	Gs *float64 `json:"gs"`

	// Track is true track over ground in degrees
	Track *float64 `json:"track"`

	// Lat and Lon are the last known position
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`

	// T is the ICAO type designator from the receiver's aircraft database
	T string `json:"t"`

	// R is the registration from the receiver's aircraft database
	R string `json:"r"`

	// Military is set by some aggregators; readsb encodes it in DBFlags bit 0
	Military *bool `json:"military"`

	// DBFlags is the readsb database flag bitfield (1 = military)
	DBFlags *int `json:"dbFlags"`

	// OwnOp is the owner/operator from the receiver's database
	OwnOp string `json:"ownOp"`

	// Category is the emitter category (A0-D7)
	Category string `json:"category"`

	// Squawk is the transponder code
	Squawk string `json:"squawk"`

	// BaroRate is the barometric vertical rate in feet/minute
	BaroRate *float64 `json:"baro_rate"`
}

// FeedSource is implemented by anything that can produce the current raw
// aircraft set, such as a readsb receiver.
type FeedSource interface {
	// FetchAircraft returns the aircraft currently reported by the feed.
	FetchAircraft(ctx context.Context) ([]RawAircraft, error)
}

// parseAltitude extracts altitude from alt_baro, which is a number or "ground".
// Returns the altitude, whether the aircraft is on the ground, and whether a
// value was present at all.
func parseAltitude(val interface{}) (alt float64, ground bool, ok bool) {
	switch v := val.(type) {
	case float64:
		return v, false, true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false, false
		}
		return f, false, true
	case string:
		if strings.EqualFold(v, "ground") {
			return 0, true, true
		}
		return 0, false, false
	default:
		return 0, false, false
	}
}
