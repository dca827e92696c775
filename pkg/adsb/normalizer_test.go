package adsb

import (
	"testing"

	"github.com/unklstewy/adsb-terminal/pkg/refdata"
)

func testProvider() *refdata.Provider {
	models := refdata.Parse("ICAO,IATA,model\nA320,320,Airbus A320\nB738,738,Boeing 737-800\n",
		refdata.ModelKeyField, refdata.ModelNameField)
	airlines := refdata.Parse("airlinename,IATA,icao\nBritish Airways,BA,BAW\nEasyJet,U2,EZY\n",
		refdata.AirlineKeyField, refdata.AirlineNameField)
	return refdata.NewProvider(models, airlines)
}

// TestNormalizeEnrichment tests reference lookups and field mapping.
func TestNormalizeEnrichment(t *testing.T) {
	n := NewNormalizer(testProvider())

	t.Run("Known airline and model", func(t *testing.T) {
		n.Reset()
		list := n.Normalize([]RawAircraft{{
			Hex:      "4CA7B5",
			Flight:   strPtr("BAW456  "),
			AltBaro:  35000.0,
			Gs:       floatPtr(450),
			Track:    floatPtr(270),
			Lat:      floatPtr(51.47),
			Lon:      floatPtr(-0.4543),
			T:        "A320",
			BaroRate: floatPtr(-64),
		}})

		if len(list) != 1 {
			t.Fatalf("Expected 1 aircraft, got %d", len(list))
		}
		ac := list[0]
		if ac.ID != "4ca7b5" {
			t.Errorf("Expected lower-cased ID 4ca7b5, got %s", ac.ID)
		}
		if ac.Callsign != "BAW456" {
			t.Errorf("Expected callsign BAW456, got %q", ac.Callsign)
		}
		if ac.Airline != "British Airways" || ac.AirlineCode != "BAW" {
			t.Errorf("Expected British Airways/BAW, got %s/%s", ac.Airline, ac.AirlineCode)
		}
		if ac.Model != "Airbus A320" || ac.ModelCode != "A320" {
			t.Errorf("Expected Airbus A320/A320, got %s/%s", ac.Model, ac.ModelCode)
		}
		if ac.Altitude != 35000 || ac.Speed != 450 || ac.Heading != 270 {
			t.Errorf("Unexpected kinematics %+v", ac)
		}
		if ac.VerticalRate != -64 {
			t.Errorf("Expected vertical rate -64, got %f", ac.VerticalRate)
		}
		if ac.PreviousAltitude != nil {
			t.Error("Expected no previous altitude on first sighting")
		}
	})

	t.Run("Unknown fallbacks", func(t *testing.T) {
		n.Reset()
		list := n.Normalize([]RawAircraft{
			{Hex: "a1", Flight: strPtr("N839AL"), T: "C172"},
			{Hex: "a2", Flight: strPtr("   ")},
			{Hex: "a3", Flight: strPtr("BA")},
			{Hex: "a4"},
		})

		if list[0].Airline != Unknown || list[0].AirlineCode != "" {
			t.Errorf("Expected Unknown airline, got %s/%s", list[0].Airline, list[0].AirlineCode)
		}
		if list[0].Model != Unknown || list[0].ModelCode != "C172" {
			t.Errorf("Expected Unknown model with code C172, got %s/%s", list[0].Model, list[0].ModelCode)
		}
		if list[1].Callsign != NoCallsign {
			t.Errorf("Expected blank callsign to become %s, got %q", NoCallsign, list[1].Callsign)
		}
		if list[2].Airline != Unknown {
			t.Errorf("Expected short callsign to miss, got %s", list[2].Airline)
		}
		if list[3].Callsign != NoCallsign || list[3].Model != Unknown || list[3].Airline != Unknown {
			t.Errorf("Expected all fallbacks, got %+v", list[3])
		}
	})

	t.Run("Ground and military flags", func(t *testing.T) {
		n.Reset()
		yes, no := true, false
		flags := 1
		list := n.Normalize([]RawAircraft{
			{Hex: "g1", AltBaro: "ground"},
			{Hex: "m1", Military: &yes},
			{Hex: "m2", DBFlags: &flags},
			{Hex: "m3", Military: &no, DBFlags: &flags},
		})

		if !list[0].OnGround || list[0].Altitude != 0 {
			t.Errorf("Expected on-ground at 0 ft, got %+v", list[0])
		}
		if !list[1].IsMilitary || !list[2].IsMilitary {
			t.Error("Expected military from flag and dbFlags")
		}
		if list[3].IsMilitary {
			t.Error("Expected explicit military=false to win over dbFlags")
		}
	})

	t.Run("Nil provider", func(t *testing.T) {
		list := NewNormalizer(nil).Normalize([]RawAircraft{{Hex: "x", Flight: strPtr("BAW1"), T: "A320"}})
		if list[0].Airline != Unknown || list[0].Model != Unknown {
			t.Errorf("Expected Unknown with no reference data, got %+v", list[0])
		}
	})
}

// TestNormalizeAltitudeMemory tests PreviousAltitude across polls.
func TestNormalizeAltitudeMemory(t *testing.T) {
	n := NewNormalizer(testProvider())

	first := n.Normalize([]RawAircraft{
		{Hex: "abc", AltBaro: 10000.0},
		{Hex: "def", AltBaro: 5000.0},
	})
	if first[0].PreviousAltitude != nil {
		t.Fatal("Expected nil previous altitude on first poll")
	}

	second := n.Normalize([]RawAircraft{
		{Hex: "ABC", AltBaro: 9000.0},
		{Hex: "new", AltBaro: 1000.0},
	})
	if second[0].PreviousAltitude == nil || *second[0].PreviousAltitude != 10000 {
		t.Fatalf("Expected previous altitude 10000, got %v", second[0].PreviousAltitude)
	}
	if second[0].AltitudeTrend() != TrendDescending {
		t.Errorf("Expected descending trend, got %v", second[0].AltitudeTrend())
	}
	if second[1].PreviousAltitude != nil {
		t.Error("Expected newly seen aircraft to have no previous altitude")
	}

	// def dropped out of poll two, so it is new again in poll three
	third := n.Normalize([]RawAircraft{{Hex: "def", AltBaro: 5000.0}})
	if third[0].PreviousAltitude != nil {
		t.Error("Expected memory to cover only the previous poll")
	}
}

// TestNormalizeAltitudeMemoryNeedsHex tests that aircraft without a single
// unambiguous hex never inherit another aircraft's altitude.
func TestNormalizeAltitudeMemoryNeedsHex(t *testing.T) {
	t.Run("Missing hex", func(t *testing.T) {
		n := NewNormalizer(nil)
		n.Normalize([]RawAircraft{{Flight: strPtr("AAA1"), AltBaro: 30000.0}})

		list := n.Normalize([]RawAircraft{{Flight: strPtr("ZZZ9"), AltBaro: 1000.0}})
		if list[0].ID != "~anon-0" {
			t.Fatalf("Expected ID ~anon-0, got %s", list[0].ID)
		}
		if list[0].PreviousAltitude != nil {
			t.Errorf("Expected no previous altitude, got %v", *list[0].PreviousAltitude)
		}
	})

	t.Run("Duplicated hex", func(t *testing.T) {
		n := NewNormalizer(nil)
		n.Normalize([]RawAircraft{
			{Hex: "abc", AltBaro: 100.0},
			{Hex: "abc", AltBaro: 9000.0},
		})

		list := n.Normalize([]RawAircraft{
			{Hex: "abc", AltBaro: 9100.0},
			{Hex: "abc", AltBaro: 200.0},
		})
		for _, ac := range list {
			if ac.PreviousAltitude != nil {
				t.Errorf("%s: expected no previous altitude, got %v", ac.ID, *ac.PreviousAltitude)
			}
		}

		// Once the hex is unique again it starts a fresh memory
		n.Normalize([]RawAircraft{{Hex: "abc", AltBaro: 9200.0}})
		list = n.Normalize([]RawAircraft{{Hex: "abc", AltBaro: 9300.0}})
		if list[0].PreviousAltitude == nil || *list[0].PreviousAltitude != 9200 {
			t.Errorf("Expected previous altitude 9200, got %v", list[0].PreviousAltitude)
		}
	})
}

// TestNormalizeUniqueIDs tests ID assignment for missing and repeated hex codes.
func TestNormalizeUniqueIDs(t *testing.T) {
	n := NewNormalizer(nil)
	list := n.Normalize([]RawAircraft{
		{Hex: "abc"},
		{Hex: ""},
		{Hex: "ABC "},
		{},
		{Hex: "abc"},
	})

	want := []string{"abc", "~anon-1", "abc#1", "~anon-3", "abc#2"}
	seen := map[string]bool{}
	for i, ac := range list {
		if ac.ID != want[i] {
			t.Errorf("index %d: expected ID %s, got %s", i, want[i], ac.ID)
		}
		if seen[ac.ID] {
			t.Errorf("Duplicate ID %s", ac.ID)
		}
		seen[ac.ID] = true
	}

	// Placeholder IDs are positional, so they are stable across identical polls
	again := n.Normalize([]RawAircraft{{Hex: "abc"}, {Hex: ""}})
	if again[1].ID != "~anon-1" {
		t.Errorf("Expected stable placeholder ID, got %s", again[1].ID)
	}
}

// TestNormalizeEmpty tests that an empty poll yields an empty, non-nil list.
func TestNormalizeEmpty(t *testing.T) {
	list := NewNormalizer(nil).Normalize(nil)
	if list == nil || len(list) != 0 {
		t.Errorf("Expected empty list, got %v", list)
	}
}
