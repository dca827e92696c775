package ranking

import (
	"math"
	"testing"

	"github.com/unklstewy/adsb-terminal/pkg/adsb"
	"github.com/unklstewy/adsb-terminal/pkg/preferences"
)

// Positions north of London at increasing distance.
func fixture() []adsb.Aircraft {
	return []adsb.Aircraft{
		{ID: "a", Callsign: "BAW456", Airline: "British Airways", Model: "Airbus A320", Lat: 51.60, Lon: -0.1278, Altitude: 35000, Speed: 450},
		{ID: "b", Callsign: "EZY12", Airline: "EasyJet", Model: "Airbus A319", Lat: 51.55, Lon: -0.1278, Altitude: 12000, Speed: 300},
		{ID: "c", Callsign: "N/A", Airline: "Unknown", Model: "Unknown", Lat: 52.50, Lon: -0.1278, Altitude: 12000, Speed: 120},
		{ID: "d", Callsign: "RYR9", Airline: "Ryanair", Model: "Boeing 737-800", Lat: 53.50, Lon: -0.1278, Altitude: 38000, Speed: 480},
	}
}

func ids(list []Ranked) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestRankRadius tests inclusive radius filtering.
func TestRankRadius(t *testing.T) {
	prefs := preferences.Default()

	t.Run("Default radius includes all", func(t *testing.T) {
		if got := Rank(fixture(), prefs, "", SortDistance, Ascending); len(got) != 4 {
			t.Errorf("Expected 4 aircraft, got %d", len(got))
		}
	})

	t.Run("Tiny radius excludes all", func(t *testing.T) {
		p := prefs
		p.MaxRadius = 0.0001
		if got := Rank(fixture(), p, "", SortDistance, Ascending); len(got) != 0 {
			t.Errorf("Expected 0 aircraft, got %d", len(got))
		}
	})

	t.Run("Zero radius keeps only exact position", func(t *testing.T) {
		p := prefs
		p.MaxRadius = 0
		list := append(fixture(), adsb.Aircraft{ID: "here", Lat: p.Location.Lat, Lon: p.Location.Lon})
		got := Rank(list, p, "", SortDistance, Ascending)
		if !equal(ids(got), []string{"here"}) {
			t.Errorf("Expected only the co-located aircraft, got %v", ids(got))
		}
	})

	t.Run("Huge radius includes all", func(t *testing.T) {
		p := prefs
		p.MaxRadius = 1e9
		if got := Rank(fixture(), p, "", SortDistance, Ascending); len(got) != 4 {
			t.Errorf("Expected 4 aircraft, got %d", len(got))
		}
	})

	t.Run("Metric radius is converted", func(t *testing.T) {
		// c is about 69 miles away: inside 120 km (74.6 mi), outside 100 km (62 mi)
		p := prefs
		p.UseMetric = true
		p.MaxRadius = 120
		if got := ids(Rank(fixture(), p, "", SortDistance, Ascending)); !equal(got, []string{"b", "a", "c"}) {
			t.Errorf("Expected b, a, c within 120 km, got %v", got)
		}
		p.MaxRadius = 100
		if got := ids(Rank(fixture(), p, "", SortDistance, Ascending)); !equal(got, []string{"b", "a"}) {
			t.Errorf("Expected b, a within 100 km, got %v", got)
		}
	})

	t.Run("Distances are attached in miles", func(t *testing.T) {
		got := Rank(fixture(), prefs, "", SortDistance, Ascending)
		// 0.0926 degrees of latitude is about 6.4 miles
		if math.Abs(got[1].Distance-6.4) > 0.1 {
			t.Errorf("Expected about 6.4 mi, got %f", got[1].Distance)
		}
		if math.Abs(got[1].Bearing) > 0.01 && math.Abs(got[1].Bearing-360) > 0.01 {
			t.Errorf("Expected bearing due north, got %f", got[1].Bearing)
		}
	})
}

// TestRankSearch tests case-insensitive search on callsign, airline and model.
func TestRankSearch(t *testing.T) {
	prefs := preferences.Default()

	tests := []struct {
		search string
		want   []string
	}{
		{"", []string{"b", "a", "c", "d"}},
		{"   ", []string{"b", "a", "c", "d"}},
		{"baw", []string{"a"}},
		{"easyjet", []string{"b"}},
		{"AIRBUS", []string{"b", "a"}},
		{"737", []string{"d"}},
		{"unknown", []string{"c"}},
		{"zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			got := ids(Rank(fixture(), prefs, tt.search, SortDistance, Ascending))
			if !equal(got, tt.want) {
				t.Errorf("Search %q: expected %v, got %v", tt.search, tt.want, got)
			}
		})
	}
}

// TestRankSort tests every sort field in both directions.
func TestRankSort(t *testing.T) {
	prefs := preferences.Default()

	tests := []struct {
		field SortField
		asc   []string
		desc  []string
	}{
		{SortDistance, []string{"b", "a", "c", "d"}, []string{"d", "c", "a", "b"}},
		// b and c share 12000 ft and keep input order in both directions
		{SortAltitude, []string{"b", "c", "a", "d"}, []string{"d", "a", "b", "c"}},
		{SortSpeed, []string{"c", "b", "a", "d"}, []string{"d", "a", "b", "c"}},
		{SortCallsign, []string{"a", "b", "c", "d"}, []string{"d", "c", "b", "a"}},
		{SortAirline, []string{"a", "b", "d", "c"}, []string{"c", "d", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			if got := ids(Rank(fixture(), prefs, "", tt.field, Ascending)); !equal(got, tt.asc) {
				t.Errorf("asc: expected %v, got %v", tt.asc, got)
			}
			if got := ids(Rank(fixture(), prefs, "", tt.field, Descending)); !equal(got, tt.desc) {
				t.Errorf("desc: expected %v, got %v", tt.desc, got)
			}
		})
	}
}

// TestRankDescendingIsReverse checks asc/desc are mirror images for distinct keys.
func TestRankDescendingIsReverse(t *testing.T) {
	prefs := preferences.Default()
	asc := ids(Rank(fixture(), prefs, "", SortDistance, Ascending))
	desc := ids(Rank(fixture(), prefs, "", SortDistance, Descending))

	for i := range asc {
		if asc[i] != desc[len(desc)-1-i] {
			t.Fatalf("Expected desc to reverse asc: %v vs %v", asc, desc)
		}
	}
}

// TestRankFavorites tests favorite annotation and input immutability.
func TestRankFavorites(t *testing.T) {
	prefs := preferences.Default()
	prefs.FavoriteCallsigns = preferences.NewCallsignSet("RYR9")

	input := fixture()
	got := Rank(input, prefs, "", SortCallsign, Descending)
	if !got[0].Favorite || got[0].Callsign != "RYR9" {
		t.Errorf("Expected RYR9 flagged as favorite, got %+v", got[0])
	}
	for _, r := range got[1:] {
		if r.Favorite {
			t.Errorf("Unexpected favorite %s", r.Callsign)
		}
	}
	if input[0].ID != "a" || input[3].ID != "d" {
		t.Error("Expected input order untouched")
	}
}

// TestSortControls tests parsing and cycling helpers.
func TestSortControls(t *testing.T) {
	f, err := ParseSortField(" Altitude ")
	if err != nil || f != SortAltitude {
		t.Errorf("Expected altitude, got %v (%v)", f, err)
	}
	if _, err := ParseSortField("heading"); err == nil {
		t.Error("Expected error for unknown field")
	}

	seen := map[SortField]bool{}
	field := SortDistance
	for range SortFields {
		seen[field] = true
		field = field.Next()
	}
	if field != SortDistance || len(seen) != len(SortFields) {
		t.Errorf("Expected Next to cycle through every field, saw %v", seen)
	}

	if Ascending.Toggle() != Descending || Descending.Toggle() != Ascending {
		t.Error("Toggle did not flip direction")
	}
	if d, err := ParseSortDirection("DESC"); err != nil || d != Descending {
		t.Errorf("Expected desc, got %v (%v)", d, err)
	}
	if _, err := ParseSortDirection("up"); err == nil {
		t.Error("Expected error for unknown direction")
	}
}
