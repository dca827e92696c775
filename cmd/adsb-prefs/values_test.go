package main

import (
	"context"
	"testing"

	"github.com/unklstewy/adsb-terminal/pkg/preferences"
)

// TestValuesPatch tests conversion of form text into a store update.
func TestValuesPatch(t *testing.T) {
	orig := valuesFrom(preferences.Default())

	t.Run("Unchanged form round trips", func(t *testing.T) {
		pt, err := orig.patch(orig)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if *pt.Lat != preferences.DefaultLatitude || *pt.MaxRadius != preferences.DefaultMaxRadius {
			t.Errorf("Expected defaults, got lat %v radius %v", *pt.Lat, *pt.MaxRadius)
		}
	})

	t.Run("Non-numeric fields are reported together", func(t *testing.T) {
		v := orig
		v.Lat = "north"
		v.Radius = ""
		_, err := v.patch(orig)
		ves := preferences.ValidationErrors(err)
		if len(ves) != 2 {
			t.Fatalf("Expected 2 validation errors, got %d (%v)", len(ves), err)
		}
		if ves[0].Field != "location.lat" || ves[1].Field != "maxRadius" {
			t.Errorf("Unexpected fields %s, %s", ves[0].Field, ves[1].Field)
		}
	})

	t.Run("Unit change alone leaves radius to the store", func(t *testing.T) {
		v := orig
		v.UseMetric = true
		pt, err := v.patch(orig)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if pt.MaxRadius != nil {
			t.Errorf("Expected no radius in patch, got %v", *pt.MaxRadius)
		}
	})

	t.Run("Favorites are parsed", func(t *testing.T) {
		v := orig
		v.Favorites = "baw456, EZY12  ryr9,,"
		pt, err := v.patch(orig)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		got := pt.Favorites.Sorted()
		want := []string{"BAW456", "EZY12", "RYR9"}
		if len(got) != len(want) {
			t.Fatalf("Expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Expected %v, got %v", want, got)
			}
		}
	})
}

// TestSaveThroughStore tests that an out-of-range form is rejected without
// touching stored state.
func TestSaveThroughStore(t *testing.T) {
	ctx := context.Background()
	store, err := preferences.Open(ctx, preferences.NewMemoryStorage(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	orig := valuesFrom(store.Get())
	v := orig
	v.Lat = "95"
	v.Palette = "pink"

	pt, err := v.patch(orig)
	if err != nil {
		t.Fatalf("Unexpected parse error: %v", err)
	}
	err = store.Update(ctx, pt)
	if ves := preferences.ValidationErrors(err); len(ves) != 2 {
		t.Fatalf("Expected 2 validation errors, got %v", err)
	}
	if got := describe(err); got != "location.lat: must be between -90 and 90\ntheme.palette: must be one of green, amber, cyan, white" {
		t.Errorf("Unexpected description %q", got)
	}
	if store.Get().Location.Lat != preferences.DefaultLatitude {
		t.Error("Expected stored latitude unchanged")
	}

	v = orig
	v.UseMetric = true
	pt, _ = v.patch(orig)
	if err := store.Update(ctx, pt); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := store.Get().MaxRadius; got < 402 || got > 403 {
		t.Errorf("Expected 250 mi converted to about 402 km, got %v", got)
	}
}
