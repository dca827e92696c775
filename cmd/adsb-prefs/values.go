package main

import (
	"errors"
	"strconv"
	"strings"

	"github.com/unklstewy/adsb-terminal/pkg/preferences"
)

// formValues mirrors the form fields as entered.
type formValues struct {
	Lat       string
	Lon       string
	Radius    string
	UseMetric bool
	Favorites string

	Scanlines     bool
	TextGlow      bool
	ScreenFlicker bool
	CursorBlink   bool
	Palette       string
}

func valuesFrom(p preferences.Preferences) formValues {
	return formValues{
		Lat:           formatFloat(p.Location.Lat),
		Lon:           formatFloat(p.Location.Lon),
		Radius:        formatFloat(p.MaxRadius),
		UseMetric:     p.UseMetric,
		Favorites:     strings.Join(p.FavoriteCallsigns.Sorted(), ", "),
		Scanlines:     p.Theme.Scanlines,
		TextGlow:      p.Theme.TextGlow,
		ScreenFlicker: p.Theme.ScreenFlicker,
		CursorBlink:   p.Theme.CursorBlink,
		Palette:       p.Theme.Palette,
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// patch builds the update for v relative to the values the form opened with.
// When only the unit changed the radius is left out so the store converts it.
func (v formValues) patch(orig formValues) (preferences.Patch, error) {
	var errs []error

	parse := func(field, text string) *float64 {
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			errs = append(errs, &preferences.ValidationError{Field: field, Value: text, Reason: "must be a number"})
			return nil
		}
		return &f
	}

	pt := preferences.Patch{
		Lat:           parse("location.lat", v.Lat),
		Lon:           parse("location.lon", v.Lon),
		UseMetric:     &v.UseMetric,
		Favorites:     parseFavorites(v.Favorites),
		Scanlines:     &v.Scanlines,
		TextGlow:      &v.TextGlow,
		ScreenFlicker: &v.ScreenFlicker,
		CursorBlink:   &v.CursorBlink,
		Palette:       &v.Palette,
	}
	if v.Radius != orig.Radius || v.UseMetric == orig.UseMetric {
		pt.MaxRadius = parse("maxRadius", v.Radius)
	}

	if err := errors.Join(errs...); err != nil {
		return preferences.Patch{}, err
	}
	return pt, nil
}

// parseFavorites splits a comma or space separated callsign list. Feed
// callsigns are upper case.
func parseFavorites(text string) preferences.CallsignSet {
	fields := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return preferences.NewCallsignSet(fields...)
}
