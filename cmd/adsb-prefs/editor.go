package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/unklstewy/adsb-terminal/pkg/preferences"
)

// editor is the tview preferences form.
type editor struct {
	ctx    context.Context
	store  *preferences.Store
	logger *zap.Logger

	app   *tview.Application
	pages *tview.Pages
	form  *tview.Form

	// orig is what the form was last filled with
	orig   formValues
	values formValues
}

func newEditor(ctx context.Context, store *preferences.Store, logger *zap.Logger) *editor {
	e := &editor{
		ctx:    ctx,
		store:  store,
		logger: logger,
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
	}
	e.setupUI()
	return e
}

func (e *editor) setupUI() {
	e.form = tview.NewForm()
	e.form.SetBorder(true).SetTitle(" Terminal Settings ")
	e.fill(e.store.Get())

	e.pages.AddPage("form", e.form, true, true)
	e.app.SetRoot(e.pages, true)
	e.app.SetInputCapture(e.handleKeyboard)
}

// fill rebuilds the form from p.
func (e *editor) fill(p preferences.Preferences) {
	e.orig = valuesFrom(p)
	e.values = e.orig
	v := &e.values

	unit := "mi"
	if p.UseMetric {
		unit = "km"
	}

	paletteIndex := 0
	for i, name := range preferences.Palettes {
		if name == v.Palette {
			paletteIndex = i
		}
	}

	e.form.Clear(true)
	e.form.
		AddInputField("Latitude", v.Lat, 20, tview.InputFieldFloat, func(text string) { v.Lat = text }).
		AddInputField("Longitude", v.Lon, 20, tview.InputFieldFloat, func(text string) { v.Lon = text }).
		AddInputField(fmt.Sprintf("Radius (%s)", unit), v.Radius, 20, tview.InputFieldFloat, func(text string) { v.Radius = text }).
		AddCheckbox("Use metric units", v.UseMetric, func(checked bool) { v.UseMetric = checked }).
		AddInputField("Favorite callsigns", v.Favorites, 40, nil, func(text string) { v.Favorites = text }).
		AddCheckbox("Scanlines", v.Scanlines, func(checked bool) { v.Scanlines = checked }).
		AddCheckbox("Text glow", v.TextGlow, func(checked bool) { v.TextGlow = checked }).
		AddCheckbox("Screen flicker", v.ScreenFlicker, func(checked bool) { v.ScreenFlicker = checked }).
		AddCheckbox("Cursor blink", v.CursorBlink, func(checked bool) { v.CursorBlink = checked }).
		AddDropDown("Palette", preferences.Palettes, paletteIndex, func(option string, _ int) { v.Palette = option }).
		AddButton("Save", e.save).
		AddButton("Defaults", e.reset).
		AddButton("Quit", e.app.Stop)
}

func (e *editor) save() {
	patch, err := e.values.patch(e.orig)
	if err == nil {
		err = e.store.Update(e.ctx, patch)
	}
	if err != nil {
		e.logger.Warn("Preferences rejected", zap.Error(err))
		e.showMessage("Not saved", describe(err))
		return
	}

	e.logger.Info("Preferences saved")
	e.fill(e.store.Get())
	e.showMessage("Saved", "Preferences saved.")
}

func (e *editor) reset() {
	if err := e.store.Reset(e.ctx); err != nil {
		e.logger.Error("Failed to reset preferences", zap.Error(err))
		e.showMessage("Not saved", describe(err))
		return
	}
	e.fill(e.store.Get())
	e.showMessage("Reset", "Defaults restored.")
}

// showMessage overlays a modal until dismissed.
func (e *editor) showMessage(title, text string) {
	modal := tview.NewModal().
		SetText(title + "\n\n" + text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			e.pages.RemovePage("message")
			e.app.SetFocus(e.form)
		})
	e.pages.AddPage("message", modal, true, true)
}

func (e *editor) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyCtrlS {
		e.save()
		return nil
	}
	return event
}

// Run blocks until the form is closed.
func (e *editor) Run() error {
	return e.app.Run()
}

// describe lists each validation failure on its own line.
func describe(err error) string {
	ves := preferences.ValidationErrors(err)
	if len(ves) == 0 {
		return err.Error()
	}
	lines := make([]string, len(ves))
	for i, ve := range ves {
		lines[i] = fmt.Sprintf("%s: %s", ve.Field, ve.Reason)
	}
	return strings.Join(lines, "\n")
}
