package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/adsb-terminal/pkg/adsb"
	"github.com/unklstewy/adsb-terminal/pkg/coordinates"
	"github.com/unklstewy/adsb-terminal/pkg/preferences"
	"github.com/unklstewy/adsb-terminal/pkg/ranking"
)

const version = "v1.0.0"

// palette colors: bright text, normal text, dim text.
var paletteColors = map[string][3]lipgloss.Color{
	preferences.PaletteGreen: {"46", "34", "22"},
	preferences.PaletteAmber: {"214", "172", "94"},
	preferences.PaletteCyan:  {"51", "37", "23"},
	preferences.PaletteWhite: {"255", "250", "240"},
}

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	text     lipgloss.Style
	dim      lipgloss.Style
	selected lipgloss.Style
	scanline lipgloss.Style
	favorite lipgloss.Style
	military lipgloss.Style
	err      lipgloss.Style
	panel    lipgloss.Style
}

// newStyles derives every style from the theme.
func newStyles(theme preferences.Theme, flickerOff bool) styles {
	c, ok := paletteColors[theme.Palette]
	if !ok {
		c = paletteColors[preferences.DefaultPalette]
	}

	text := lipgloss.NewStyle().Foreground(c[1])
	if theme.TextGlow {
		text = text.Foreground(c[0]).Bold(true)
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(c[0]).
		Background(lipgloss.Color("235")).
		Padding(0, 1)
	if theme.ScreenFlicker && flickerOff {
		title = title.Faint(true)
	}

	return styles{
		title:    title,
		header:   lipgloss.NewStyle().Bold(true).Foreground(c[0]),
		text:     text,
		dim:      lipgloss.NewStyle().Foreground(c[2]),
		selected: text.Background(lipgloss.Color("237")),
		scanline: text.Background(lipgloss.Color("233")),
		favorite: lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		military: lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(c[2]).
			Padding(0, 1),
	}
}

func (m model) View() string {
	prefs := m.store.Get()
	st := newStyles(prefs.Theme, m.now.Second()%7 == 0)

	var s strings.Builder

	s.WriteString(st.title.Render("ADSB TERMINAL " + version))
	s.WriteString("  ")
	s.WriteString(st.dim.Render(fmt.Sprintf("%.4f, %.4f  radius %s",
		prefs.Location.Lat, prefs.Location.Lon, radiusText(prefs))))
	s.WriteString("\n\n")

	if m.searching || m.query.Search != "" {
		cursor := ""
		if m.searching && (!prefs.Theme.CursorBlink || m.now.Second()%2 == 0) {
			cursor = "_"
		}
		s.WriteString(st.header.Render("/ "))
		s.WriteString(st.text.Render(m.query.Search + cursor))
		s.WriteString("\n")
	}

	table := m.renderTable(st, prefs)
	if m.showDetail {
		if ac, ok := m.current(); ok {
			table = lipgloss.JoinHorizontal(lipgloss.Top, table, "  ", m.renderDetail(st, prefs, ac))
		}
	}
	s.WriteString(table)
	s.WriteString("\n")

	s.WriteString(m.renderStatus(st))
	s.WriteString("\n")
	s.WriteString(st.dim.Render("↑/↓: Select  ENTER: Detail  /: Search  S: Sort  R: Reverse  U: Units  F: Favorite  +/-: Radius  Q: Quit"))
	s.WriteString("\n")

	return s.String()
}

// visibleRows is how many table rows fit on screen.
func (m model) visibleRows() int {
	rows := m.height - 10
	if rows < 5 {
		rows = 5
	}
	return rows
}

func (m model) renderTable(st styles, prefs preferences.Preferences) string {
	var t strings.Builder

	columns := []struct {
		label string
		field ranking.SortField
		width int
	}{
		{"CALLSIGN", ranking.SortCallsign, 10},
		{"AIRLINE", ranking.SortAirline, 20},
		{"MODEL", "", 20},
		{"ALT", ranking.SortAltitude, 12},
		{"SPD", ranking.SortSpeed, 10},
		{"HDG", "", 8},
		{"DIST", ranking.SortDistance, 10},
	}

	header := "    "
	for _, c := range columns {
		label := c.label
		if c.field == m.query.Field {
			label += m.query.Direction.Arrow()
		}
		header += pad(label, c.width)
	}
	t.WriteString(st.header.Render(header))
	t.WriteString("\n")

	if len(m.ranked) == 0 {
		msg := "  No aircraft in range"
		if m.query.Search != "" {
			msg = fmt.Sprintf("  No aircraft match %q", m.query.Search)
		}
		t.WriteString(st.dim.Render(msg))
		t.WriteString("\n")
		return t.String()
	}

	rows := m.visibleRows()
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	end := start + rows
	if end > len(m.ranked) {
		end = len(m.ranked)
	}

	for i := start; i < end; i++ {
		r := m.ranked[i]

		prefix := "  "
		if i == m.selected {
			prefix = "→ "
		}
		marks := " "
		switch {
		case r.Favorite:
			marks = st.favorite.Render("★")
		case r.IsMilitary:
			marks = st.military.Render("M")
		}

		line := pad(r.Callsign, 10) +
			pad(r.Airline, 20) +
			pad(r.Model, 20) +
			pad(altitudeText(r.Aircraft, prefs.UseMetric), 12) +
			pad(fmt.Sprintf("%.0f %s", coordinates.ConvertSpeed(r.Speed, prefs.UseMetric), coordinates.SpeedUnit(prefs.UseMetric)), 10) +
			pad(fmt.Sprintf("%03.0f°", r.Heading), 8) +
			pad(fmt.Sprintf("%.1f %s", coordinates.ConvertDistance(r.Distance, prefs.UseMetric), coordinates.DistanceUnit(prefs.UseMetric)), 10)

		style := st.text
		switch {
		case i == m.selected:
			style = st.selected
		case prefs.Theme.Scanlines && i%2 == 1:
			style = st.scanline
		}

		t.WriteString(prefix)
		t.WriteString(marks)
		t.WriteString(" ")
		t.WriteString(style.Render(line))
		t.WriteString("\n")
	}

	if len(m.ranked) > rows {
		t.WriteString(st.dim.Render(fmt.Sprintf("  %d-%d of %d", start+1, end, len(m.ranked))))
		t.WriteString("\n")
	}

	return t.String()
}

func (m model) renderDetail(st styles, prefs preferences.Preferences, r ranking.Ranked) string {
	var d strings.Builder

	d.WriteString(st.header.Render(r.Callsign))
	if r.Favorite {
		d.WriteString(" " + st.favorite.Render("★"))
	}
	if r.IsMilitary {
		d.WriteString(" " + st.military.Render("MILITARY"))
	}
	d.WriteString("\n\n")

	field := func(label, value string) {
		d.WriteString(st.dim.Render(label))
		d.WriteString("\n")
		d.WriteString(st.text.Render(value))
		d.WriteString("\n")
	}

	field("Position", positionText(r.Lat, r.Lon))
	field("Altitude", altitudeText(r.Aircraft, prefs.UseMetric))
	field("Speed", fmt.Sprintf("%.0f %s", coordinates.ConvertSpeed(r.Speed, prefs.UseMetric), coordinates.SpeedUnit(prefs.UseMetric)))
	field("Heading", fmt.Sprintf("%.0f° %s", r.Heading, coordinates.CardinalDirection(r.Heading)))
	field("Range", fmt.Sprintf("%.1f %s bearing %.0f° %s",
		coordinates.ConvertDistance(r.Distance, prefs.UseMetric), coordinates.DistanceUnit(prefs.UseMetric),
		r.Bearing, coordinates.CardinalDirection(r.Bearing)))
	if r.VerticalRate != 0 {
		field("Vertical rate", fmt.Sprintf("%+.0f ft/min", r.VerticalRate))
	}
	field("Aircraft", fmt.Sprintf("%s (%s)", r.Model, orDash(r.ModelCode)))
	field("Airline", fmt.Sprintf("%s (%s)", r.Airline, orDash(r.AirlineCode)))
	field("Registration", orDash(r.Registration))
	field("Owner", orDash(r.Owner))
	field("Category", orDash(r.Category))
	field("Squawk", orDash(r.Squawk))
	field("Hex", r.ID)

	return st.panel.Render(strings.TrimRight(d.String(), "\n"))
}

func (m model) renderStatus(st styles) string {
	var parts []string

	status := m.statusText()
	if m.connected {
		parts = append(parts, st.header.Render("● ")+st.text.Render(status))
	} else {
		parts = append(parts, st.err.Render("● "+status))
	}
	if !m.lastUpdate.IsZero() {
		parts = append(parts, st.dim.Render("updated "+m.lastUpdate.Format("15:04:05")))
	}
	parts = append(parts, st.text.Render(fmt.Sprintf("%d aircraft", len(m.ranked))))
	if m.notice != "" {
		parts = append(parts, st.err.Render(m.notice))
	}
	parts = append(parts, st.dim.Render(m.now.Format("15:04:05")))

	return strings.Join(parts, "  │  ")
}

// altitudeText renders altitude with its trend arrow, or GND.
func altitudeText(ac adsb.Aircraft, metric bool) string {
	if ac.OnGround {
		return "GND"
	}
	return fmt.Sprintf("%.0f %s %s",
		coordinates.ConvertAltitude(ac.Altitude, metric),
		coordinates.AltitudeUnit(metric),
		ac.AltitudeTrend().Arrow())
}

// positionText formats decimal degrees with hemisphere letters.
func positionText(lat, lon float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
	}
	if lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.4f°%s, %.4f°%s", math.Abs(lat), ns, math.Abs(lon), ew)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// pad truncates or pads s to width display cells.
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width-1]) + " "
	}
	return s + strings.Repeat(" ", width-len(r))
}
