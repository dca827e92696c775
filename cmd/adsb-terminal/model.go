package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/adsb-terminal/pkg/adsb"
	"github.com/unklstewy/adsb-terminal/pkg/coordinates"
	"github.com/unklstewy/adsb-terminal/pkg/preferences"
	"github.com/unklstewy/adsb-terminal/pkg/ranking"
)

// radiusStep is the +/- adjustment in the user's distance unit.
const radiusStep = 25.0

type clockMsg time.Time

func clock() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

type model struct {
	ctx   context.Context
	store *preferences.Store
	feed  *feed

	query    ranking.Query
	aircraft []adsb.Aircraft
	ranked   []ranking.Ranked

	// selectedID follows the selected aircraft across re-ranks
	selected   int
	selectedID string
	showDetail bool

	searching bool

	refsLoaded bool
	connected  bool
	lastUpdate time.Time
	lastErr    error
	notice     string
	now        time.Time

	width  int
	height int
}

func newModel(ctx context.Context, store *preferences.Store, f *feed) model {
	return model{
		ctx:   ctx,
		store: store,
		feed:  f,
		query: ranking.DefaultQuery(),
		now:   time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	if m.feed == nil {
		return clock()
	}
	return tea.Batch(m.feed.loadReferences(), clock())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case clockMsg:
		m.now = time.Time(msg)
		return m, clock()

	case refsLoadedMsg:
		m.refsLoaded = true
		if m.feed != nil {
			m.feed.start(msg.provider)
		}

	case pollMsg:
		m.applyPoll(adsb.PollResult(msg))

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

// applyPoll keeps the last good list on error.
func (m *model) applyPoll(r adsb.PollResult) {
	if r.Err != nil {
		m.connected = false
		m.lastErr = r.Err
		return
	}
	m.connected = true
	m.lastErr = nil
	m.aircraft = r.Aircraft
	m.lastUpdate = r.FetchedAt
	m.rerank()
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		m.searching = false
	case tea.KeyEsc:
		m.searching = false
		m.query.Search = ""
	case tea.KeyBackspace:
		if r := []rune(m.query.Search); len(r) > 0 {
			m.query.Search = string(r[:len(r)-1])
		}
	case tea.KeyRunes:
		m.query.Search += string(msg.Runes)
	case tea.KeySpace:
		m.query.Search += " "
	default:
		return m, nil
	}
	m.rerank()
	return m, nil
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selectIndex(m.selected - 1)
		}
	case "down", "j":
		if m.selected < len(m.ranked)-1 {
			m.selectIndex(m.selected + 1)
		}
	case "enter":
		m.showDetail = !m.showDetail && len(m.ranked) > 0
	case "esc":
		m.showDetail = false
	case "/":
		m.searching = true
	case "s":
		m.query.Field = m.query.Field.Next()
		m.rerank()
	case "r":
		m.query.Direction = m.query.Direction.Toggle()
		m.rerank()
	case "u":
		m.report(m.store.ToggleMetric(m.ctx))
	case "f":
		m.toggleFavorite()
	case "+", "=":
		m.adjustRadius(radiusStep)
	case "-", "_":
		m.adjustRadius(-radiusStep)
	}

	return m, nil
}

func (m *model) toggleFavorite() {
	ac, ok := m.current()
	if !ok {
		return
	}
	if ac.Callsign == adsb.NoCallsign {
		m.notice = "No callsign to favorite"
		return
	}
	m.report(m.store.ToggleFavorite(m.ctx, ac.Callsign))
}

func (m *model) adjustRadius(delta float64) {
	r := m.store.Get().MaxRadius + delta
	m.report(m.store.Update(m.ctx, preferences.Patch{MaxRadius: &r}))
}

// report re-ranks after a successful preferences change, or shows the
// rejection.
func (m *model) report(err error) {
	if err != nil {
		if ves := preferences.ValidationErrors(err); len(ves) > 0 {
			m.notice = ves[0].Error()
		} else {
			m.notice = err.Error()
		}
		return
	}
	m.rerank()
}

// rerank rebuilds the visible list and keeps the selection on the same
// aircraft when it is still present.
func (m *model) rerank() {
	m.ranked = ranking.RankQuery(m.aircraft, m.store.Get(), m.query)

	for i, r := range m.ranked {
		if r.ID == m.selectedID {
			m.selected = i
			return
		}
	}
	if m.selected >= len(m.ranked) {
		m.selected = len(m.ranked) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.selectIndex(m.selected)
}

func (m *model) selectIndex(i int) {
	m.selected = i
	m.selectedID = ""
	if i >= 0 && i < len(m.ranked) {
		m.selectedID = m.ranked[i].ID
	}
	if m.selectedID == "" {
		m.showDetail = false
	}
}

func (m model) current() (ranking.Ranked, bool) {
	if m.selected < 0 || m.selected >= len(m.ranked) {
		return ranking.Ranked{}, false
	}
	return m.ranked[m.selected], true
}

// statusText summarises the feed for the status bar.
func (m model) statusText() string {
	switch {
	case !m.refsLoaded:
		return "Loading reference data"
	case m.lastErr != nil:
		var rle *adsb.RateLimitError
		if errors.As(m.lastErr, &rle) {
			return "Disconnected: rate limited"
		}
		return fmt.Sprintf("Disconnected: %v", m.lastErr)
	case m.connected:
		return "Connected"
	default:
		return "Waiting for feed"
	}
}

// radiusText shows the radius in the user's unit.
func radiusText(p preferences.Preferences) string {
	return fmt.Sprintf("%.0f %s", p.MaxRadius, coordinates.DistanceUnit(p.UseMetric))
}
