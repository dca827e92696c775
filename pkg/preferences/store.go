package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/unklstewy/adsb-terminal/pkg/coordinates"
	"go.uber.org/zap"
)

// Store is the single owner of the current preferences. Every successful
// mutation is persisted before it returns; a failed save leaves both the
// store and storage unchanged. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	prefs   Preferences
	storage Storage
	logger  *zap.Logger
}

// Open hydrates a store from storage. A missing blob yields defaults; an
// unreadable or invalid one is logged and also yields defaults. Open only
// fails on a nil storage.
func Open(ctx context.Context, storage Storage, logger *zap.Logger) (*Store, error) {
	if storage == nil {
		return nil, fmt.Errorf("preferences: nil storage")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		prefs:   Default(),
		storage: storage,
		logger:  logger,
	}

	data, err := storage.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Info("no stored preferences, using defaults")
	case err != nil:
		logger.Warn("failed to load preferences, using defaults", zap.Error(err))
	default:
		p, err := decode(data)
		if err != nil {
			logger.Warn("stored preferences unusable, using defaults", zap.Error(err))
		} else {
			s.prefs = p
		}
	}

	return s, nil
}

// Get returns a copy of the current preferences.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

// Update validates and applies a patch. A UseMetric change in the patch
// converts MaxRadius unless the patch also sets MaxRadius.
func (s *Store) Update(ctx context.Context, patch Patch) error {
	return s.mutate(ctx, func(p Preferences) (Preferences, error) {
		next := patch.apply(p)
		if patch.UseMetric != nil && patch.MaxRadius == nil && next.UseMetric != p.UseMetric {
			next.MaxRadius = convertRadius(p.MaxRadius, p.UseMetric, next.UseMetric)
		}
		return next, nil
	})
}

// SetLocation sets the reference point.
func (s *Store) SetLocation(ctx context.Context, lat, lon float64) error {
	return s.Update(ctx, Patch{Lat: &lat, Lon: &lon})
}

// SetUseMetric switches units and converts MaxRadius so the physical radius
// is unchanged.
func (s *Store) SetUseMetric(ctx context.Context, metric bool) error {
	return s.Update(ctx, Patch{UseMetric: &metric})
}

// ToggleMetric flips the unit system.
func (s *Store) ToggleMetric(ctx context.Context) error {
	return s.mutate(ctx, func(p Preferences) (Preferences, error) {
		next := p.Clone()
		next.UseMetric = !p.UseMetric
		next.MaxRadius = convertRadius(p.MaxRadius, p.UseMetric, next.UseMetric)
		return next, nil
	})
}

// ToggleFavorite adds callsign to the favorites or removes it if present.
// Toggling twice restores the original set.
func (s *Store) ToggleFavorite(ctx context.Context, callsign string) error {
	cs := strings.TrimSpace(callsign)
	if cs == "" {
		return &ValidationError{Field: "favoriteCallsigns", Value: callsign, Reason: "callsign is empty"}
	}

	return s.mutate(ctx, func(p Preferences) (Preferences, error) {
		next := p.Clone()
		if next.FavoriteCallsigns.Contains(cs) {
			delete(next.FavoriteCallsigns, cs)
		} else {
			next.FavoriteCallsigns[cs] = struct{}{}
		}
		return next, nil
	})
}

// Reset restores and persists the defaults.
func (s *Store) Reset(ctx context.Context) error {
	return s.mutate(ctx, func(Preferences) (Preferences, error) {
		return Default(), nil
	})
}

// mutate applies fn, validates, persists, and only then publishes.
func (s *Store) mutate(ctx context.Context, fn func(Preferences) (Preferences, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.prefs.Clone())
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}

	data, err := encode(next)
	if err != nil {
		return err
	}
	if err := s.storage.Save(ctx, data); err != nil {
		s.logger.Error("failed to persist preferences", zap.Error(err))
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	s.prefs = next
	return nil
}

// convertRadius re-expresses r from one unit system in the other.
func convertRadius(r float64, fromMetric, toMetric bool) float64 {
	if fromMetric == toMetric {
		return r
	}
	return coordinates.ConvertDistance(coordinates.RadiusToMiles(r, fromMetric), toMetric)
}
