package refdata

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single reference fetch.
const DefaultTimeout = 10 * time.Second

// maxResourceSize caps how much of a resource is read (16 MiB).
const maxResourceSize = 16 << 20

// Loader fetches reference resources from HTTP URLs or local files.
type Loader struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewLoader creates a Loader. A nil logger discards output.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: logger,
	}
}

// Load fetches and parses a resource. It never fails: any fetch error,
// missing resource, or empty body is logged and an empty table returned.
func (l *Loader) Load(ctx context.Context, source, keyField, nameField string) *Table {
	text, err := l.fetch(ctx, source)
	if err != nil {
		l.logger.Warn("reference data unavailable, using empty table",
			zap.String("source", source),
			zap.Error(err),
		)
		return EmptyTable()
	}

	table := Parse(text, keyField, nameField)
	l.logger.Info("reference data loaded",
		zap.String("source", source),
		zap.String("key", keyField),
		zap.Int("records", table.Len()),
	)
	return table
}

// fetch returns the body of source, which is either an http(s) URL or a path.
func (l *Loader) fetch(ctx context.Context, source string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("no source configured")
	}

	var body []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		b, err := l.fetchHTTP(ctx, source)
		if err != nil {
			return "", err
		}
		body = b
	} else {
		b, err := os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("failed to read reference file: %w", err)
		}
		body = b
	}

	if strings.TrimSpace(string(body)) == "" {
		return "", fmt.Errorf("empty reference resource")
	}
	return string(body), nil
}

func (l *Loader) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reference data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("reference server returned status %d", resp.StatusCode)
	}

	// Single-page web servers answer unknown paths with index.html and a 200.
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil && mediaType == "text/html" {
			return nil, fmt.Errorf("unexpected content type %q, resource is likely missing", mediaType)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read reference body: %w", err)
	}
	return body, nil
}

// Sources names where each reference table is loaded from.
type Sources struct {
	AircraftModels string
	Airlines       string
}

// Provider is the read-only lookup service handed to the feed normalizer.
type Provider struct {
	models   *Table
	airlines *Table
}

// NewProvider wraps two already-loaded tables. Nil tables are treated as empty.
func NewProvider(models, airlines *Table) *Provider {
	if models == nil {
		models = EmptyTable()
	}
	if airlines == nil {
		airlines = EmptyTable()
	}
	return &Provider{models: models, airlines: airlines}
}

// AircraftModel looks up an aircraft type code (e.g. "A320").
func (p *Provider) AircraftModel(code string) (Record, bool) {
	return p.models.Lookup(code)
}

// Airline looks up an airline by ICAO designator (e.g. "BAW").
func (p *Provider) Airline(icao string) (Record, bool) {
	return p.airlines.Lookup(icao)
}

// Models returns the aircraft-model table.
func (p *Provider) Models() *Table { return p.models }

// Airlines returns the airline table.
func (p *Provider) Airlines() *Table { return p.airlines }

// LoadProvider loads both tables concurrently. Each load fails soft on its
// own, so a missing airline file never holds up the model table or vice versa.
func LoadProvider(ctx context.Context, loader *Loader, src Sources) *Provider {
	var models, airlines *Table

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		models = loader.Load(gctx, src.AircraftModels, ModelKeyField, ModelNameField)
		return nil
	})
	g.Go(func() error {
		airlines = loader.Load(gctx, src.Airlines, AirlineKeyField, AirlineNameField)
		return nil
	})
	_ = g.Wait() // loaders never return errors

	return NewProvider(models, airlines)
}
