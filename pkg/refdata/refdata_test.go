package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

const modelsCSV = `ICAO,IATA,model
A320,320,Airbus A320
B738,738,Boeing 737-800

,,Missing key
E190,E90,Embraer 190
`

const airlinesCSV = "airlinename,IATA,icao\r\nBritish Airways,BA,BAW\r\nEasyJet,U2,EZY\r\nNo Code,,\r\n"

// TestParse tests header-driven positional parsing.
func TestParse(t *testing.T) {
	t.Run("Byte order mark on the header", func(t *testing.T) {
		table := Parse("\ufeffICAO,IATA,model\r\nA320,320,Airbus A320\r\n", ModelKeyField, ModelNameField)

		rec, ok := table.Lookup("A320")
		if !ok {
			t.Fatalf("Expected A320 to be present, got %d records", table.Len())
		}
		if rec.Name != "Airbus A320" {
			t.Errorf("Expected name Airbus A320, got %q", rec.Name)
		}
	})

	t.Run("Models keyed by ICAO", func(t *testing.T) {
		table := Parse(modelsCSV, ModelKeyField, ModelNameField)

		if table.Len() != 3 {
			t.Fatalf("Expected 3 records, got %d", table.Len())
		}

		rec, ok := table.Lookup("A320")
		if !ok {
			t.Fatal("Expected A320 to be present")
		}
		if rec.Name != "Airbus A320" {
			t.Errorf("Expected name Airbus A320, got %q", rec.Name)
		}
		if rec.IATA != "320" {
			t.Errorf("Expected IATA 320, got %q", rec.IATA)
		}
		if rec.Fields["model"] != "Airbus A320" {
			t.Errorf("Expected raw field to be kept, got %q", rec.Fields["model"])
		}
	})

	t.Run("Airlines keyed by lowercase icao with CRLF", func(t *testing.T) {
		table := Parse(airlinesCSV, AirlineKeyField, AirlineNameField)

		if table.Len() != 2 {
			t.Fatalf("Expected 2 records, got %d", table.Len())
		}
		rec, ok := table.Lookup("BAW")
		if !ok || rec.Name != "British Airways" {
			t.Errorf("Expected British Airways, got %+v (found=%v)", rec, ok)
		}
	})

	t.Run("Lookup is case-sensitive", func(t *testing.T) {
		table := Parse(airlinesCSV, AirlineKeyField, AirlineNameField)
		if _, ok := table.Lookup("baw"); ok {
			t.Error("Expected lowercase lookup to miss")
		}
	})

	t.Run("Wrong key casing yields empty table", func(t *testing.T) {
		table := Parse(airlinesCSV, "ICAO", AirlineNameField)
		if table.Len() != 0 {
			t.Errorf("Expected 0 records, got %d", table.Len())
		}
	})

	t.Run("Short rows", func(t *testing.T) {
		table := Parse("ICAO,IATA,model\nC172\n", ModelKeyField, ModelNameField)
		rec, ok := table.Lookup("C172")
		if !ok {
			t.Fatal("Expected C172 to be present")
		}
		if rec.Name != "" {
			t.Errorf("Expected empty name, got %q", rec.Name)
		}
	})

	t.Run("Embedded commas split positionally", func(t *testing.T) {
		table := Parse("ICAO,model,IATA\nB744,\"Boeing 747-400, Combi\",744\n", ModelKeyField, ModelNameField)
		rec, _ := table.Lookup("B744")
		if rec.Name != `"Boeing 747-400` {
			t.Errorf("Expected naive split, got %q", rec.Name)
		}
	})

	t.Run("Empty text", func(t *testing.T) {
		if Parse("", ModelKeyField, ModelNameField).Len() != 0 {
			t.Error("Expected empty table")
		}
	})
}

// TestNilTable verifies lookups on nil and zero tables are safe.
func TestNilTable(t *testing.T) {
	var nilTable *Table
	if _, ok := nilTable.Lookup("A320"); ok {
		t.Error("Expected miss on nil table")
	}
	if nilTable.Len() != 0 {
		t.Error("Expected nil table length 0")
	}
	var zero Table
	if _, ok := zero.Lookup("A320"); ok {
		t.Error("Expected miss on zero table")
	}
}

// TestLoaderHTTP tests fetching resources over HTTP.
func TestLoaderHTTP(t *testing.T) {
	t.Run("Successful fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte(modelsCSV))
		}))
		defer server.Close()

		table := NewLoader(nil).Load(context.Background(), server.URL+"/aircraft-models.csv", ModelKeyField, ModelNameField)
		if table.Len() != 3 {
			t.Errorf("Expected 3 records, got %d", table.Len())
		}
	})

	t.Run("404 yields empty table", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		table := NewLoader(nil).Load(context.Background(), server.URL+"/missing.csv", ModelKeyField, ModelNameField)
		if table == nil {
			t.Fatal("Expected non-nil table")
		}
		if table.Len() != 0 {
			t.Errorf("Expected empty table, got %d records", table.Len())
		}
	})

	t.Run("HTML fallback page yields empty table", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<!DOCTYPE html><html><body>app</body></html>"))
		}))
		defer server.Close()

		table := NewLoader(nil).Load(context.Background(), server.URL+"/airlines.csv", AirlineKeyField, AirlineNameField)
		if table.Len() != 0 {
			t.Errorf("Expected empty table, got %d records", table.Len())
		}
	})

	t.Run("Empty body yields empty table", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/csv")
		}))
		defer server.Close()

		table := NewLoader(nil).Load(context.Background(), server.URL, AirlineKeyField, AirlineNameField)
		if table.Len() != 0 {
			t.Errorf("Expected empty table, got %d records", table.Len())
		}
	})

	t.Run("Unreachable server yields empty table", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		table := NewLoader(nil).Load(context.Background(), url, AirlineKeyField, AirlineNameField)
		if table.Len() != 0 {
			t.Errorf("Expected empty table, got %d records", table.Len())
		}
	})
}

// TestLoaderFile tests loading from the filesystem.
func TestLoaderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "airlines.csv")
	if err := os.WriteFile(path, []byte(airlinesCSV), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	loader := NewLoader(nil)

	table := loader.Load(context.Background(), path, AirlineKeyField, AirlineNameField)
	if table.Len() != 2 {
		t.Errorf("Expected 2 records, got %d", table.Len())
	}

	missing := loader.Load(context.Background(), filepath.Join(dir, "nope.csv"), AirlineKeyField, AirlineNameField)
	if missing.Len() != 0 {
		t.Errorf("Expected empty table for missing file, got %d", missing.Len())
	}

	none := loader.Load(context.Background(), "", AirlineKeyField, AirlineNameField)
	if none.Len() != 0 {
		t.Errorf("Expected empty table for empty source, got %d", none.Len())
	}
}

// TestLoadProvider tests concurrent loading with independent failure.
func TestLoadProvider(t *testing.T) {
	t.Run("One failure does not affect the other", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/airlines.csv":
				w.Header().Set("Content-Type", "text/csv")
				w.Write([]byte(airlinesCSV))
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))
		defer server.Close()

		p := LoadProvider(context.Background(), NewLoader(nil), Sources{
			AircraftModels: server.URL + "/aircraft-models.csv",
			Airlines:       server.URL + "/airlines.csv",
		})

		if p.Models().Len() != 0 {
			t.Errorf("Expected empty model table, got %d", p.Models().Len())
		}
		if rec, ok := p.Airline("BAW"); !ok || rec.Name != "British Airways" {
			t.Errorf("Expected British Airways, got %+v", rec)
		}
	})

	t.Run("Loads run concurrently", func(t *testing.T) {
		var inFlight, peak int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(100 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			w.Header().Set("Content-Type", "text/csv")
			if r.URL.Path == "/airlines.csv" {
				w.Write([]byte(airlinesCSV))
			} else {
				w.Write([]byte(modelsCSV))
			}
		}))
		defer server.Close()

		p := LoadProvider(context.Background(), NewLoader(nil), Sources{
			AircraftModels: server.URL + "/aircraft-models.csv",
			Airlines:       server.URL + "/airlines.csv",
		})

		if got := atomic.LoadInt32(&peak); got != 2 {
			t.Errorf("Expected both loads in flight together, peak was %d", got)
		}
		if _, ok := p.AircraftModel("B738"); !ok {
			t.Error("Expected B738 model")
		}
	})

	t.Run("Nil tables are empty", func(t *testing.T) {
		p := NewProvider(nil, nil)
		if _, ok := p.Airline("BAW"); ok {
			t.Error("Expected miss")
		}
	})
}
