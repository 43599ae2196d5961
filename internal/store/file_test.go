package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/i474232898/dht-data/internal/sensor"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dht-data.json")
	fs := NewFileStore(path)

	rs := NewRingStore(DefaultCapacity, nil)
	for i := 0; i < 10; i++ {
		rs.Append(record(i))
	}
	saved := rs.Snapshot()

	if err := fs.Save(saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := fs.Load()
	if !reflect.DeepEqual(saved, loaded) {
		t.Fatalf("round trip mismatch:\nsaved  %+v\nloaded %+v", saved, loaded)
	}

	reloaded := NewRingStore(DefaultCapacity, loaded)
	if reloaded.Len() != 10 {
		t.Fatalf("expected reloaded len=10, got %d", reloaded.Len())
	}
	if !reflect.DeepEqual(saved, reloaded.Snapshot()) {
		t.Fatal("reloaded store differs from saved store")
	}
}

func TestFileStore_RoundTripSaturated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dht-data.json")
	fs := NewFileStore(path)

	rs := NewRingStore(DefaultCapacity, nil)
	for i := 0; i < 200; i++ {
		rs.Append(record(i))
	}
	if err := fs.Save(rs.Snapshot()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded := NewRingStore(DefaultCapacity, fs.Load())
	if !reflect.DeepEqual(rs.Snapshot(), reloaded.Snapshot()) {
		t.Fatal("reloaded store differs from saved store")
	}

	// Both stores evict the same record next.
	rs.Append(record(200))
	reloaded.Append(record(200))
	if !reflect.DeepEqual(rs.Snapshot(), reloaded.Snapshot()) {
		t.Fatal("reloaded store evicts in a different order")
	}
}

func TestFileStore_MissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	records := fs.Load()
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", records)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dht-data.json")
	if err := os.WriteFile(path, []byte(`[{"value": {"temperature": 2`), 0o644); err != nil {
		t.Fatal(err)
	}

	if records := NewFileStore(path).Load(); len(records) != 0 {
		t.Fatalf("expected empty history from corrupt file, got %d records", len(records))
	}
}

func TestFileStore_LegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dht-data.json")
	legacy := `[
  {
    "value": {
      "temp": 21.5,
      "temperature": 21.5,
      "humidity": 48.0,
      "dht11": {"temp": 21.0, "humi": 48.0}
    },
    "date": 1714564800
  }
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	records := NewFileStore(path).Load()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Value.Temperature != 21.5 || rec.Value.Humidity != 48 || rec.Value.DHT11.Temp != 21 {
		t.Fatalf("unexpected value %+v", rec.Value)
	}
	if rec.Date.Unix() != 1714564800 {
		t.Fatalf("unexpected date %v", rec.Date)
	}
}

func TestFileStore_SaveCreatesDirAndLeavesNoTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	path := filepath.Join(dir, "dht-data.json")
	fs := NewFileStore(path)

	for i := 0; i < 3; i++ {
		if err := fs.Save([]sensor.Record{record(i)}); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "dht-data.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only the history file, found %v", names)
	}
}

func TestFileStore_SaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dht-data.json")
	if err := NewFileStore(path).Save(nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", data)
	}
}
