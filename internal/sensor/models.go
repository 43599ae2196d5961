package sensor

import (
	"encoding/json"
	"time"
)

// DHT11 is the raw block reported by the sensor firmware.
type DHT11 struct {
	Temp float64 `json:"temp"`
	Humi float64 `json:"humi"`
}

// Reading is a single temperature/humidity sample.
// The wire shape mirrors the sensor payload, which repeats the same values
// under several keys; Temperature and Humidity are the authoritative fields.
type Reading struct {
	Temp        float64 `json:"temp"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	DHT11       DHT11   `json:"dht11"`
}

// NewReading builds a Reading with every redundant field filled in.
func NewReading(temperature, humidity float64) Reading {
	return Reading{
		Temp:        temperature,
		Temperature: temperature,
		Humidity:    humidity,
		DHT11: DHT11{
			Temp: temperature,
			Humi: humidity,
		},
	}
}

// Record is a Reading stamped with the server time it was accepted at.
// Date is always UTC with second precision.
type Record struct {
	Value Reading   `json:"value"`
	Date  time.Time `json:"date"`
}

// NewRecord stamps r with t, truncated to whole seconds.
func NewRecord(r Reading, t time.Time) Record {
	return Record{
		Value: r,
		Date:  t.UTC().Truncate(time.Second),
	}
}

type recordJSON struct {
	Value Reading `json:"value"`
	Date  int64   `json:"date"`
}

// MarshalJSON encodes Date as Unix seconds.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{Value: r.Value, Date: r.Date.Unix()})
}

// UnmarshalJSON decodes Date from Unix seconds.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Value = raw.Value
	r.Date = time.Unix(raw.Date, 0).UTC()
	return nil
}

// Entry is the display projection of a Record served over HTTP.
type Entry struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Timestamp   int64   `json:"timestamp"`
	Date        string  `json:"date"`
}

// Entry projects r for display, rendering the date in loc.
func (r Record) Entry(loc *time.Location) Entry {
	if loc == nil {
		loc = time.UTC
	}
	return Entry{
		Temperature: r.Value.Temperature,
		Humidity:    r.Value.Humidity,
		Timestamp:   r.Date.Unix(),
		Date:        r.Date.In(loc).Format(time.RFC1123Z),
	}
}

// Order selects the sort direction of a listing.
type Order int

const (
	Ascending Order = iota
	Descending
)
