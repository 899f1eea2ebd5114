package eta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/example/ride-dispatch/internal/models"
)

var ErrSegmentNotFound = errors.New("route segment not found")

// Segment is one known travel time between two named places.
type Segment struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Seconds float64 `json:"seconds"`
}

// LookupTable answers travel times from a fixed set of address pairs.
// Pairs are symmetric. It stands in for a routing provider when only a
// handful of places matter; unknown pairs are an error, never a guess.
type LookupTable struct {
	times map[[2]string]float64
}

func NewLookupTable(segments ...Segment) *LookupTable {
	t := &LookupTable{times: make(map[[2]string]float64, len(segments))}
	for _, s := range segments {
		t.Add(s)
	}
	return t
}

func (t *LookupTable) Add(s Segment) {
	t.times[[2]string{s.From, s.To}] = s.Seconds
	t.times[[2]string{s.To, s.From}] = s.Seconds
}

func (t *LookupTable) Between(from, to string) (float64, error) {
	if from == to {
		return 0, nil
	}
	if v, ok := t.times[[2]string{from, to}]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%s -> %s: %w", from, to, ErrSegmentNotFound)
}

func (t *LookupTable) EstimateSeconds(_ context.Context, from, to models.Stop) (float64, error) {
	return t.Between(from.Address, to.Address)
}

// ReadTable decodes a JSON array of segments.
func ReadTable(r io.Reader) (*LookupTable, error) {
	var segs []Segment
	if err := json.NewDecoder(r).Decode(&segs); err != nil {
		return nil, fmt.Errorf("decode eta table: %w", err)
	}
	return NewLookupTable(segs...), nil
}

func LoadTable(path string) (*LookupTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTable(f)
}

// DriverOrigin is the address the campus table uses for a driver's position.
const DriverOrigin = "Driver"

// DefaultTable is the campus table used by the market playground.
func DefaultTable() *LookupTable {
	const minute = 60
	return NewLookupTable(
		Segment{"CSP", "Benet Hall", 5 * minute},
		Segment{"CSP", "Douthit Hills Hub", 4 * minute},
		Segment{"CSP", "1108 Tiger Blvd", 5 * minute},
		Segment{DriverOrigin, "CSP", 3 * minute},
		Segment{DriverOrigin, "1108 Tiger Blvd", 2 * minute},
		Segment{DriverOrigin, "Benet Hall", 10 * minute},
		Segment{DriverOrigin, "Douthit Hills Hub", 8 * minute},
		Segment{"Benet Hall", "Douthit Hills Hub", 8 * minute},
	)
}
