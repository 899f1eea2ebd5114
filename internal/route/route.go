package route

import (
	"context"
	"errors"
	"fmt"
	"math"

	"googlemaps.github.io/maps"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
)

var ErrDecode = errors.New("malformed polyline")

// Provider returns the ordered points a driver follows from one location to
// another. An empty path means the provider knows no route.
type Provider interface {
	Path(ctx context.Context, from, to models.LatLng) ([]models.LatLng, error)
}

// Decode expands an encoded polyline (1e5 precision) into coordinates.
func Decode(encoded string) ([]models.LatLng, error) {
	if err := validate(encoded); err != nil {
		return nil, err
	}
	pts, err := maps.DecodePolyline(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	out := make([]models.LatLng, len(pts))
	for i, p := range pts {
		out[i] = models.LatLng{Lat: p.Lat, Lng: p.Lng}
	}
	return out, nil
}

// validate rejects characters outside the polyline alphabet, input that
// ends in the middle of a value and a latitude without its longitude.
func validate(encoded string) error {
	values := 0
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		if c < 63 || c > 126 {
			return fmt.Errorf("%w: byte %q at %d", ErrDecode, c, i)
		}
		if (c-63)&0x20 == 0 {
			values++
		}
	}
	if n := len(encoded); n > 0 && (encoded[n-1]-63)&0x20 != 0 {
		return fmt.Errorf("%w: truncated", ErrDecode)
	}
	if values%2 != 0 {
		return fmt.Errorf("%w: %d coordinate values, want pairs", ErrDecode, values)
	}
	return nil
}

func Encode(path []models.LatLng) string {
	pts := make([]maps.LatLng, len(path))
	for i, p := range path {
		pts[i] = maps.LatLng{Lat: p.Lat, Lng: p.Lng}
	}
	return maps.Encode(pts)
}

// LinearProvider walks a straight line, one point per StepMeters.
type LinearProvider struct {
	StepMeters float64
}

func (l LinearProvider) Path(_ context.Context, from, to models.LatLng) ([]models.LatLng, error) {
	step := l.StepMeters
	if step <= 0 {
		step = 25
	}
	n := int(math.Ceil(geo.HaversineKm(from, to) * 1000 / step))
	if n < 1 {
		return []models.LatLng{to}, nil
	}
	out := make([]models.LatLng, 0, n)
	for i := 1; i <= n; i++ {
		f := float64(i) / float64(n)
		out = append(out, models.LatLng{
			Lat: from.Lat + (to.Lat-from.Lat)*f,
			Lng: from.Lng + (to.Lng-from.Lng)*f,
		})
	}
	return out, nil
}
