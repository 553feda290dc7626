package leaflet

import (
	"errors"

	"github.com/paulmach/orb"
)

// ErrEmptyBounds is returned by Bounds.Box when no coordinate was collected.
var ErrEmptyBounds = errors.New("leaflet: no coordinates to fit")

// Box is a lat/lng bounding box as Leaflet's fitBounds expects it.
type Box struct {
	SouthWest LatLng `json:"southWest"`
	NorthEast LatLng `json:"northEast"`
}

// Bound returns the box as an orb.Bound.
func (b Box) Bound() orb.Bound {
	return orb.Bound{Min: b.SouthWest.Point(), Max: b.NorthEast.Point()}
}

// Bounds accumulates every coordinate seen while normalizing, in order.
// The zero value is ready to use.
type Bounds struct {
	points []LatLng
}

// NewBounds returns an empty accumulator.
func NewBounds() *Bounds {
	return &Bounds{}
}

// Push appends coordinates.
func (b *Bounds) Push(lls ...LatLng) {
	b.points = append(b.points, lls...)
}

// pushPoints appends orb points, which store lon first.
func (b *Bounds) pushPoints(ps ...orb.Point) {
	for _, p := range ps {
		b.points = append(b.points, FromPoint(p))
	}
}

// Len returns the number of collected coordinates.
func (b *Bounds) Len() int {
	if b == nil {
		return 0
	}
	return len(b.points)
}

// Points returns a copy of the collected coordinates in traversal order.
func (b *Bounds) Points() []LatLng {
	if b == nil {
		return nil
	}
	return append([]LatLng(nil), b.points...)
}

// Box returns the smallest box containing every collected coordinate.
func (b *Bounds) Box() (Box, error) {
	if b.Len() == 0 {
		return Box{}, ErrEmptyBounds
	}
	mp := make(orb.MultiPoint, len(b.points))
	for i, ll := range b.points {
		mp[i] = ll.Point()
	}
	bound := mp.Bound()
	return Box{SouthWest: FromPoint(bound.Min), NorthEast: FromPoint(bound.Max)}, nil
}
