package leaflet

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func orbLine() orb.LineString {
	return orb.LineString{{0, 0}, {1, 1}}
}

func TestBoundsBox(t *testing.T) {
	b := NewBounds()
	b.Push(LatLng{Lat: 1, Lon: 2}, LatLng{Lat: -1, Lon: -2})

	box, err := b.Box()
	if err != nil {
		t.Fatal(err)
	}
	want := Box{SouthWest: LatLng{Lat: -1, Lon: -2}, NorthEast: LatLng{Lat: 1, Lon: 2}}
	if box != want {
		t.Fatalf("box = %+v, want %+v", box, want)
	}
	if !box.Bound().Contains(orb.Point{0, 0}) {
		t.Error("orb bound does not contain the origin")
	}
}

func TestBoundsEmpty(t *testing.T) {
	var b *Bounds
	if b.Len() != 0 {
		t.Fatal("nil bounds not empty")
	}
	if _, err := NewBounds().Box(); !errors.Is(err, ErrEmptyBounds) {
		t.Fatalf("err = %v, want ErrEmptyBounds", err)
	}
}

func TestBoundsSinglePoint(t *testing.T) {
	b := NewBounds()
	b.Push(LatLng{Lat: 43.26, Lon: -2.93})

	box, err := b.Box()
	if err != nil {
		t.Fatal(err)
	}
	if box.SouthWest != box.NorthEast {
		t.Fatalf("box = %+v, want a degenerate box", box)
	}
}
