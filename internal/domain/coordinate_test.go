package domain

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func TestCoordinateFromSlice(t *testing.T) {
	tests := []struct {
		name    string
		input   []float64
		want    Coordinate
		wantErr bool
	}{
		{
			name:  "lon lat",
			input: []float64{9.9, 52.5},
			want:  Coordinate{Lon: 9.9, Lat: 52.5},
		},
		{
			name:  "with altitude",
			input: []float64{9.9, 52.5, 120},
			want:  Coordinate{Lon: 9.9, Lat: 52.5, Alt: 120},
		},
		{
			name:    "single value",
			input:   []float64{9.9},
			wantErr: true,
		},
		{
			name:    "empty",
			input:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoordinateFromSlice(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CoordinateFromSlice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("CoordinateFromSlice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoordinateValidate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"origin", NewCoordinate(0, 0), false},
		{"max bounds", NewCoordinate(180, 90), false},
		{"min bounds", NewCoordinate(-180, -90), false},
		{"longitude too large", NewCoordinate(181, 0), true},
		{"longitude too small", NewCoordinate(-181, 0), true},
		{"latitude too large", NewCoordinate(0, 91), true},
		{"latitude too small", NewCoordinate(0, -91), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCoordinatePointRoundTrip(t *testing.T) {
	c := Coordinate{Lon: 13.4, Lat: 52.5, Alt: 34}
	p := c.Point()

	if p != (orb.Point{13.4, 52.5}) {
		t.Errorf("Point() = %v", p)
	}

	back := CoordinateFromPoint(p)
	if back.Lon != c.Lon || back.Lat != c.Lat || back.Alt != 0 {
		t.Errorf("CoordinateFromPoint() = %v", back)
	}
}

func TestCoordinateString(t *testing.T) {
	if got := NewCoordinate(1, 2).String(); got != "(1.000000 2.000000)" {
		t.Errorf("String() = %q", got)
	}
	if got := (Coordinate{Lon: 1, Lat: 2, Alt: 3}).String(); got != "(1.000000 2.000000 3.000000)" {
		t.Errorf("String() = %q", got)
	}
}

func TestExtent(t *testing.T) {
	tests := []struct {
		name   string
		e      Extent
		valid  bool
		width  float64
		height float64
	}{
		{"box", Extent{MinLon: 10, MinLat: 48, MaxLon: 12, MaxLat: 53}, true, 2, 5},
		{"degenerate", Extent{MinLon: 10, MinLat: 48, MaxLon: 10, MaxLat: 48}, true, 0, 0},
		{"swapped longitudes", Extent{MinLon: 12, MinLat: 48, MaxLon: 10, MaxLat: 53}, false, 2, 5},
		{"swapped latitudes", Extent{MinLon: 10, MinLat: 53, MaxLon: 12, MaxLat: 48}, false, 2, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
			if tt.e.Width() != tt.width || tt.e.Height() != tt.height {
				t.Errorf("Width/Height = %f/%f, want %f/%f", tt.e.Width(), tt.e.Height(), tt.width, tt.height)
			}
		})
	}
}

func TestExtentBound(t *testing.T) {
	b := Extent{MinLon: 10, MinLat: 48, MaxLon: 12, MaxLat: 53}.Bound()
	if b.Min != (orb.Point{10, 48}) || b.Max != (orb.Point{12, 53}) {
		t.Errorf("Bound() = %v", b)
	}
}
