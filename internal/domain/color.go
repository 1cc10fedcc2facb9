package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGBA color with 8-bit channels.
type Color struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// Predefined colors used by the styling rules.
var (
	Black = Color{R: 0, G: 0, B: 0, A: 255}
	White = Color{R: 255, G: 255, B: 255, A: 255}
)

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa" (the leading '#' is optional).
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return Color{}, &ValidationError{
			Field:      "color",
			Value:      s,
			Constraint: "#rgb, #rrggbb or #rrggbbaa",
			Message:    "unexpected color length",
		}
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, &ValidationError{
			Field:      "color",
			Value:      s,
			Constraint: "hexadecimal digits",
			Message:    "invalid color",
		}
	}

	return Color{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// MustParseColor is like ParseColor but panics on malformed input.
// Intended for package-level defaults.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// WithAlpha returns the color with its alpha channel scaled to a in [0,1].
func (c Color) WithAlpha(a float64) Color {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	c.A = uint8(a*255 + 0.5)
	return c
}

// Hex returns the color as "#rrggbbaa".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return c.Hex()
}

// MarshalText encodes the color as hex.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText decodes a hex color.
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
