package domain

import "strings"

// EngineKind identifies one of the supported rendering engines.
type EngineKind string

// Supported engines.
const (
	EnginePlanar EngineKind = "planar"
	EngineGlobe  EngineKind = "globe"
)

// Layer type codes as they appear in layer configuration.
const (
	LayerOSM = "OSM" // OpenStreetMap tiles
	LayerXYZ = "XYZ" // Generic XYZ tile template (planar)
	LayerUT  = "UT"  // URL template (globe)
	LayerWMS = "WMS" // Web Map Service
	LayerWMT = "WMT" // Web Map Tile Service
	LayerAGM = "AGM" // ArcGIS MapServer
	LayerBM  = "BM"  // Bing Maps
	LayerSI  = "SI"  // Single static image
	LayerTMS = "TMS" // Tile Map Service (globe)
)

// LayerHandle identifies an imagery layer created by a map provider. Zero is invalid.
type LayerHandle uint64

// LayerSpec describes one configured imagery layer.
type LayerSpec struct {
	ID        string            `mapstructure:"id" json:"id" yaml:"id"`
	Type      string            `mapstructure:"type" json:"type" yaml:"type"`
	URL       string            `mapstructure:"url" json:"url,omitempty" yaml:"url,omitempty"`
	Layers    string            `mapstructure:"layers" json:"layers,omitempty" yaml:"layers,omitempty"`
	Params    map[string]string `mapstructure:"params" json:"params,omitempty" yaml:"params,omitempty"`
	MatrixSet string            `mapstructure:"matrix_set" json:"matrixSet,omitempty" yaml:"matrix_set,omitempty"`
	Show      bool              `mapstructure:"show" json:"show" yaml:"show"`
	Alpha     float64           `mapstructure:"alpha" json:"alpha" yaml:"alpha"`
	Order     *int              `mapstructure:"order" json:"order,omitempty" yaml:"order,omitempty"`
}

// OrderAt returns an explicit stacking position for LayerSpec.Order.
func OrderAt(n int) *int {
	return &n
}

// StackOrder returns the configured stacking position, zero when unset.
func (s LayerSpec) StackOrder() int {
	if s.Order == nil {
		return 0
	}
	return *s.Order
}

// NormalizedType returns the upper-cased layer type code.
func (s LayerSpec) NormalizedType() string {
	return strings.ToUpper(strings.TrimSpace(s.Type))
}

// Param returns a type-specific parameter, matched case-insensitively.
func (s LayerSpec) Param(name string) (string, bool) {
	for k, v := range s.Params {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Validate checks the engine-independent constraints of the layer.
func (s LayerSpec) Validate() error {
	if s.NormalizedType() == "" {
		return &ValidationError{
			Field:      "type",
			Value:      s.Type,
			Constraint: "non-empty",
			Message:    "layer type is required",
		}
	}
	if s.Alpha < 0 || s.Alpha > 1 {
		return &ValidationError{
			Field:      "alpha",
			Value:      s.Alpha,
			Constraint: "[0, 1]",
			Message:    "alpha must be between 0 and 1",
		}
	}
	if s.Order != nil && *s.Order < 0 {
		return &ValidationError{
			Field:      "order",
			Value:      *s.Order,
			Constraint: ">= 0",
			Message:    "order must not be negative",
		}
	}
	return nil
}

// Layer is the runtime state of a created imagery layer.
type Layer struct {
	Spec   LayerSpec
	Handle LayerHandle
}
