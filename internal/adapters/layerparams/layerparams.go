// Package layerparams holds layer parameter parsing shared by the engine adapters.
package layerparams

import (
	"strconv"
	"strings"

	"github.com/jobrunner/atlas/internal/domain"
)

// DefaultImagerySet is used for Bing layers that name none.
const DefaultImagerySet = "Aerial"

// Copy returns a copy of params, or nil when empty.
func Copy(params map[string]string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// ImagerySet returns the Bing imagery set named by the layer parameters.
func ImagerySet(spec domain.LayerSpec) string {
	if v, ok := spec.Param("imagerySet"); ok && v != "" {
		return v
	}
	if spec.Layers != "" {
		return spec.Layers
	}
	return DefaultImagerySet
}

// Extent parses the "extent" param of a static image layer as
// "minLon,minLat,maxLon,maxLat" in WGS84 degrees. The box must have a non-zero area.
func Extent(spec domain.LayerSpec) (domain.Extent, error) {
	raw, ok := spec.Param("extent")
	if !ok {
		return domain.Extent{}, &domain.ConfigurationError{
			Field:   "params.extent",
			Message: "static image layers need an extent",
		}
	}
	invalid := func(msg string) error {
		return &domain.ConfigurationError{Field: "params.extent", Value: raw, Message: msg}
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return domain.Extent{}, invalid("extent must be minLon,minLat,maxLon,maxLat")
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Extent{}, invalid("extent values must be numbers")
		}
		v[i] = f
	}

	for i := 0; i < 4; i += 2 {
		if err := domain.NewCoordinate(v[i], v[i+1]).Validate(); err != nil {
			return domain.Extent{}, invalid(err.Error())
		}
	}

	e := domain.Extent{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if !e.IsValid() || e.Width() == 0 || e.Height() == 0 {
		return domain.Extent{}, invalid("extent must have min below max on both axes")
	}
	return e, nil
}
