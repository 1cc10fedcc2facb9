package planar

import (
	"strings"

	"github.com/jobrunner/atlas/internal/adapters/layerparams"
	"github.com/jobrunner/atlas/internal/domain"
)

// sourceOptions translates a layer spec into engine source options.
func sourceOptions(spec domain.LayerSpec) (SourceOptions, error) {
	opts := SourceOptions{
		URL:        spec.URL,
		Projection: Projection,
	}

	switch spec.NormalizedType() {
	case domain.LayerOSM:
		opts.Kind = SourceOSM
		opts.URL = subdomains(spec.URL)

	case domain.LayerXYZ, domain.LayerUT:
		opts.Kind = SourceXYZ
		opts.URL = subdomains(spec.URL)

	case domain.LayerWMS:
		opts.Kind = SourceTileWMS
		opts.Params = make(map[string]string, len(spec.Params)+1)
		for k, v := range spec.Params {
			opts.Params[strings.ToUpper(k)] = v
		}
		if spec.Layers != "" {
			opts.Params["LAYERS"] = spec.Layers
		}

	case domain.LayerWMT:
		opts.Kind = SourceWMTS
		opts.Layer = spec.Layers
		opts.MatrixSet = spec.MatrixSet
		opts.Params = layerparams.Copy(spec.Params)

	case domain.LayerAGM:
		opts.Kind = SourceTileArcGISRest
		opts.Params = layerparams.Copy(spec.Params)

	case domain.LayerBM:
		opts.Kind = SourceBingMaps
		opts.Key, _ = spec.Param("key")
		opts.ImagerySet = layerparams.ImagerySet(spec)

	case domain.LayerSI:
		opts.Kind = SourceImageStatic
		extent, err := layerparams.Extent(spec)
		if err != nil {
			return SourceOptions{}, err
		}
		opts.ImageExtent = ProjectExtent(extent)

	default:
		return SourceOptions{}, &domain.ConfigurationError{
			Engine:  domain.EnginePlanar,
			Field:   "type",
			Value:   spec.Type,
			Message: "unknown layer type",
		}
	}

	return opts, nil
}

// subdomains rewrites the {s} placeholder into the engine's {a-c} range syntax.
func subdomains(u string) string {
	return strings.ReplaceAll(u, "{s}", "{a-c}")
}
