package globe

import (
	"strings"

	"github.com/jobrunner/atlas/internal/adapters/layerparams"
	"github.com/jobrunner/atlas/internal/domain"
)

// defaultSubdomains is the subdomain list for OpenStreetMap style templates.
const defaultSubdomains = "abc"

func providerOptions(spec domain.LayerSpec) (ProviderOptions, error) {
	opts := ProviderOptions{URL: spec.URL}

	switch spec.NormalizedType() {
	case domain.LayerOSM:
		opts.Kind = ProviderOpenStreetMap
		opts.URL = templateURL(spec.URL)
		opts.Subdomains = defaultSubdomains

	case domain.LayerUT, domain.LayerXYZ:
		opts.Kind = ProviderURLTemplate
		opts.URL = templateURL(spec.URL)
		if strings.Contains(spec.URL, "{s}") {
			opts.Subdomains = defaultSubdomains
		}

	case domain.LayerWMS:
		opts.Kind = ProviderWebMapService
		opts.Layers = spec.Layers
		opts.Parameters = layerparams.Copy(spec.Params)

	case domain.LayerWMT:
		opts.Kind = ProviderWebMapTileService
		opts.Layer = spec.Layers
		opts.TileMatrixSetID = spec.MatrixSet
		opts.Style, _ = spec.Param("style")
		if opts.Style == "" {
			opts.Style = "default"
		}

	case domain.LayerAGM:
		opts.Kind = ProviderArcGisMapServer
		opts.Layers = spec.Layers

	case domain.LayerBM:
		opts.Kind = ProviderBingMaps
		opts.Key, _ = spec.Param("key")
		opts.MapStyle = layerparams.ImagerySet(spec)
		if opts.URL == "" {
			opts.URL = "https://dev.virtualearth.net"
		}

	case domain.LayerSI:
		opts.Kind = ProviderSingleTile
		extent, err := layerparams.Extent(spec)
		if err != nil {
			return ProviderOptions{}, err
		}
		opts.Rectangle = RectangleFromDegrees(extent)

	case domain.LayerTMS:
		opts.Kind = ProviderTileMapService

	default:
		return ProviderOptions{}, &domain.ConfigurationError{
			Engine:  domain.EngineGlobe,
			Field:   "type",
			Value:   spec.Type,
			Message: "unknown layer type",
		}
	}

	return opts, nil
}

// templateURL rewrites placeholders into the engine's template syntax.
func templateURL(u string) string {
	return strings.ReplaceAll(u, "{-y}", "{reverseY}")
}
