package domain

// LayerState is the runtime view of a configured imagery layer.
type LayerState struct {
	ID     string      `json:"id" yaml:"id"`
	Type   string      `json:"type" yaml:"type"`
	Order  int         `json:"order" yaml:"order"`
	Alpha  float64     `json:"alpha" yaml:"alpha"`
	Show   bool        `json:"show" yaml:"show"`
	Handle LayerHandle `json:"handle" yaml:"handle"`
}

// RenderedResult describes an individually rendered result.
type RenderedResult struct {
	ID       string `json:"id" yaml:"id"`
	Points   int    `json:"points" yaml:"points"`
	Lines    int    `json:"lines" yaml:"lines"`
	Selected bool   `json:"selected" yaml:"selected"`
	Color    string `json:"color" yaml:"color"`
	Visible  bool   `json:"visible" yaml:"visible"`
}

// ClusterView describes a rendered cluster.
type ClusterView struct {
	Members     []string     `json:"members" yaml:"members"`
	Centroid    Coordinate   `json:"centroid" yaml:"centroid"`
	Hull        []Coordinate `json:"hull" yaml:"hull"`
	State       string       `json:"state" yaml:"state"`
	HullVisible bool         `json:"hullVisible" yaml:"hull_visible"`
}

// Scene is a point-in-time snapshot of what the map shows.
type Scene struct {
	Engine      EngineKind       `json:"engine" yaml:"engine"`
	Ready       bool             `json:"ready" yaml:"ready"`
	Clustering  bool             `json:"clustering" yaml:"clustering"`
	Threshold   float64          `json:"thresholdMeters" yaml:"threshold_meters"`
	Layers      []LayerState     `json:"layers" yaml:"layers"`
	Results     []RenderedResult `json:"results" yaml:"results"`
	Clusters    []ClusterView    `json:"clusters" yaml:"clusters"`
	Selected    []string         `json:"selected" yaml:"selected"`
	Active      int              `json:"active" yaml:"active"`
	Primitives  int              `json:"primitives" yaml:"primitives"`
	Unclustered int              `json:"unclustered" yaml:"unclustered"`
}
