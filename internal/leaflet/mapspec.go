package leaflet

// Settings are engine-level map options.
type Settings struct {
	Zoom               int     `json:"zoom,omitempty" yaml:"zoom,omitempty" doc:"Initial zoom used with an explicit center"`
	LayerControl       bool    `json:"layerControl,omitempty" yaml:"layerControl,omitempty" doc:"Show the layer switcher"`
	AttributionControl bool    `json:"attributionControl,omitempty" yaml:"attributionControl,omitempty" doc:"Show the attribution control"`
	Options            Options `json:"options,omitempty" yaml:"options,omitempty" doc:"Extra L.Map options"`
}

// Attribution is the attribution control content. Both parts are optional.
type Attribution struct {
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Text   string `json:"text,omitempty" yaml:"text,omitempty"`
}

// MapSpec is the map-level configuration of one rendered map.
type MapSpec struct {
	Label        string          `json:"label,omitempty" yaml:"label,omitempty"`
	Layers       LayerSet        `json:"layers" yaml:"layers"`
	Settings     Settings        `json:"settings,omitempty" yaml:"settings,omitempty"`
	Center       *LatLng         `json:"center,omitempty" yaml:"center,omitempty" doc:"Explicit center; otherwise the view fits all features"`
	Attribution  *Attribution    `json:"attribution,omitempty" yaml:"attribution,omitempty"`
	ActivePolicy ActivePolicy    `json:"activePolicy,omitempty" yaml:"activePolicy,omitempty" enum:"first_wins,explicit_flag" doc:"Default active layer policy (first_wins when empty)"`
	Icon         *IconDescriptor `json:"icon,omitempty" yaml:"icon,omitempty" doc:"Icon applied to every point"`
	Height       string          `json:"height,omitempty" yaml:"height,omitempty" doc:"CSS height of the map container" example:"400px"`
}

// DefaultHeight is the container height used when a spec sets none.
const DefaultHeight = "400px"

func (s *MapSpec) policy() ActivePolicy {
	if s.ActivePolicy == "" {
		return FirstWins
	}
	return s.ActivePolicy
}

func (s *MapSpec) height() string {
	if s.Height == "" {
		return DefaultHeight
	}
	return s.Height
}
