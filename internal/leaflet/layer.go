package leaflet

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/iancoleman/orderedmap"
	"github.com/paulmach/orb/maptile"
	"gopkg.in/yaml.v3"
)

// LayerKind selects how tile coordinates are substituted.
type LayerKind string

const (
	LayerTile LayerKind = "tile"
	// LayerTileStream is a TMS-style server whose tile origin is bottom left.
	LayerTileStream LayerKind = "tilestream"
)

// LayerDescriptor configures one base layer.
type LayerDescriptor struct {
	URLTemplate string    `json:"urlTemplate" yaml:"urlTemplate" doc:"Tile URL with {s}, {z}, {x}, {y} placeholders"`
	Options     Options   `json:"options,omitempty" yaml:"options,omitempty" doc:"Leaflet tile layer options"`
	Active      bool      `json:"active,omitempty" yaml:"active,omitempty" doc:"Initial layer under the explicit_flag policy"`
	Type        LayerKind `json:"type,omitempty" yaml:"type,omitempty" enum:"tile,tilestream" doc:"Tile addressing scheme"`
}

// LayerSet maps layer keys to descriptors and remembers insertion order,
// which decides the default active layer.
type LayerSet struct {
	keys []string
	m    map[string]LayerDescriptor
}

// Set adds or replaces a layer. Replacing keeps the original position.
func (s *LayerSet) Set(key string, d LayerDescriptor) {
	if s.m == nil {
		s.m = make(map[string]LayerDescriptor)
	}
	if _, ok := s.m[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.m[key] = d
}

// Get returns the descriptor stored under key.
func (s LayerSet) Get(key string) (LayerDescriptor, bool) {
	d, ok := s.m[key]
	return d, ok
}

// Keys returns layer keys in insertion order.
func (s LayerSet) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s LayerSet) Len() int { return len(s.keys) }

// MarshalJSON writes layers as an object in insertion order.
func (s LayerSet) MarshalJSON() ([]byte, error) {
	om := orderedmap.New()
	for _, k := range s.keys {
		om.Set(k, s.m[k])
	}
	return json.Marshal(om)
}

// UnmarshalJSON reads an object and keeps its key order.
func (s *LayerSet) UnmarshalJSON(data []byte) error {
	om := orderedmap.New()
	if err := json.Unmarshal(data, &om); err != nil {
		return fmt.Errorf("decoding layers: %w", err)
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decoding layers: %w", err)
	}

	*s = LayerSet{}
	for _, k := range om.Keys() {
		var d LayerDescriptor
		if err := json.Unmarshal(values[k], &d); err != nil {
			return fmt.Errorf("layer %q: %w", k, err)
		}
		s.Set(k, d)
	}
	return nil
}

// UnmarshalYAML reads a mapping node and keeps its key order.
func (s *LayerSet) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("layers: expected a mapping, got %s", node.ShortTag())
	}
	*s = LayerSet{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var d LayerDescriptor
		if err := node.Content[i+1].Decode(&d); err != nil {
			return fmt.Errorf("layer %q: %w", key, err)
		}
		s.Set(key, d)
	}
	return nil
}

// MarshalYAML writes layers as an ordered mapping.
func (s LayerSet) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range s.keys {
		var v yaml.Node
		if err := v.Encode(s.m[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &v)
	}
	return node, nil
}

// Schema describes the set as an object of LayerDescriptor values.
func (LayerSet) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:                 huma.TypeObject,
		Description:          "Base layers keyed by name. Key order decides the default layer.",
		AdditionalProperties: r.Schema(reflect.TypeOf(LayerDescriptor{}), true, "LayerDescriptor"),
	}
}

var _ huma.SchemaProvider = LayerSet{}

// ActivePolicy picks the layer shown before the user touches the switcher.
type ActivePolicy string

const (
	// FirstWins always activates the first layer.
	FirstWins ActivePolicy = "first_wins"
	// ExplicitFlag activates the first flagged layer, else the first layer.
	ExplicitFlag ActivePolicy = "explicit_flag"
)

// RenderableLayer is a materialized tile layer.
type RenderableLayer struct {
	Key         string    `json:"key"`
	URLTemplate string    `json:"urlTemplate"`
	Kind        LayerKind `json:"type,omitempty"`
	Options     Options   `json:"options"`
	Active      bool      `json:"active"`
}

// Materialize builds one layer per descriptor, in order, and returns the
// index of the single active layer, or -1 for an empty set.
func Materialize(layers LayerSet, policy ActivePolicy) ([]RenderableLayer, int) {
	out := make([]RenderableLayer, 0, layers.Len())
	for _, k := range layers.keys {
		d := layers.m[k]
		out = append(out, RenderableLayer{
			Key:         k,
			URLTemplate: d.URLTemplate,
			Kind:        d.Type,
			Options:     Options{"subdomains": "abc"}.Merge(d.Options),
		})
	}
	if len(out) == 0 {
		return out, -1
	}

	active := 0
	if policy == ExplicitFlag {
		for i, k := range layers.keys {
			if layers.m[k].Active {
				active = i
				break
			}
		}
	}
	out[active].Active = true
	return out, active
}

// TileURL substitutes the placeholders for one tile.
func (l RenderableLayer) TileURL(t maptile.Tile) string {
	y := t.Y
	if l.Kind == LayerTileStream {
		y = InvertY(t.Z, t.Y)
	}
	r := strings.NewReplacer(
		"{s}", l.subdomain(t.X, t.Y),
		"{z}", strconv.FormatUint(uint64(t.Z), 10),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(y), 10),
	)
	return r.Replace(l.URLTemplate)
}

// subdomain picks (x + y) mod n from the configured subdomains, using the
// requested row before any inversion.
func (l RenderableLayer) subdomain(x, y uint32) string {
	subs := l.Options.Strings("subdomains")
	if len(subs) == 0 {
		return ""
	}
	return subs[(uint64(x)+uint64(y))%uint64(len(subs))]
}

// InvertY flips a tile row between XYZ and TMS addressing: 2^z - y - 1.
// Zooms above 32 are treated as 32, and a row past the bottom of the grid
// maps to row 0.
func InvertY(z maptile.Zoom, y uint32) uint32 {
	if z > 32 {
		z = 32
	}
	n := uint64(1) << uint64(z)
	if uint64(y) >= n {
		return 0
	}
	return uint32(n - uint64(y) - 1)
}
