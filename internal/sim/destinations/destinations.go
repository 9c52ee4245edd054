package destinations

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"waygate.ai/internal/sim/worldgraph"
)

// Destination is one named travel target. Pos and Price are optional: a
// missing Pos makes the record non-actionable until auto-discovery fills it
// in, and a missing Price falls back to the global default.
type Destination struct {
	Name    string
	Pos     *worldgraph.Vec3
	Price   *int64
	Enabled bool
	Visited bool
	// SceneID is the scene the destination lives in. Empty means the
	// current scene (in-scene teleport, no load).
	SceneID string
}

// Actionable reports whether the record can be travelled to at all.
func (d Destination) Actionable() bool { return d.Pos != nil }

// PriceOr resolves the effective price against the global default.
func (d Destination) PriceOr(def int64) int64 {
	if d.Price != nil {
		return *d.Price
	}
	return def
}

type seedFile struct {
	Destinations []seedRecord `json:"destinations"`
}

type seedRecord struct {
	Name    string      `json:"name"`
	Pos     *[3]float64 `json:"pos,omitempty"`
	Price   *int64      `json:"price,omitempty"`
	Enabled *bool       `json:"enabled,omitempty"`
	SceneID string      `json:"scene,omitempty"`
}

const seedSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["destinations"],
  "properties": {
    "destinations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "pos": {
            "type": "array",
            "items": {"type": "number"},
            "minItems": 3,
            "maxItems": 3
          },
          "price": {"type": "integer", "minimum": 0},
          "enabled": {"type": "boolean"},
          "scene": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var compiledSeedSchema = jsonschema.MustCompileString("destinations.schema.json", seedSchema)

// LoadSeed reads and validates a destination catalog file. Duplicate names
// are a config error; seed order is preserved for listing.
func LoadSeed(path string) ([]Destination, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(raw)
}

func ParseSeed(raw []byte) ([]Destination, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("destinations: %w", err)
	}
	if err := compiledSeedSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("destinations: %w", err)
	}
	var sf seedFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("destinations: %w", err)
	}

	seen := map[string]struct{}{}
	out := make([]Destination, 0, len(sf.Destinations))
	for _, r := range sf.Destinations {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("destinations: blank name")
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("destinations: duplicate name %q", name)
		}
		seen[name] = struct{}{}

		d := Destination{Name: name, SceneID: r.SceneID, Enabled: true}
		if r.Enabled != nil {
			d.Enabled = *r.Enabled
		}
		if r.Pos != nil {
			d.Pos = &worldgraph.Vec3{X: r.Pos[0], Y: r.Pos[1], Z: r.Pos[2]}
		}
		if r.Price != nil {
			p := *r.Price
			d.Price = &p
		}
		out = append(out, d)
	}
	return out, nil
}
