// Package variable enumerates the selectable map variables.
//
// A variable ID names both a field in the station records and the background
// raster generated for it (<ID>_BACKGROUND.png).
package variable

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknown is returned when a selection is not part of the registry.
var ErrUnknown = errors.New("unknown variable")

// ID identifies a selectable variable. Valid IDs are exactly those held by a Registry.
type ID string

func (id ID) String() string { return string(id) }

// BackgroundName returns the raster asset name for this variable.
func (id ID) BackgroundName() string {
	return string(id) + "_BACKGROUND.png"
}

// Entry is a registry item as stored in the variables file.
type Entry struct {
	ID    string `yaml:"id" json:"id" doc:"Variable identifier (station record field name)" example:"AIR_TEMP_F"`
	Label string `yaml:"label,omitempty" json:"label" doc:"Display label" example:"Air temperature (°F)"`
}

// Registry is the ordered, closed set of selectable variables.
type Registry struct {
	ids    []ID
	labels map[ID]string
}

// defaultEntries is an example station-network list led by AIR_TEMP_F, the
// map's default variable. Deployments pass their own with --variables.
var defaultEntries = []Entry{
	{ID: "AIR_TEMP_F", Label: "Air temperature (°F)"},
	{ID: "REL_HUM", Label: "Relative humidity (%)"},
	{ID: "WIND_SPEED_MPH", Label: "Wind speed (mph)"},
	{ID: "WIND_GUST_MPH", Label: "Wind gust (mph)"},
	{ID: "PRECIP_IN", Label: "Precipitation (in)"},
	{ID: "SOLAR_RAD", Label: "Solar radiation (W/m²)"},
	{ID: "SOIL_TEMP_F", Label: "Soil temperature (°F)"},
	{ID: "DEW_POINT_F", Label: "Dew point (°F)"},
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := FromEntries(defaultEntries)
	if err != nil {
		panic(err)
	}
	return r
}

// New creates a registry from bare IDs, in display order.
func New(ids ...string) (*Registry, error) {
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = Entry{ID: id}
	}
	return FromEntries(entries)
}

// FromEntries creates a registry from entries, in display order.
func FromEntries(entries []Entry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, errors.New("variable registry is empty")
	}
	r := &Registry{
		ids:    make([]ID, 0, len(entries)),
		labels: make(map[ID]string, len(entries)),
	}
	for _, e := range entries {
		id := ID(strings.TrimSpace(e.ID))
		if id == "" {
			return nil, errors.New("variable with empty id")
		}
		if _, dup := r.labels[id]; dup {
			return nil, fmt.Errorf("duplicate variable %q", id)
		}
		r.ids = append(r.ids, id)
		r.labels[id] = e.Label
	}
	return r, nil
}

// Load reads a registry from a YAML file of the form:
//
//	variables:
//	  - id: AIR_TEMP_F
//	    label: Air temperature (°F)
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading variables: %w", err)
	}
	var doc struct {
		Variables []Entry `yaml:"variables"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing variables: %w", err)
	}
	return FromEntries(doc.Variables)
}

// IDs returns the variables in display order.
func (r *Registry) IDs() []ID {
	out := make([]ID, len(r.ids))
	copy(out, r.ids)
	return out
}

// Entries returns the variables with their labels, in display order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.ids))
	for i, id := range r.ids {
		out[i] = Entry{ID: string(id), Label: r.Label(id)}
	}
	return out
}

// First returns the default selection.
func (r *Registry) First() ID {
	return r.ids[0]
}

// Len returns the number of variables.
func (r *Registry) Len() int {
	return len(r.ids)
}

// Contains reports whether id is part of the registry.
func (r *Registry) Contains(id ID) bool {
	_, ok := r.labels[id]
	return ok
}

// Parse validates a raw selection value.
func (r *Registry) Parse(s string) (ID, error) {
	id := ID(strings.TrimSpace(s))
	if !r.Contains(id) {
		return "", fmt.Errorf("%w: %q", ErrUnknown, s)
	}
	return id, nil
}

// Label returns the display label, falling back to the ID itself.
func (r *Registry) Label(id ID) string {
	if l := r.labels[id]; l != "" {
		return l
	}
	return string(id)
}
