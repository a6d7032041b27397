// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
)

// Registry keeps handlers in registration order.
type Registry struct {
	entries []Entry
	index   map[string]int
}

func New() *Registry {
	return &Registry{index: map[string]int{}}
}

// Register adds e. Names and method+path pairs must be unique.
func (r *Registry) Register(e Entry) error {
	if e.Name == "" || e.Handler == nil {
		return fmt.Errorf("handler entry needs a name and a handler")
	}
	if _, exists := r.index[e.Name]; exists {
		return fmt.Errorf("handler %q already registered", e.Name)
	}
	for _, other := range r.entries {
		if other.Method == e.Method && other.Path == e.Path {
			return fmt.Errorf("route %s %s already served by %q", e.Method, e.Path, other.Name)
		}
	}
	r.index[e.Name] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

func (r *Registry) Get(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Jobs returns the entries that can run on a schedule.
func (r *Registry) Jobs() []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Job != nil {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Name
	}
	return out
}

// Manifest describes the registered handlers.
func (r *Registry) Manifest(version string) Manifest {
	m := Manifest{Version: version, Handlers: make([]Descriptor, len(r.entries))}
	for i, e := range r.entries {
		m.Handlers[i] = Descriptor{
			Name:        e.Name,
			Method:      e.Method,
			Path:        e.Path,
			Description: e.Description,
			Scheduled:   e.Job != nil,
		}
	}
	return m
}

func WriteManifest(w io.Writer, m Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// Diff lists handlers whose descriptors differ between two manifests.
func Diff(want, got Manifest) []string {
	byName := map[string]Descriptor{}
	for _, d := range got.Handlers {
		byName[d.Name] = d
	}
	var out []string
	for _, d := range want.Handlers {
		other, ok := byName[d.Name]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("%s: missing", d.Name))
		case !reflect.DeepEqual(d, other):
			out = append(out, fmt.Sprintf("%s: changed", d.Name))
		}
		delete(byName, d.Name)
	}
	for name := range byName {
		out = append(out, fmt.Sprintf("%s: not registered", name))
	}
	return out
}
