package transform

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Frost/edeliver/internal/ir"
)

// ErrUnknownUnit is returned when a pipeline names an unregistered unit.
var ErrUnknownUnit = errors.New("unknown transformation unit")

// Config is handed to a unit together with the set it transforms.
type Config struct {
	Release     string
	FromVersion string
	ToVersion   string

	// Options are the step's unit-specific options.
	Options map[string]string

	// Up and Down are instructions supplied by the step. An empty Down means
	// the unit uses Up on both sides.
	Up   ir.Sequence
	Down ir.Sequence
}

// Option returns the named option or def if it is unset or empty.
func (c Config) Option(name, def string) string {
	if v := c.Options[name]; v != "" {
		return v
	}
	return def
}

// DownOrUp returns Down if set, otherwise Up.
func (c Config) DownOrUp() ir.Sequence {
	if len(c.Down) > 0 {
		return c.Down
	}
	return c.Up
}

// Transformer is the extension contract of a transformation unit.
type Transformer interface {
	Transform(s ir.Set, cfg Config) ir.Set
}

// Validator is implemented by units that check their configuration before
// a pipeline runs.
type Validator interface {
	Validate(cfg Config) error
}

// Func adapts a plain function to Transformer.
type Func func(s ir.Set, cfg Config) ir.Set

// Transform calls f.
func (f Func) Transform(s ir.Set, cfg Config) ir.Set {
	return f(s, cfg)
}

// Validate runs t's validation if it has one.
func Validate(t Transformer, cfg Config) error {
	if v, ok := t.(Validator); ok {
		return v.Validate(cfg)
	}
	return nil
}

// Registry maps unit names to units.
// A Registry is not safe for concurrent registration; populate it before
// running pipelines.
type Registry struct {
	units map[string]Transformer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]Transformer)}
}

// DefaultRegistry returns a registry holding all built-in units.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, t := range builtins() {
		r.units[name] = t
	}
	return r
}

// Register adds a unit under name. Registering a name twice is an error.
func (r *Registry) Register(name string, t Transformer) error {
	if name == "" {
		return fmt.Errorf("register: empty unit name")
	}
	if t == nil {
		return fmt.Errorf("register %q: nil transformer", name)
	}
	if _, exists := r.units[name]; exists {
		return fmt.Errorf("register %q: already registered", name)
	}
	r.units[name] = t
	return nil
}

// Lookup returns the unit registered under name.
func (r *Registry) Lookup(name string) (Transformer, error) {
	t, ok := r.units[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownUnit, name, r.Names())
	}
	return t, nil
}

// Names returns the registered unit names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.units))
	for name := range r.units {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
