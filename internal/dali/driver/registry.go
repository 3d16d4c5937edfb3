package driver

import (
	"fmt"
	"strings"
	"sync"
)

// Factory builds a Driver from parsed key/value parameters.
type Factory func(params map[string]string) (Driver, error)

// Registry holds named driver factories and opens drivers by spec
// string.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, replacing any existing factory of
// the same name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered driver names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	return names
}

// Open parses a "name:key=value,key=value" spec string and invokes the
// matching factory. Leading/trailing whitespace around the name, each
// key and each value is stripped; a parameter with no "=" is a syntax
// error.
func (r *Registry) Open(spec string) (Driver, error) {
	name, params, err := parseSpec(spec)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Name: name}
	}

	drv, err := factory(params)
	if err != nil {
		return nil, &OpenError{Cause: err}
	}
	return drv, nil
}

func parseSpec(spec string) (string, map[string]string, error) {
	name, rest, hasParams := strings.Cut(spec, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, &ParameterError{Msg: "empty driver name"}
	}

	params := make(map[string]string)
	if !hasParams {
		return name, params, nil
	}

	for _, pair := range strings.Split(rest, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return "", nil, &ParameterError{Msg: fmt.Sprintf("missing '=' in parameter %q", pair)}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return "", nil, &ParameterError{Msg: fmt.Sprintf("empty key in parameter %q", pair)}
		}
		params[key] = value
	}
	return name, params, nil
}
