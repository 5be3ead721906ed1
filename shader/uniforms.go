package shader

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"sync"
)

var (
	// ErrMissingUniform means the shader does not declare a uniform the animator drives.
	ErrMissingUniform = errors.New("shader does not declare uniform")

	// ErrUniformType means a driven uniform is declared with the wrong type.
	ErrUniformType = errors.New("shader uniform has wrong type")

	// ErrUnknownUniform is returned when writing a uniform that is not mutable at runtime.
	ErrUnknownUniform = errors.New("uniform is not mutable")

	// ErrNonFinite is returned when writing NaN or Inf.
	ErrNonFinite = errors.New("uniform value is not finite")
)

var uniformDecl = regexp.MustCompile(`(?m)^\s*uniform\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+(\w+)\s*(?:=[^;]*)?;`)

// DeclaredUniforms maps uniform name to GLSL type for every top-level uniform declaration.
func DeclaredUniforms(source string) map[string]string {
	decls := make(map[string]string)
	for _, m := range uniformDecl.FindAllStringSubmatch(source, -1) {
		decls[m[2]] = m[1]
	}
	return decls
}

// RequireUniforms checks the source declares each name with the given GLSL type. A
// mismatch is a configuration error and should stop the program before the pipeline runs.
func RequireUniforms(source, glslType string, names ...string) error {
	decls := DeclaredUniforms(source)
	var errs []error
	for _, name := range names {
		typ, ok := decls[name]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%w %q", ErrMissingUniform, name))
		case typ != glslType:
			errs = append(errs, fmt.Errorf("%w: %q is %s, want %s", ErrUniformType, name, typ, glslType))
		}
	}
	return errors.Join(errs...)
}

// InitialPosition is where the ball sits before the first animation tick.
const InitialPosition = 0.5

// InitialUniforms returns the ball position applied before the pipeline starts playing.
func InitialUniforms() map[string]float32 {
	return map[string]float32{
		UniformCX: InitialPosition,
		UniformCY: InitialPosition,
	}
}

// UniformSet holds scalar uniform values. Only names registered as mutable can be written
// with Set; Define sets the externally computed ones (width, height, time).
type UniformSet struct {
	mu      sync.RWMutex
	values  map[string]float32
	mutable map[string]struct{}
}

// NewUniformSet returns an empty set in which only the given names are mutable.
func NewUniformSet(mutable ...string) *UniformSet {
	s := &UniformSet{
		values:  make(map[string]float32),
		mutable: make(map[string]struct{}, len(mutable)),
	}
	for _, name := range mutable {
		s.mutable[name] = struct{}{}
	}
	return s
}

// Set writes a mutable uniform. Values outside [0,1] are accepted.
func (s *UniformSet) Set(name string, value float32) error {
	if _, ok := s.mutable[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUniform, name)
	}
	if math.IsNaN(float64(value)) || math.IsInf(float64(value), 0) {
		return fmt.Errorf("%w: %s=%v", ErrNonFinite, name, value)
	}
	s.mu.Lock()
	s.values[name] = value
	s.mu.Unlock()
	return nil
}

// SetUniform1f makes a UniformSet usable as a live uniform handle.
func (s *UniformSet) SetUniform1f(name string, value float32) error {
	return s.Set(name, value)
}

// Define writes any uniform, mutable or not.
func (s *UniformSet) Define(name string, value float32) {
	s.mu.Lock()
	s.values[name] = value
	s.mu.Unlock()
}

// DefineAll writes every value of m under one lock, so readers never see part of it.
func (s *UniformSet) DefineAll(m map[string]float32) {
	s.mu.Lock()
	for name, v := range m {
		s.values[name] = v
	}
	s.mu.Unlock()
}

func (s *UniformSet) Get(name string) (float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Snapshot returns a copy of all values.
func (s *UniformSet) Snapshot() map[string]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float32, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Names returns the names of all set values in sorted order.
func (s *UniformSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
