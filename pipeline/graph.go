package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// Stage is one element of a linear pipeline graph. A stage with Caps set and no Factory
// is a caps filter between its neighbours.
type Stage struct {
	Factory string
	Name    string
	Props   map[string]string
	Caps    string
}

// Graph is a declarative, linear pipeline description.
type Graph struct {
	Stages []Stage
}

// Add appends a stage and returns the graph for chaining.
func (g *Graph) Add(factory, name string, props map[string]string) *Graph {
	g.Stages = append(g.Stages, Stage{Factory: factory, Name: name, Props: props})
	return g
}

// Filter appends a caps filter.
func (g *Graph) Filter(caps string) *Graph {
	g.Stages = append(g.Stages, Stage{Caps: caps})
	return g
}

// Has reports whether the graph contains a stage with the given name.
func (g *Graph) Has(name string) bool {
	for _, s := range g.Stages {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Validate checks the graph is non-empty, every stage is either an element or a caps
// filter, and element names are unique.
func (g *Graph) Validate() error {
	if len(g.Stages) == 0 {
		return fmt.Errorf("pipeline graph has no stages")
	}
	names := make(map[string]struct{})
	for i, s := range g.Stages {
		switch {
		case s.Factory == "" && s.Caps == "":
			return fmt.Errorf("stage %d has neither a factory nor caps", i)
		case s.Factory != "" && s.Caps != "":
			return fmt.Errorf("stage %d (%s) cannot be both an element and a caps filter", i, s.Factory)
		}
		if s.Name == "" {
			continue
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("duplicate stage name %q", s.Name)
		}
		names[s.Name] = struct{}{}
	}
	if g.Stages[0].Caps != "" {
		return fmt.Errorf("pipeline graph cannot start with a caps filter")
	}
	return nil
}

// LaunchString renders the graph in gst-launch syntax. Properties are emitted in key order
// so the output is stable.
func (g *Graph) LaunchString() string {
	parts := make([]string, 0, len(g.Stages))
	for _, s := range g.Stages {
		if s.Caps != "" {
			parts = append(parts, s.Caps)
			continue
		}
		var sb strings.Builder
		sb.WriteString(s.Factory)
		if s.Name != "" {
			fmt.Fprintf(&sb, " name=%s", s.Name)
		}
		keys := make([]string, 0, len(s.Props))
		for k := range s.Props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%s", k, quoteProp(s.Props[k]))
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, " ! ")
}

func quoteProp(v string) string {
	if v == "" || strings.ContainsAny(v, " \t!\"'") {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}
