package config

import (
	"regexp"

	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
)

var unitNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Reserved unit names collide with files the emitter writes itself
var reservedUnitNames = map[string]bool{
	"index":   true,
	"runtime": true,
}

// Validate checks that the configuration is valid.
// Every problem is reported, not just the first.
func (c *Config) Validate() error {
	var problems errors.List

	if c.Output.Dir == "" {
		problems = append(problems, errors.New("output.dir cannot be empty"))
	}
	if c.Workers < 0 {
		problems = append(problems, errors.Newf("workers must be >= 0, got %d", c.Workers))
	}
	if c.Watch.DebounceMS < 0 {
		problems = append(problems, errors.Newf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS))
	}
	if len(c.Units) == 0 {
		problems = append(problems, errors.WithHint(
			errors.New("no [[units]] configured"),
			"add a [[units]] table with a package or schema",
		))
	}

	seen := make(map[string]bool, len(c.Units))
	for i, u := range c.Units {
		switch {
		case u.Package == "" && u.Schema == "":
			problems = append(problems, errors.Newf("units[%d]: one of package or schema is required", i))
		case u.Package != "" && u.Schema != "":
			problems = append(problems, errors.Newf("units[%d]: package and schema are mutually exclusive", i))
		}
		if !unitNamePattern.MatchString(u.Name) {
			problems = append(problems, errors.Newf("units[%d]: name %q must match %s", i, u.Name, unitNamePattern))
		}
		if reservedUnitNames[u.Name] {
			problems = append(problems, errors.Newf("units[%d]: name %q is reserved", i, u.Name))
		}
		if seen[u.Name] {
			problems = append(problems, errors.Newf("units[%d]: duplicate unit name %q", i, u.Name))
		}
		seen[u.Name] = true
	}

	for i, m := range c.Mapping {
		if m.Type == "" {
			problems = append(problems, errors.Newf("mapping[%d]: type cannot be empty", i))
		}
		if !ir.Primitive(m.To).Valid() {
			problems = append(problems, errors.Newf("mapping[%d]: %q is not a primitive (supported: %v)", i, m.To, ir.Primitives))
		}
	}

	return problems.Err()
}
