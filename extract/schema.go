package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
)

// Schema reads a language-neutral schema document describing a unit's
// type model. The format follows the file extension: .json, .yaml/.yml or
// .toml. Unknown keys are rejected so typos do not silently drop fields.
func Schema(path string) (*ir.IR, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO(path, err)
	}

	var m ir.IR
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, errors.Extraction(path, errors.Wrap(err, "failed to decode JSON schema"))
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, errors.Extraction(path, errors.Wrap(err, "failed to decode YAML schema"))
		}
	case ".toml":
		md, err := toml.Decode(string(data), &m)
		if err != nil {
			return nil, errors.Extraction(path, errors.Wrap(err, "failed to decode TOML schema"))
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errors.Extraction(path, errors.Newf("unknown keys: %s", strings.Join(keys, ", ")))
		}
	default:
		return nil, errors.Extraction(path, errors.WithHint(
			errors.Newf("unsupported schema format %q", ext),
			"use .json, .yaml, .yml or .toml"))
	}

	if err := prepareSchema(&m, path); err != nil {
		return nil, err
	}
	return &m, nil
}

// prepareSchema fills derivable fields and rejects malformed declarations.
// Reference resolution is left to the normalizer.
func prepareSchema(m *ir.IR, path string) error {
	var errs errors.List
	bad := func(decl string, origin ir.Origin, format string, args ...interface{}) {
		if origin.File == "" {
			origin.File = path
		}
		errs = append(errs, &errors.GenError{
			Kind:   errors.ErrExtractionFailure,
			Decl:   decl,
			Origin: origin,
			Msg:    fmt.Sprintf(format, args...),
		})
	}

	for i := range m.Types {
		d := &m.Types[i]
		if d.Name == "" {
			bad("type #"+strconv.Itoa(i), d.Origin, "missing name")
			continue
		}
		if d.ID == "" {
			d.ID = ir.ID(m.Package, d.Name)
		}
		if d.Origin.Package == "" {
			d.Origin.Package = m.Package
		}
		switch d.Kind {
		case ir.KindStruct:
		case ir.KindEnum:
			if len(d.Variants) == 0 {
				bad(d.Name, d.Origin, "enum has no variants")
			}
			if d.IsUnion() {
				for _, v := range d.Variants {
					if v.Value != "" {
						bad(d.Name, d.Origin, "variant %s has a value; members of a tagged union carry a payload or nothing", v.Name)
					}
				}
			}
		case ir.KindAlias, ir.KindWrapper:
			if d.Target == nil {
				bad(d.Name, d.Origin, "%s needs a target", d.Kind)
			}
		default:
			bad(d.Name, d.Origin, "unknown kind %q", d.Kind)
		}
		for _, ref := range d.Refs() {
			if err := checkRef(ref); err != nil {
				bad(d.Name, d.Origin, "%v", err)
			}
		}
	}

	for i := range m.Signatures {
		s := &m.Signatures[i]
		if s.Name == "" {
			bad("signature #"+strconv.Itoa(i), s.Origin, "missing name")
			continue
		}
		if s.ID == "" {
			s.ID = ir.ID(m.Package, s.Name)
		}
		if s.Origin.Package == "" {
			s.Origin.Package = m.Package
		}
		for _, ref := range s.Refs() {
			if err := checkRef(ref); err != nil {
				bad(s.Name, s.Origin, "%v", err)
			}
		}
	}
	return errs.Err()
}

// checkRef validates the shape of a reference tree.
func checkRef(root *ir.TypeRef) error {
	var err error
	root.Walk(func(r *ir.TypeRef) bool {
		if err != nil {
			return false
		}
		switch r.Kind {
		case ir.RefPrimitive:
			if !r.Primitive.Valid() {
				err = errors.Newf("unknown primitive %q", r.Primitive)
			}
		case ir.RefNamed:
			if r.Ref == "" {
				err = errors.New("named reference without ref")
			}
		case ir.RefOptional, ir.RefSequence:
			if r.Elem == nil {
				err = errors.Newf("%s reference without elem", r.Kind)
			}
		case ir.RefMap:
			if r.Key == nil || r.Value == nil {
				err = errors.New("map reference needs key and value")
			}
		default:
			err = errors.Newf("unknown reference kind %q", r.Kind)
		}
		return err == nil
	})
	return err
}

// Filter drops declarations named in exclude, by simple name or canonical ID.
func Filter(m *ir.IR, exclude []string) {
	if len(exclude) == 0 {
		return
	}
	drop := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		drop[name] = true
	}
	types := m.Types[:0]
	for _, d := range m.Types {
		if !drop[d.Name] && !drop[d.ID] {
			types = append(types, d)
		}
	}
	m.Types = types
	sigs := m.Signatures[:0]
	for _, s := range m.Signatures {
		if !drop[s.Name] && !drop[s.ID] {
			sigs = append(sigs, s)
		}
	}
	m.Signatures = sigs
}
