package extract

import (
	"go/types"
	"reflect"
	"strings"

	"github.com/teranos/bridgegen/ir"
)

// jsonTag is a parsed `json:"..."` struct tag.
type jsonTag struct {
	name      string
	skip      bool
	omitempty bool
	omitzero  bool
	asString  bool
}

func parseTag(raw string) jsonTag {
	tag, ok := reflect.StructTag(raw).Lookup("json")
	if !ok {
		return jsonTag{}
	}
	if tag == "-" {
		return jsonTag{skip: true}
	}
	name, opts, _ := strings.Cut(tag, ",")
	t := jsonTag{name: name}
	for _, opt := range strings.Split(opts, ",") {
		switch opt {
		case "omitempty":
			t.omitempty = true
		case "omitzero":
			t.omitzero = true
		case "string":
			t.asString = true
		}
	}
	return t
}

// fields lists the members encoding/json would emit for st, in encoding
// order, with promoted fields of embedded structs flattened in place.
func (e *extractor) fields(st *types.Struct, at site) []ir.Field {
	out := e.members(st, at, map[string]bool{}, false, map[*types.Named]bool{})
	seen := make(map[string]bool, len(out))
	kept := out[:0]
	for _, f := range out {
		if seen[f.WireName()] {
			continue
		}
		seen[f.WireName()] = true
		kept = append(kept, f)
	}
	return kept
}

// members walks one embedding level. shadow holds wire names declared at
// shallower levels, which win over anything promoted from here.
func (e *extractor) members(st *types.Struct, at site, shadow map[string]bool, promotedViaPointer bool, visiting map[*types.Named]bool) []ir.Field {
	own := make(map[string]bool, len(shadow)+st.NumFields())
	for name := range shadow {
		own[name] = true
	}
	for i := 0; i < st.NumFields(); i++ {
		if name, ok := plainName(st, i); ok {
			own[name] = true
		}
	}

	var out []ir.Field
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		tag := parseTag(st.Tag(i))
		if tag.skip {
			continue
		}
		if emb, viaPtr, named, ok := embeddedStruct(f, tag); ok {
			if named != nil {
				if visiting[named] {
					continue
				}
				visiting[named] = true
			}
			out = append(out, e.members(emb, at, own, promotedViaPointer || viaPtr, visiting)...)
			if named != nil {
				delete(visiting, named)
			}
			continue
		}
		name, ok := plainName(st, i)
		if !ok || shadow[name] {
			continue
		}
		if field, ok := e.field(f, tag, at, promotedViaPointer); ok {
			out = append(out, field)
		}
	}
	return out
}

func (e *extractor) field(f *types.Var, tag jsonTag, at site, promotedViaPointer bool) (ir.Field, bool) {
	typ, ok := e.ref(f.Type(), at.nested(f.Name()))
	if !ok {
		return ir.Field{}, false
	}
	if tag.asString {
		if b, ok := types.Unalias(f.Type()).Underlying().(*types.Basic); ok && b.Info()&(types.IsNumeric|types.IsBoolean|types.IsString) != 0 {
			typ = ir.Prim(ir.String)
		}
	}
	return ir.Field{
		Name:     f.Name(),
		JSONName: tag.name,
		Type:     typ,
		Optional: tag.omitempty || tag.omitzero || promotedViaPointer,
		Doc:      e.fieldDocs[f.Pos()],
	}, true
}

// plainName returns the wire name of field i when it is encoded as a member
// of st itself rather than flattened or dropped.
func plainName(st *types.Struct, i int) (string, bool) {
	f := st.Field(i)
	tag := parseTag(st.Tag(i))
	if tag.skip {
		return "", false
	}
	if _, _, _, ok := embeddedStruct(f, tag); ok {
		return "", false
	}
	if !f.Exported() {
		return "", false
	}
	if tag.name != "" {
		return tag.name, true
	}
	return f.Name(), true
}

// embeddedStruct reports whether f is an untagged embedded struct whose
// fields encoding/json promotes into the parent.
func embeddedStruct(f *types.Var, tag jsonTag) (*types.Struct, bool, *types.Named, bool) {
	if !f.Embedded() || tag.name != "" {
		return nil, false, nil, false
	}
	t := types.Unalias(f.Type())
	viaPtr := false
	if p, ok := t.(*types.Pointer); ok {
		t = types.Unalias(p.Elem())
		viaPtr = true
	}
	st, ok := t.Underlying().(*types.Struct)
	if !ok {
		return nil, false, nil, false
	}
	named, _ := t.(*types.Named)
	return st, viaPtr, named, true
}
