package ir

import (
	"fmt"
	"strings"

	"github.com/teranos/bridgegen/errors"
)

// Origin locates a declaration in backend source.
type Origin = errors.Origin

// Kind classifies a TypeDecl.
type Kind string

const (
	KindStruct  Kind = "struct"
	KindEnum    Kind = "enum"
	KindAlias   Kind = "alias"
	KindWrapper Kind = "primitive-wrapper"
)

// RefKind classifies a TypeRef.
type RefKind string

const (
	RefPrimitive RefKind = "primitive"
	RefNamed     RefKind = "named"
	RefOptional  RefKind = "optional"
	RefSequence  RefKind = "sequence"
	RefMap       RefKind = "map"
)

// Primitive is a leaf type shared by both type systems.
type Primitive string

const (
	String  Primitive = "string"
	Bool    Primitive = "bool"
	Int     Primitive = "int"
	Float   Primitive = "float"
	Bytes   Primitive = "bytes"
	Time    Primitive = "time"
	Unknown Primitive = "unknown"
)

// Primitives lists every primitive in mapping-table order.
var Primitives = []Primitive{String, Bool, Int, Float, Bytes, Time, Unknown}

// Valid reports whether p is a known primitive.
func (p Primitive) Valid() bool {
	for _, known := range Primitives {
		if p == known {
			return true
		}
	}
	return false
}

// TypeRef references a primitive or a named declaration, possibly wrapped
// in optional, sequence or map constructors.
type TypeRef struct {
	Kind      RefKind   `json:"kind" yaml:"kind" toml:"kind"`
	Primitive Primitive `json:"primitive,omitempty" yaml:"primitive,omitempty" toml:"primitive,omitempty"`
	Ref       string    `json:"ref,omitempty" yaml:"ref,omitempty" toml:"ref,omitempty"`
	Elem      *TypeRef  `json:"elem,omitempty" yaml:"elem,omitempty" toml:"elem,omitempty"`
	Key       *TypeRef  `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
	Value     *TypeRef  `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
}

// Prim returns a primitive reference.
func Prim(p Primitive) TypeRef { return TypeRef{Kind: RefPrimitive, Primitive: p} }

// Named returns a reference to the declaration with canonical ID id.
func Named(id string) TypeRef { return TypeRef{Kind: RefNamed, Ref: id} }

// Optional returns optional-of(elem).
func Optional(elem TypeRef) TypeRef { return TypeRef{Kind: RefOptional, Elem: &elem} }

// Sequence returns sequence-of(elem).
func Sequence(elem TypeRef) TypeRef { return TypeRef{Kind: RefSequence, Elem: &elem} }

// Map returns map-of(key, value).
func Map(key, value TypeRef) TypeRef { return TypeRef{Kind: RefMap, Key: &key, Value: &value} }

// String renders the reference for diagnostics, e.g. "sequence<optional<geom.Point>>".
func (r TypeRef) String() string {
	switch r.Kind {
	case RefPrimitive:
		return string(r.Primitive)
	case RefNamed:
		return r.Ref
	case RefOptional, RefSequence:
		if r.Elem == nil {
			return string(r.Kind) + "<?>"
		}
		return fmt.Sprintf("%s<%s>", r.Kind, r.Elem.String())
	case RefMap:
		if r.Key == nil || r.Value == nil {
			return "map<?>"
		}
		return fmt.Sprintf("map<%s, %s>", r.Key.String(), r.Value.String())
	default:
		return "invalid<" + string(r.Kind) + ">"
	}
}

// Walk calls fn for r and every nested reference, depth-first.
// Returning false from fn prunes the subtree.
func (r *TypeRef) Walk(fn func(*TypeRef) bool) {
	if r == nil || !fn(r) {
		return
	}
	r.Elem.Walk(fn)
	r.Key.Walk(fn)
	r.Value.Walk(fn)
}

// Clone returns a deep copy.
func (r TypeRef) Clone() TypeRef {
	out := r
	if r.Elem != nil {
		e := r.Elem.Clone()
		out.Elem = &e
	}
	if r.Key != nil {
		k := r.Key.Clone()
		out.Key = &k
	}
	if r.Value != nil {
		v := r.Value.Clone()
		out.Value = &v
	}
	return out
}

// Field is a struct member.
type Field struct {
	Name     string  `json:"name" yaml:"name" toml:"name"`
	JSONName string  `json:"json_name,omitempty" yaml:"json_name,omitempty" toml:"json_name,omitempty"`
	Type     TypeRef `json:"type" yaml:"type" toml:"type"`
	Optional bool    `json:"optional,omitempty" yaml:"optional,omitempty" toml:"optional,omitempty"`
	Doc      string  `json:"doc,omitempty" yaml:"doc,omitempty" toml:"doc,omitempty"`
}

// WireName is the key the field has on the wire.
func (f Field) WireName() string {
	if f.JSONName != "" {
		return f.JSONName
	}
	return f.Name
}

// Variant is one enum member. Value enums carry Value (the decoded literal);
// tagged union members carry Payload, or nothing for a bare tag.
type Variant struct {
	Name    string   `json:"name" yaml:"name" toml:"name"`
	Value   string   `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
	Payload *TypeRef `json:"payload,omitempty" yaml:"payload,omitempty" toml:"payload,omitempty"`
	Doc     string   `json:"doc,omitempty" yaml:"doc,omitempty" toml:"doc,omitempty"`
}

// TypeDecl is a named type. Target holds the aliased type for aliases, the
// wrapped primitive for primitive-wrappers and the literal type of a value enum.
type TypeDecl struct {
	ID       string    `json:"id" yaml:"id" toml:"id"`
	Name     string    `json:"name" yaml:"name" toml:"name"`
	Kind     Kind      `json:"kind" yaml:"kind" toml:"kind"`
	Fields   []Field   `json:"fields,omitempty" yaml:"fields,omitempty" toml:"fields,omitempty"`
	Variants []Variant `json:"variants,omitempty" yaml:"variants,omitempty" toml:"variants,omitempty"`
	Target   *TypeRef  `json:"target,omitempty" yaml:"target,omitempty" toml:"target,omitempty"`
	Origin   Origin    `json:"origin" yaml:"origin" toml:"origin"`
	Doc      string    `json:"doc,omitempty" yaml:"doc,omitempty" toml:"doc,omitempty"`
}

// IsUnion reports whether the decl is a tagged union: an enum with at least
// one payload-carrying variant. Variants without a payload are bare tags.
func (d *TypeDecl) IsUnion() bool {
	if d.Kind != KindEnum {
		return false
	}
	for _, v := range d.Variants {
		if v.Payload != nil {
			return true
		}
	}
	return false
}

// Refs returns pointers to every top-level TypeRef owned by the decl.
func (d *TypeDecl) Refs() []*TypeRef {
	var refs []*TypeRef
	for i := range d.Fields {
		refs = append(refs, &d.Fields[i].Type)
	}
	for i := range d.Variants {
		if d.Variants[i].Payload != nil {
			refs = append(refs, d.Variants[i].Payload)
		}
	}
	if d.Target != nil {
		refs = append(refs, d.Target)
	}
	return refs
}

// Param is a signature parameter.
type Param struct {
	Name string  `json:"name" yaml:"name" toml:"name"`
	Type TypeRef `json:"type" yaml:"type" toml:"type"`
}

// SignatureDecl is a callable exposed to the frontend.
type SignatureDecl struct {
	ID     string   `json:"id" yaml:"id" toml:"id"`
	Name   string   `json:"name" yaml:"name" toml:"name"`
	Params []Param  `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
	Result *TypeRef `json:"result,omitempty" yaml:"result,omitempty" toml:"result,omitempty"`
	Origin Origin   `json:"origin" yaml:"origin" toml:"origin"`
	Doc    string   `json:"doc,omitempty" yaml:"doc,omitempty" toml:"doc,omitempty"`
}

// Refs returns pointers to every top-level TypeRef owned by the signature.
func (s *SignatureDecl) Refs() []*TypeRef {
	refs := make([]*TypeRef, 0, len(s.Params)+1)
	for i := range s.Params {
		refs = append(refs, &s.Params[i].Type)
	}
	if s.Result != nil {
		refs = append(refs, s.Result)
	}
	return refs
}

// Import is a declaration owned by another unit and referenced from this one.
type Import struct {
	Unit string `json:"unit" yaml:"unit" toml:"unit"`
	ID   string `json:"id" yaml:"id" toml:"id"`
	Name string `json:"name" yaml:"name" toml:"name"`
}

// IR is everything extracted from one generation unit.
type IR struct {
	Unit       string          `json:"unit" yaml:"unit" toml:"unit"`
	Package    string          `json:"package" yaml:"package" toml:"package"`
	Types      []TypeDecl      `json:"types,omitempty" yaml:"types,omitempty" toml:"types,omitempty"`
	Signatures []SignatureDecl `json:"signatures,omitempty" yaml:"signatures,omitempty" toml:"signatures,omitempty"`
	Imports    []Import        `json:"imports,omitempty" yaml:"imports,omitempty" toml:"imports,omitempty"`
}

// Type returns the declaration with canonical ID id.
func (m *IR) Type(id string) (*TypeDecl, bool) {
	for i := range m.Types {
		if m.Types[i].ID == id {
			return &m.Types[i], true
		}
	}
	return nil, false
}

// Index maps canonical IDs to declarations.
func (m *IR) Index() map[string]*TypeDecl {
	idx := make(map[string]*TypeDecl, len(m.Types))
	for i := range m.Types {
		idx[m.Types[i].ID] = &m.Types[i]
	}
	return idx
}

// ID builds a canonical identity from a package path and a name.
func ID(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// SplitID is the inverse of ID.
func SplitID(id string) (pkg, name string) {
	i := strings.LastIndex(id, ".")
	if i < 0 {
		return "", id
	}
	return id[:i], id[i+1:]
}

// Clone returns a deep copy of m. Cached IR is cloned before normalization
// rewrites it in place.
func (m *IR) Clone() *IR {
	out := &IR{Unit: m.Unit, Package: m.Package}
	out.Types = make([]TypeDecl, len(m.Types))
	for i, d := range m.Types {
		c := d
		c.Fields = make([]Field, len(d.Fields))
		for j, f := range d.Fields {
			f.Type = f.Type.Clone()
			c.Fields[j] = f
		}
		c.Variants = make([]Variant, len(d.Variants))
		for j, v := range d.Variants {
			if v.Payload != nil {
				p := v.Payload.Clone()
				v.Payload = &p
			}
			c.Variants[j] = v
		}
		if d.Target != nil {
			t := d.Target.Clone()
			c.Target = &t
		}
		if len(d.Fields) == 0 {
			c.Fields = nil
		}
		if len(d.Variants) == 0 {
			c.Variants = nil
		}
		out.Types[i] = c
	}
	out.Signatures = make([]SignatureDecl, len(m.Signatures))
	for i, s := range m.Signatures {
		c := s
		c.Params = make([]Param, len(s.Params))
		for j, p := range s.Params {
			p.Type = p.Type.Clone()
			c.Params[j] = p
		}
		if len(s.Params) == 0 {
			c.Params = nil
		}
		if s.Result != nil {
			r := s.Result.Clone()
			c.Result = &r
		}
		out.Signatures[i] = c
	}
	out.Imports = append([]Import(nil), m.Imports...)
	if len(m.Types) == 0 {
		out.Types = nil
	}
	if len(m.Signatures) == 0 {
		out.Signatures = nil
	}
	return out
}
