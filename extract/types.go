package extract

import (
	"go/types"
	"unicode"

	"github.com/teranos/bridgegen/ir"
)

// wellKnown maps standard library types with custom JSON encodings.
var wellKnown = map[string]ir.TypeRef{
	"time.Time":                   ir.Prim(ir.Time),
	"time.Duration":               ir.Prim(ir.Int),
	"encoding/json.RawMessage":    ir.Prim(ir.Unknown),
	"encoding/json.Number":        ir.Prim(ir.Float),
	"math/big.Int":                ir.Prim(ir.Int),
	"database/sql.NullString":     ir.Optional(ir.Prim(ir.String)),
	"database/sql.NullInt64":      ir.Optional(ir.Prim(ir.Int)),
	"database/sql.NullInt32":      ir.Optional(ir.Prim(ir.Int)),
	"database/sql.NullInt16":      ir.Optional(ir.Prim(ir.Int)),
	"database/sql.NullByte":       ir.Optional(ir.Prim(ir.Int)),
	"database/sql.NullFloat64":    ir.Optional(ir.Prim(ir.Float)),
	"database/sql.NullBool":       ir.Optional(ir.Prim(ir.Bool)),
	"database/sql.NullTime":       ir.Optional(ir.Prim(ir.Time)),
	"github.com/google/uuid.UUID": ir.Prim(ir.String),
}

// ref converts a Go type appearing at a use site.
func (e *extractor) ref(t types.Type, at site) (ir.TypeRef, bool) {
	switch t := t.(type) {
	case *types.Alias:
		obj := t.Obj()
		if obj.Pkg() == e.pkg.Types && e.wanted(obj) {
			if _, reexport := reexportOf(obj); !reexport {
				e.declareAlias(obj)
				return ir.Named(qualified(obj)), true
			}
		}
		return e.ref(types.Unalias(t), at)

	case *types.Named:
		return e.named(t, at)

	case *types.Pointer:
		elem, ok := e.ref(t.Elem(), at)
		if !ok {
			return elem, false
		}
		if elem.Kind == ir.RefOptional {
			return elem, true
		}
		return ir.Optional(elem), true

	case *types.Slice:
		if isByte(t.Elem()) {
			return ir.Prim(ir.Bytes), true
		}
		elem, ok := e.ref(t.Elem(), at)
		if !ok {
			return elem, false
		}
		return ir.Sequence(elem), true

	case *types.Array:
		elem, ok := e.ref(t.Elem(), at)
		if !ok {
			return elem, false
		}
		return ir.Sequence(elem), true

	case *types.Map:
		key, ok := e.mapKey(t.Key(), at)
		if !ok {
			return key, false
		}
		value, ok := e.ref(t.Elem(), at)
		if !ok {
			return value, false
		}
		return ir.Map(key, value), true

	case *types.Basic:
		return e.basic(t, at)

	case *types.Interface:
		if t.Empty() {
			return ir.Prim(ir.Unknown), true
		}
		return e.unsupported(at, "interface literal with methods has no wire shape")

	case *types.Struct:
		return e.anonymous(t, at)

	case *types.Chan:
		return e.unsupported(at, "channel %s cannot cross the wire", t)

	case *types.Signature:
		return e.unsupported(at, "function value %s cannot cross the wire", t)

	case *types.TypeParam:
		return e.unsupported(at, "type parameter %s has no single wire shape", t)

	default:
		return e.unsupported(at, "type %s is not supported", t)
	}
}

func (e *extractor) named(t *types.Named, at site) (ir.TypeRef, bool) {
	obj := t.Obj()
	id := qualified(obj)

	if to, ok := e.src.Mappings[id]; ok {
		return ir.Prim(ir.Primitive(to)), true
	}
	if known, ok := wellKnown[id]; ok {
		return known.Clone(), true
	}
	if obj.Pkg() == nil {
		return e.unsupported(at, "%s cannot cross the wire", obj.Name())
	}
	if t.TypeArgs().Len() > 0 {
		return e.unsupported(at, "instantiated generic type %s has no declaration to reference", t)
	}
	if !obj.Exported() {
		return e.unsupported(at, "references unexported type %s", id)
	}
	if e.owner(obj.Pkg()) != "" {
		return ir.Named(id), true
	}
	if e.skipped[obj] || e.excluded(obj) {
		// Left dangling on purpose: the normalizer reports it with context.
		return ir.Named(id), true
	}
	e.enqueue(obj)
	return ir.Named(id), true
}

// owner returns the unit owning pkg when that unit is not this one.
func (e *extractor) owner(pkg *types.Package) string {
	if pkg == nil {
		return ""
	}
	if o := e.src.Owners[pkg.Path()]; o != "" && o != e.src.Unit {
		return o
	}
	return ""
}

func (e *extractor) basic(b *types.Basic, at site) (ir.TypeRef, bool) {
	info := b.Info()
	switch {
	case b.Kind() == types.UnsafePointer:
		return e.unsupported(at, "unsafe.Pointer cannot cross the wire")
	case info&types.IsBoolean != 0:
		return ir.Prim(ir.Bool), true
	case info&types.IsInteger != 0:
		return ir.Prim(ir.Int), true
	case info&types.IsFloat != 0:
		return ir.Prim(ir.Float), true
	case info&types.IsComplex != 0:
		return e.unsupported(at, "complex numbers have no JSON encoding")
	case info&types.IsString != 0:
		return ir.Prim(ir.String), true
	default:
		return e.unsupported(at, "basic type %s is not supported", b)
	}
}

// mapKey accepts what encoding/json accepts as object keys: strings,
// integers and encoding.TextMarshaler implementations.
func (e *extractor) mapKey(key types.Type, at site) (ir.TypeRef, bool) {
	u := types.Unalias(key)
	if named, ok := u.(*types.Named); ok {
		id := qualified(named.Obj())
		if to, ok := e.src.Mappings[id]; ok {
			return ir.Prim(ir.Primitive(to)), true
		}
		if obj, _, _ := types.LookupFieldOrMethod(u, true, named.Obj().Pkg(), "MarshalText"); obj != nil {
			if _, isBasic := u.Underlying().(*types.Basic); !isBasic {
				return ir.Prim(ir.String), true
			}
		}
	}
	if b, ok := u.Underlying().(*types.Basic); ok && b.Info()&(types.IsString|types.IsInteger) != 0 {
		return e.ref(key, at)
	}
	return e.unsupported(at, "map key %s must be a string or integer type", key)
}

// anonymous declares an inline struct under a name derived from its site.
func (e *extractor) anonymous(st *types.Struct, at site) (ir.TypeRef, bool) {
	name := exportName(at.hint)
	id := ir.ID(e.pkg.PkgPath, name)
	if e.declared[id] {
		return e.unsupported(at, "anonymous struct would be declared as %s, which already exists; give it a name", name)
	}
	e.declared[id] = true
	e.out.Types = append(e.out.Types, ir.TypeDecl{
		ID:     id,
		Name:   name,
		Kind:   ir.KindStruct,
		Fields: e.fields(st, site{decl: name, origin: at.origin, hint: name}),
		Origin: at.origin,
	})
	return ir.Named(id), true
}

func isByte(t types.Type) bool {
	b, ok := types.Unalias(t).Underlying().(*types.Basic)
	return ok && b.Kind() == types.Uint8
}

func exportName(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
