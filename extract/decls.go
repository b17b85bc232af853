package extract

import (
	"fmt"
	"go/constant"
	"go/types"
	"sort"

	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
	"github.com/teranos/bridgegen/logger"
)

// site is where a type is being converted: the declaration reported in
// errors and a name for anonymous structs found there.
type site struct {
	decl   string
	origin ir.Origin
	hint   string
}

func (s site) nested(name string) site {
	return site{decl: s.decl + "." + name, origin: s.origin, hint: s.hint + exportName(name)}
}

func (e *extractor) unsupported(at site, format string, args ...interface{}) (ir.TypeRef, bool) {
	e.fail(errors.Unsupported(at.decl, at.origin, format, args...))
	return ir.TypeRef{}, false
}

// declare converts a defined (non-alias) type.
func (e *extractor) declare(tn *types.TypeName) {
	if _, mapped := e.src.Mappings[qualified(tn)]; mapped {
		return
	}
	origin := e.origin(tn)
	at := site{decl: tn.Name(), origin: origin, hint: tn.Name()}

	named, ok := tn.Type().(*types.Named)
	if !ok {
		e.unsupported(at, "%s is not a defined type", tn.Name())
		return
	}
	if named.TypeParams().Len() > 0 {
		e.unsupported(at, "generic type declarations have no single wire shape")
		return
	}

	decl := ir.TypeDecl{
		ID:     qualified(tn),
		Name:   tn.Name(),
		Origin: origin,
		Doc:    e.docs[tn],
	}

	switch u := named.Underlying().(type) {
	case *types.Struct:
		decl.Kind = ir.KindStruct
		decl.Fields = e.fields(u, at)

	case *types.Basic:
		target, ok := e.basic(u, at)
		if !ok {
			return
		}
		decl.Target = &target
		decl.Kind = ir.KindWrapper
		if u.Info()&(types.IsString|types.IsInteger) != 0 {
			if consts := e.constsOf(tn); len(consts) > 0 {
				decl.Kind = ir.KindEnum
				decl.Variants = e.valueVariants(consts)
			}
		}

	case *types.Interface:
		switch {
		case sealed(u):
			decl.Kind = ir.KindEnum
			decl.Variants = e.unionVariants(tn, u)
			if len(decl.Variants) == 0 {
				e.unsupported(at, "sealed interface has no exported struct implementations")
				return
			}
		case u.Empty():
			target := ir.Prim(ir.Unknown)
			decl.Kind = ir.KindWrapper
			decl.Target = &target
		default:
			e.unsupported(at, "interface with exported methods has no wire shape; seal it with an unexported marker method")
			return
		}

	default:
		target, ok := e.ref(u, at)
		if !ok {
			return
		}
		decl.Kind = ir.KindWrapper
		decl.Target = &target
	}

	e.out.Types = append(e.out.Types, decl)
}

// declareAlias converts `type A = B`. A re-export of a same-named type from
// another package is elided: the origin is declared in its place.
func (e *extractor) declareAlias(tn *types.TypeName) {
	if origin, ok := reexportOf(tn); ok {
		if owner := e.owner(origin.Pkg()); owner != "" {
			logger.Named("extract").Debugw("Re-export owned by another unit", "type", qualified(tn), "owner", owner)
			return
		}
		e.enqueue(origin)
		return
	}

	id := qualified(tn)
	if e.declared[id] {
		return
	}
	e.declared[id] = true

	origin := e.origin(tn)
	at := site{decl: tn.Name(), origin: origin, hint: tn.Name()}
	rhs := tn.Type()
	if a, ok := rhs.(*types.Alias); ok {
		if a.TypeParams().Len() > 0 {
			e.unsupported(at, "generic aliases have no single wire shape")
			return
		}
		rhs = a.Rhs()
	}
	target, ok := e.ref(rhs, at)
	if !ok {
		return
	}
	e.out.Types = append(e.out.Types, ir.TypeDecl{
		ID:     id,
		Name:   tn.Name(),
		Kind:   ir.KindAlias,
		Target: &target,
		Origin: origin,
		Doc:    e.docs[tn],
	})
}

func reexportOf(tn *types.TypeName) (*types.TypeName, bool) {
	named, ok := types.Unalias(tn.Type()).(*types.Named)
	if !ok || named.TypeArgs().Len() > 0 {
		return nil, false
	}
	origin := named.Obj()
	if origin.Name() != tn.Name() || origin.Pkg() == tn.Pkg() {
		return nil, false
	}
	return origin, true
}

// constsOf returns the exported constants of type tn in declaration order.
func (e *extractor) constsOf(tn *types.TypeName) []*types.Const {
	if tn.Pkg() == e.pkg.Types {
		return e.consts[tn]
	}
	var out []*types.Const
	scope := tn.Pkg().Scope()
	for _, name := range scope.Names() {
		c, ok := scope.Lookup(name).(*types.Const)
		if ok && c.Exported() && types.Identical(c.Type(), tn.Type()) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return e.before(out[i], out[j]) })
	return out
}

func (e *extractor) valueVariants(consts []*types.Const) []ir.Variant {
	variants := make([]ir.Variant, 0, len(consts))
	for _, c := range consts {
		var value string
		if c.Val().Kind() == constant.String {
			value = constant.StringVal(c.Val())
		} else {
			value = c.Val().ExactString()
		}
		variants = append(variants, ir.Variant{Name: c.Name(), Value: value, Doc: e.docs[c]})
	}
	return variants
}

// sealed reports whether every method of iface is an unexported marker:
// no parameters, no results. Only the declaring package can implement it.
func sealed(iface *types.Interface) bool {
	if iface.NumMethods() == 0 || !iface.IsMethodSet() {
		return false
	}
	for i := 0; i < iface.NumMethods(); i++ {
		m := iface.Method(i)
		if m.Exported() {
			return false
		}
		sig, ok := m.Type().(*types.Signature)
		if !ok || sig.Params().Len() != 0 || sig.Results().Len() != 0 {
			return false
		}
	}
	return true
}

// unionVariants finds the exported structs in tn's package implementing
// iface, in source order.
func (e *extractor) unionVariants(tn *types.TypeName, iface *types.Interface) []ir.Variant {
	scope := tn.Pkg().Scope()
	var impls []*types.TypeName
	for _, name := range scope.Names() {
		cand, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || cand.IsAlias() || !cand.Exported() || e.skipped[cand] || e.excluded(cand) {
			continue
		}
		named, ok := cand.Type().(*types.Named)
		if !ok || named.TypeParams().Len() > 0 {
			continue
		}
		if _, ok := named.Underlying().(*types.Struct); !ok {
			continue
		}
		if types.Implements(named, iface) || types.Implements(types.NewPointer(named), iface) {
			impls = append(impls, cand)
		}
	}
	sort.SliceStable(impls, func(i, j int) bool { return e.before(impls[i], impls[j]) })

	variants := make([]ir.Variant, 0, len(impls))
	for _, impl := range impls {
		payload := ir.Named(e.enqueue(impl))
		variants = append(variants, ir.Variant{Name: impl.Name(), Payload: &payload, Doc: e.docs[impl]})
	}
	return variants
}

func (e *extractor) before(a, b types.Object) bool {
	pa, pb := e.fset.Position(a.Pos()), e.fset.Position(b.Pos())
	if pa.Filename != pb.Filename {
		return pa.Filename < pb.Filename
	}
	return pa.Offset < pb.Offset
}

// signature converts an exported top-level function.
func (e *extractor) signature(fn *types.Func) {
	origin := e.origin(fn)
	at := site{decl: fn.Name(), origin: origin, hint: fn.Name()}

	sig, ok := fn.Type().(*types.Signature)
	if !ok {
		return
	}
	if sig.TypeParams().Len() > 0 {
		e.unsupported(at, "generic functions have no single wire signature")
		return
	}

	decl := ir.SignatureDecl{
		ID:     qualified(fn),
		Name:   fn.Name(),
		Origin: origin,
		Doc:    e.docs[fn],
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		if i == 0 && isContext(p.Type()) {
			continue
		}
		name := p.Name()
		if name == "" || name == "_" {
			name = fmt.Sprintf("arg%d", i)
		}
		t, ok := e.ref(p.Type(), at.nested(name))
		if !ok {
			continue
		}
		decl.Params = append(decl.Params, ir.Param{Name: name, Type: t})
	}

	results := sig.Results()
	n := results.Len()
	if n > 0 && isError(results.At(n-1).Type()) {
		n--
	}
	switch n {
	case 0:
	case 1:
		t, ok := e.ref(results.At(0).Type(), at.nested("Result"))
		if !ok {
			return
		}
		decl.Result = &t
	default:
		e.unsupported(at, "returns %d values; only T, error and (T, error) results are supported", results.Len())
		return
	}

	e.out.Signatures = append(e.out.Signatures, decl)
}

func isContext(t types.Type) bool {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok || named.Obj().Pkg() == nil {
		return false
	}
	return named.Obj().Pkg().Path() == "context" && named.Obj().Name() == "Context"
}

func isError(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}
