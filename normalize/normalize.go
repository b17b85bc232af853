// Package normalize turns extracted IR into the canonical form the emitter
// consumes: aliases collapsed, every reference resolved, rendered
// identifiers unique, and declarations in a stable order.
//
// Normalization rewrites the IR in place. It either succeeds completely or
// returns every problem found; the emitter never sees a partially
// normalized unit.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
	"github.com/teranos/bridgegen/logger"
)

// Ownership maps the canonical ID of every declaration in a run to the unit
// that owns it.
type Ownership map[string]string

// Add records every declaration of m as owned by m.Unit.
func (o Ownership) Add(m *ir.IR) {
	for _, d := range m.Types {
		if _, taken := o[d.ID]; !taken {
			o[d.ID] = m.Unit
		}
	}
}

// Namer renders declaration names as target-language identifiers. Types
// and values live in separate namespaces.
type Namer interface {
	TypeIdent(name string) string
	ValueIdent(name string) string
}

type identity struct{}

func (identity) TypeIdent(name string) string  { return name }
func (identity) ValueIdent(name string) string { return name }

// Options configure a normalization.
type Options struct {
	// Owners resolves references to declarations of other units into imports.
	Owners Ownership

	// Namer decides target identifiers for collision checks. Nil compares names as written.
	Namer Namer
}

// Normalize canonicalises m. AliasCycle, UnresolvedReference, NameCollision
// and by-value recursion errors are collected and returned together.
func Normalize(m *ir.IR, opts Options) (*ir.IR, error) {
	if opts.Namer == nil {
		opts.Namer = identity{}
	}
	n := &normalizer{ir: m, opts: opts}

	n.index()
	n.collapseAliases()
	n.resolve()
	n.checkCollisions()
	n.checkRecursion()
	if err := n.errs.Err(); err != nil {
		return nil, errors.WithUnit(err, m.Unit)
	}

	order(m)

	if fp, err := ir.FingerprintIR(m); err == nil {
		logger.Named("normalize").Debugw("Normalized unit",
			"unit", m.Unit,
			"types", len(m.Types),
			"signatures", len(m.Signatures),
			"imports", len(m.Imports),
			"fingerprint", fp)
	}
	return m, nil
}

type normalizer struct {
	ir   *ir.IR
	opts Options
	errs errors.List

	decls    map[string]*ir.TypeDecl
	resolved map[string]ir.TypeRef // alias ID → concrete target
	cyclic   map[string]bool
}

func (n *normalizer) fail(kind error, decl string, origin ir.Origin, format string, args ...interface{}) *errors.GenError {
	ge := &errors.GenError{Kind: kind, Decl: decl, Origin: origin, Msg: fmt.Sprintf(format, args...)}
	n.errs = append(n.errs, ge)
	return ge
}

// index maps IDs to declarations. A repeated ID keeps the first declaration.
func (n *normalizer) index() {
	n.decls = make(map[string]*ir.TypeDecl, len(n.ir.Types))
	for i := range n.ir.Types {
		d := &n.ir.Types[i]
		if first, dup := n.decls[d.ID]; dup {
			n.fail(errors.ErrNameCollision, d.Name, d.Origin, "%s is declared twice; first at %s", d.ID, first.Origin)
			continue
		}
		n.decls[d.ID] = d
	}
}

// collapseAliases resolves every alias to a TypeRef that names no alias,
// then substitutes that target at every use site.
func (n *normalizer) collapseAliases() {
	n.resolved = make(map[string]ir.TypeRef)
	n.cyclic = make(map[string]bool)
	for i := range n.ir.Types {
		d := &n.ir.Types[i]
		if d.Kind != ir.KindAlias || d.Target == nil {
			continue
		}
		if target, ok := n.resolveAlias(d.ID, nil); ok {
			d.Target = &target
		}
	}

	for i := range n.ir.Types {
		d := &n.ir.Types[i]
		if d.Kind == ir.KindAlias {
			continue
		}
		for _, ref := range d.Refs() {
			*ref = n.substitute(*ref)
		}
	}
	for i := range n.ir.Signatures {
		for _, ref := range n.ir.Signatures[i].Refs() {
			*ref = n.substitute(*ref)
		}
	}
}

func (n *normalizer) resolveAlias(id string, chain []string) (ir.TypeRef, bool) {
	if target, ok := n.resolved[id]; ok {
		return target, true
	}
	if n.cyclic[id] {
		return ir.TypeRef{}, false
	}
	for i, seen := range chain {
		if seen == id {
			cycle := append(append([]string{}, chain[i:]...), id)
			for _, member := range cycle {
				n.cyclic[member] = true
			}
			d := n.decls[id]
			n.fail(errors.ErrAliasCycle, d.Name, d.Origin, "%s", strings.Join(cycle, " → "))
			return ir.TypeRef{}, false
		}
	}
	d := n.decls[id]
	chain = append(chain, id)

	ok := true
	var rewrite func(r ir.TypeRef) ir.TypeRef
	rewrite = func(r ir.TypeRef) ir.TypeRef {
		switch r.Kind {
		case ir.RefNamed:
			if next, found := n.decls[r.Ref]; found && next.Kind == ir.KindAlias && next.Target != nil {
				resolved, rok := n.resolveAlias(r.Ref, chain)
				if !rok {
					ok = false
					return r
				}
				return resolved.Clone()
			}
			return r
		case ir.RefOptional, ir.RefSequence:
			elem := rewrite(*r.Elem)
			if r.Kind == ir.RefOptional && elem.Kind == ir.RefOptional {
				return elem
			}
			return ir.TypeRef{Kind: r.Kind, Elem: &elem}
		case ir.RefMap:
			return ir.Map(rewrite(*r.Key), rewrite(*r.Value))
		default:
			return r
		}
	}
	target := rewrite(d.Target.Clone())
	if !ok {
		return ir.TypeRef{}, false
	}
	n.resolved[id] = target
	return target, true
}

// substitute replaces references to aliases with their resolved targets.
func (n *normalizer) substitute(r ir.TypeRef) ir.TypeRef {
	switch r.Kind {
	case ir.RefNamed:
		if target, ok := n.resolved[r.Ref]; ok {
			return target.Clone()
		}
		return r
	case ir.RefOptional, ir.RefSequence:
		elem := n.substitute(*r.Elem)
		if r.Kind == ir.RefOptional && elem.Kind == ir.RefOptional {
			return elem
		}
		return ir.TypeRef{Kind: r.Kind, Elem: &elem}
	case ir.RefMap:
		return ir.Map(n.substitute(*r.Key), n.substitute(*r.Value))
	default:
		return r
	}
}

// resolve checks that every named reference lands on a declaration of this
// unit or of another unit, recording the latter as imports.
func (n *normalizer) resolve() {
	imports := make(map[string]ir.Import)
	check := func(decl string, origin ir.Origin, ref *ir.TypeRef) {
		ref.Walk(func(r *ir.TypeRef) bool {
			if r.Kind != ir.RefNamed {
				return true
			}
			if _, ok := n.decls[r.Ref]; ok {
				return true
			}
			if owner, ok := n.opts.Owners[r.Ref]; ok && owner != n.ir.Unit {
				_, name := ir.SplitID(r.Ref)
				imports[r.Ref] = ir.Import{Unit: owner, ID: r.Ref, Name: name}
				return true
			}
			n.fail(errors.ErrUnresolvedReference, decl, origin, "references %s, which no unit declares", r.Ref)
			return true
		})
	}

	for i := range n.ir.Types {
		d := &n.ir.Types[i]
		for _, ref := range d.Refs() {
			check(d.Name, d.Origin, ref)
		}
	}
	for i := range n.ir.Signatures {
		s := &n.ir.Signatures[i]
		for _, ref := range s.Refs() {
			check(s.Name, s.Origin, ref)
		}
	}

	n.ir.Imports = n.ir.Imports[:0]
	for _, imp := range imports {
		n.ir.Imports = append(n.ir.Imports, imp)
	}
	if len(n.ir.Imports) == 0 {
		n.ir.Imports = nil
	}
}

// checkRecursion rejects cycles of by-value containment. References through
// optional, sequence or map are indirections and may recurse freely.
func (n *normalizer) checkRecursion() {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(n.decls))
	var stack []string
	reported := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		state[id] = visiting
		stack = append(stack, id)
		for _, next := range n.byValue(n.decls[id]) {
			switch state[next] {
			case unvisited:
				visit(next)
			case visiting:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
					}
				}
				cycle := append(append([]string{}, stack[start:]...), next)
				if !reported[next] {
					reported[next] = true
					d := n.decls[next]
					n.fail(errors.ErrUnsupportedConstruct, d.Name, d.Origin,
						"contains itself by value (%s); break the cycle with a pointer, slice or map", strings.Join(cycle, " → "))
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
	}

	for i := range n.ir.Types {
		if id := n.ir.Types[i].ID; state[id] == unvisited {
			visit(id)
		}
	}
}

// byValue lists the declarations d embeds directly.
func (n *normalizer) byValue(d *ir.TypeDecl) []string {
	var out []string
	add := func(r *ir.TypeRef) {
		if r == nil || r.Kind != ir.RefNamed {
			return
		}
		if target, ok := n.decls[r.Ref]; ok && target.Kind != ir.KindEnum {
			out = append(out, r.Ref)
		}
	}
	switch d.Kind {
	case ir.KindStruct:
		for i := range d.Fields {
			if !d.Fields[i].Optional {
				add(&d.Fields[i].Type)
			}
		}
	case ir.KindAlias, ir.KindWrapper:
		add(d.Target)
	}
	return out
}

// order sorts declarations by origin so output does not depend on
// extraction order. Fields and variants keep their source order.
func order(m *ir.IR) {
	sort.SliceStable(m.Types, func(i, j int) bool {
		return before(m.Types[i].Origin, m.Types[i].ID, m.Types[j].Origin, m.Types[j].ID)
	})
	sort.SliceStable(m.Signatures, func(i, j int) bool {
		return before(m.Signatures[i].Origin, m.Signatures[i].ID, m.Signatures[j].Origin, m.Signatures[j].ID)
	})
	sort.SliceStable(m.Imports, func(i, j int) bool {
		if m.Imports[i].Unit != m.Imports[j].Unit {
			return m.Imports[i].Unit < m.Imports[j].Unit
		}
		return m.Imports[i].ID < m.Imports[j].ID
	})
}

func before(a ir.Origin, aID string, b ir.Origin, bID string) bool {
	switch {
	case a.Package != b.Package:
		return a.Package < b.Package
	case a.File != b.File:
		return a.File < b.File
	case a.Line != b.Line:
		return a.Line < b.Line
	case a.Column != b.Column:
		return a.Column < b.Column
	default:
		return aID < bID
	}
}
