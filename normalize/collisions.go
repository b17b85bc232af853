package normalize

import (
	"golang.org/x/text/unicode/norm"

	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
)

type claim struct {
	id     string
	origin ir.Origin
}

// namespace tracks which declaration owns each rendered identifier.
// Identifiers compare in Unicode NFC so visually identical names collide.
type namespace struct {
	kind  string
	owner map[string]claim
}

func newNamespace(kind string) *namespace {
	return &namespace{kind: kind, owner: make(map[string]claim)}
}

func (ns *namespace) claim(n *normalizer, ident, id string, origin ir.Origin) {
	key := norm.NFC.String(ident)
	first, taken := ns.owner[key]
	if !taken {
		ns.owner[key] = claim{id: id, origin: origin}
		return
	}
	if first.id == id {
		return
	}
	n.fail(errors.ErrNameCollision, ident, origin,
		"%s identifier %q of %s is also used by %s (%s)", ns.kind, key, id, first.id, first.origin)
}

// checkCollisions enforces unique identifiers in the type namespace
// (declarations and imports) and the value namespace (enum objects and
// bindings), plus unique members within each declaration.
func (n *normalizer) checkCollisions() {
	types := newNamespace("type")
	values := newNamespace("value")
	namer := n.opts.Namer

	for _, imp := range n.ir.Imports {
		pkg, _ := ir.SplitID(imp.ID)
		types.claim(n, namer.TypeIdent(imp.Name), imp.ID, ir.Origin{Package: pkg})
	}
	for i := range n.ir.Types {
		d := &n.ir.Types[i]
		types.claim(n, namer.TypeIdent(d.Name), d.ID, d.Origin)
		if d.Kind == ir.KindEnum && !d.IsUnion() {
			values.claim(n, namer.TypeIdent(d.Name), d.ID, d.Origin)
		}
		n.checkMembers(d)
	}
	for i := range n.ir.Signatures {
		s := &n.ir.Signatures[i]
		values.claim(n, namer.ValueIdent(s.Name), s.ID, s.Origin)

		params := newNamespace("parameter")
		for _, p := range s.Params {
			params.claim(n, namer.ValueIdent(p.Name), s.ID+"("+p.Name+")", s.Origin)
		}
	}
}

func (n *normalizer) checkMembers(d *ir.TypeDecl) {
	fields := newNamespace("field")
	for _, f := range d.Fields {
		fields.claim(n, f.WireName(), d.ID+"."+f.Name, d.Origin)
	}
	variants := newNamespace("variant")
	for _, v := range d.Variants {
		variants.claim(n, v.Name, d.ID+"."+v.Name, d.Origin)
	}
}
