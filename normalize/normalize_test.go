package normalize

import (
	stderrors "errors"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
)

func at(file string, line int) ir.Origin {
	return ir.Origin{Package: "geom", File: file, Line: line, Column: 6}
}

func ref(r ir.TypeRef) *ir.TypeRef { return &r }

func structDecl(name string, origin ir.Origin, fields ...ir.Field) ir.TypeDecl {
	return ir.TypeDecl{ID: "geom." + name, Name: name, Kind: ir.KindStruct, Fields: fields, Origin: origin}
}

func aliasDecl(name string, origin ir.Origin, target ir.TypeRef) ir.TypeDecl {
	return ir.TypeDecl{ID: "geom." + name, Name: name, Kind: ir.KindAlias, Target: &target, Origin: origin}
}

func field(name string, t ir.TypeRef) ir.Field {
	return ir.Field{Name: name, JSONName: strings.ToLower(name), Type: t}
}

// camel mimics a target that renders values in lowerCamelCase.
type camel struct{}

func (camel) TypeIdent(name string) string { return name }
func (camel) ValueIdent(name string) string {
	r := []rune(name)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func TestNormalizeCollapsesAliasChains(t *testing.T) {
	m := &ir.IR{
		Unit: "geom",
		Types: []ir.TypeDecl{
			aliasDecl("A", at("a.go", 1), ir.Named("geom.B")),
			aliasDecl("B", at("a.go", 2), ir.Named("geom.Point")),
			aliasDecl("MaybePoint", at("a.go", 3), ir.Optional(ir.Named("geom.A"))),
			structDecl("Point", at("a.go", 4), field("X", ir.Prim(ir.Int))),
			structDecl("Route", at("a.go", 5),
				field("From", ir.Named("geom.A")),
				field("Via", ir.Sequence(ir.Named("geom.B"))),
				field("Next", ir.Optional(ir.Named("geom.MaybePoint")))),
		},
		Signatures: []ir.SignatureDecl{{
			ID:     "geom.Origin",
			Name:   "Origin",
			Result: ref(ir.Named("geom.A")),
			Origin: at("a.go", 9),
		}},
	}

	out, err := Normalize(m, Options{})
	require.NoError(t, err)

	point := ir.Named("geom.Point")
	a, _ := out.Type("geom.A")
	assert.Equal(t, point, *a.Target)
	maybe, _ := out.Type("geom.MaybePoint")
	assert.Equal(t, ir.Optional(point), *maybe.Target)

	route, _ := out.Type("geom.Route")
	assert.Equal(t, point, route.Fields[0].Type)
	assert.Equal(t, ir.Sequence(point), route.Fields[1].Type)
	assert.Equal(t, ir.Optional(point), route.Fields[2].Type, "optional of optional flattens")
	assert.Equal(t, point, *out.Signatures[0].Result)
	assert.Empty(t, out.Imports)
}

func TestNormalizeAliasCycle(t *testing.T) {
	m := &ir.IR{
		Unit: "geom",
		Types: []ir.TypeDecl{
			aliasDecl("A", at("a.go", 1), ir.Named("geom.B")),
			aliasDecl("B", at("a.go", 2), ir.Sequence(ir.Named("geom.A"))),
		},
	}

	out, err := Normalize(m, Options{})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, stderrors.Is(err, errors.ErrAliasCycle))
	assert.Contains(t, err.Error(), "geom.A → geom.B → geom.A")

	var ge *errors.GenError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "geom", ge.Unit)
	_, isList := err.(errors.List)
	assert.False(t, isList, "one cycle is reported once")
}

func TestNormalizeUnresolvedReference(t *testing.T) {
	m := &ir.IR{
		Unit: "geom",
		Types: []ir.TypeDecl{
			structDecl("Route", at("a.go", 1), field("From", ir.Map(ir.Prim(ir.String), ir.Named("geom.Missing")))),
		},
	}

	_, err := Normalize(m, Options{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnresolvedReference))
	assert.Contains(t, err.Error(), "Route")
	assert.Contains(t, err.Error(), "geom.Missing")
}

func TestNormalizeRecordsCrossUnitImports(t *testing.T) {
	owners := Ownership{}
	owners.Add(&ir.IR{Unit: "types", Types: []ir.TypeDecl{{ID: "example.com/types.Point", Name: "Point"}}})

	m := &ir.IR{
		Unit: "api",
		Types: []ir.TypeDecl{
			structDecl("Route", at("a.go", 1),
				field("From", ir.Named("example.com/types.Point")),
				field("To", ir.Optional(ir.Named("example.com/types.Point")))),
		},
	}
	owners.Add(m)

	out, err := Normalize(m, Options{Owners: owners})
	require.NoError(t, err)
	assert.Equal(t, []ir.Import{{Unit: "types", ID: "example.com/types.Point", Name: "Point"}}, out.Imports)
}

func TestNormalizeNameCollision(t *testing.T) {
	tests := []struct {
		name string
		ir   *ir.IR
		msg  string
	}{
		{
			name: "same name from two packages",
			ir: &ir.IR{Unit: "geom", Types: []ir.TypeDecl{
				{ID: "a.Point", Name: "Point", Kind: ir.KindStruct, Origin: ir.Origin{Package: "a", File: "a/p.go", Line: 3}},
				{ID: "b.Point", Name: "Point", Kind: ir.KindStruct, Origin: ir.Origin{Package: "b", File: "b/p.go", Line: 7}},
			}},
			msg: "a/p.go:3",
		},
		{
			name: "NFC equivalent names",
			ir: &ir.IR{Unit: "geom", Types: []ir.TypeDecl{
				{ID: "geom.Caf\u00e9", Name: "Caf\u00e9", Kind: ir.KindStruct},
				{ID: "geom.Cafe\u0301", Name: "Cafe\u0301", Kind: ir.KindStruct},
			}},
			msg: "geom.Caf\u00e9",
		},
		{
			name: "import shadowed by local declaration",
			ir: &ir.IR{Unit: "api", Types: []ir.TypeDecl{
				{ID: "api.Point", Name: "Point", Kind: ir.KindStruct},
				{ID: "api.Route", Name: "Route", Kind: ir.KindStruct, Fields: []ir.Field{field("From", ir.Named("types.Point"))}},
			}},
			msg: "types.Point",
		},
		{
			name: "bindings rendered alike",
			ir: &ir.IR{Unit: "geom", Signatures: []ir.SignatureDecl{
				{ID: "geom.Ping", Name: "Ping"},
				{ID: "geom.ping", Name: "ping"},
			}},
			msg: `value identifier "ping"`,
		},
		{
			name: "duplicate wire names",
			ir: &ir.IR{Unit: "geom", Types: []ir.TypeDecl{
				structDecl("Point", at("a.go", 1),
					ir.Field{Name: "X", JSONName: "x", Type: ir.Prim(ir.Int)},
					ir.Field{Name: "Y", JSONName: "x", Type: ir.Prim(ir.Int)}),
			}},
			msg: `field identifier "x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owners := Ownership{"types.Point": "types"}
			_, err := Normalize(tt.ir, Options{Owners: owners, Namer: camel{}})
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrNameCollision), "got %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNormalizeEnumObjectAndTypeShareName(t *testing.T) {
	m := &ir.IR{Unit: "paint", Types: []ir.TypeDecl{{
		ID:       "paint.Color",
		Name:     "Color",
		Kind:     ir.KindEnum,
		Target:   ref(ir.Prim(ir.String)),
		Variants: []ir.Variant{{Name: "Red", Value: "red"}},
	}}}
	_, err := Normalize(m, Options{Namer: camel{}})
	assert.NoError(t, err)
}

func TestNormalizeByValueRecursion(t *testing.T) {
	m := &ir.IR{
		Unit: "geom",
		Types: []ir.TypeDecl{
			structDecl("A", at("a.go", 1), field("B", ir.Named("geom.B"))),
			structDecl("B", at("a.go", 2), field("A", ir.Named("geom.A"))),
			structDecl("Node", at("a.go", 3),
				field("Next", ir.Optional(ir.Named("geom.Node"))),
				field("Children", ir.Sequence(ir.Named("geom.Node")))),
		},
	}

	_, err := Normalize(m, Options{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedConstruct))
	assert.Contains(t, err.Error(), "geom.A → geom.B → geom.A")
	assert.NotContains(t, err.Error(), "Node")
}

func TestNormalizeStableOrder(t *testing.T) {
	build := func() *ir.IR {
		return &ir.IR{
			Unit: "geom",
			Types: []ir.TypeDecl{
				structDecl("Zeta", at("b.go", 1)),
				structDecl("Beta", at("a.go", 9)),
				structDecl("Alpha", at("a.go", 9)),
				structDecl("Gamma", at("a.go", 2),
					field("Z", ir.Prim(ir.Int)),
					field("A", ir.Prim(ir.Int))),
			},
			Signatures: []ir.SignatureDecl{
				{ID: "geom.Later", Name: "Later", Origin: at("b.go", 5)},
				{ID: "geom.Sooner", Name: "Sooner", Origin: at("a.go", 1)},
			},
		}
	}

	out, err := Normalize(build(), Options{})
	require.NoError(t, err)

	var names []string
	for _, d := range out.Types {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Gamma", "Alpha", "Beta", "Zeta"}, names, "origin then ID")
	assert.Equal(t, "Z", out.Types[0].Fields[0].Name, "fields keep source order")
	assert.Equal(t, "Sooner", out.Signatures[0].Name)

	again, err := Normalize(build(), Options{})
	require.NoError(t, err)
	a, err := ir.FingerprintIR(out)
	require.NoError(t, err)
	b, err := ir.FingerprintIR(again)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
