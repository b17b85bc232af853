package typescript

import (
	stderrors "errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/bridgegen/emit"
	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
)

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func ref(r ir.TypeRef) *ir.TypeRef { return &r }

func field(name, wire string, t ir.TypeRef) ir.Field {
	return ir.Field{Name: name, JSONName: wire, Type: t}
}

// body returns the emitted artifact at path with its marker stripped.
func body(t *testing.T, artifacts []emit.Artifact, path string) string {
	t.Helper()
	for _, a := range artifacts {
		if a.Path == path {
			m, b, ok := emit.ParseMarker(a.Content)
			require.True(t, ok, "%s has no marker", path)
			assert.Equal(t, emit.StateGenerated, m.State)
			assert.Equal(t, a.Fingerprint, m.Fingerprint)
			return string(b)
		}
	}
	t.Fatalf("no artifact %s", path)
	return ""
}

func paths(artifacts []emit.Artifact) []string {
	var out []string
	for _, a := range artifacts {
		out = append(out, a.Path)
	}
	return out
}

func geomIR() *ir.IR {
	return &ir.IR{
		Unit:    "geom",
		Package: "example.com/app/geom",
		Types: []ir.TypeDecl{{
			ID:   "example.com/app/geom.Point",
			Name: "Point",
			Kind: ir.KindStruct,
			Fields: []ir.Field{
				field("X", "x", ir.Prim(ir.Int)),
				field("Y", "y", ir.Prim(ir.Int)),
			},
		}},
		Signatures: []ir.SignatureDecl{{
			ID:   "example.com/app/geom.Distance",
			Name: "Distance",
			Params: []ir.Param{
				{Name: "a", Type: ir.Named("example.com/app/geom.Point")},
				{Name: "b", Type: ir.Named("example.com/app/geom.Point")},
			},
			Result: ref(ir.Prim(ir.Float)),
			Doc:    "Distance returns the euclidean distance between a and b.\n",
		}},
	}
}

func TestEmitPointAndDistance(t *testing.T) {
	artifacts, err := NewGenerator().Emit([]*ir.IR{geomIR()}, emit.Options{Version: "1.0.0", Bindings: true, Index: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"geom.ts", "index.ts", "runtime.ts"}, paths(artifacts))
	assert.Equal(t, "geom", artifacts[0].Unit)
	assert.Equal(t, emit.RuntimeUnit, artifacts[2].Unit)

	g := golden(t)
	g.Assert(t, "point_distance", []byte(body(t, artifacts, "geom.ts")))
	g.Assert(t, "runtime", []byte(body(t, artifacts, "runtime.ts")))
}

func TestEmitWithoutBindings(t *testing.T) {
	artifacts, err := NewGenerator().Emit([]*ir.IR{geomIR()}, emit.Options{Version: "1.0.0"})
	require.NoError(t, err)

	assert.Equal(t, []string{"geom.ts"}, paths(artifacts))
	geom := body(t, artifacts, "geom.ts")
	assert.NotContains(t, geom, "invoke")
	assert.NotContains(t, geom, "distance")
}

func kitchenIR() *ir.IR {
	const pkg = "example.com/app/kitchen."
	named := func(name string) ir.TypeRef { return ir.Named(pkg + name) }
	nick := field("Nick", "nick", ir.Prim(ir.String))
	nick.Optional = true
	nick.Doc = "Nick is shown when set."

	return &ir.IR{
		Unit: "kitchen",
		Types: []ir.TypeDecl{
			{
				ID: pkg + "Color", Name: "Color", Kind: ir.KindEnum, Target: ref(ir.Prim(ir.String)),
				Variants: []ir.Variant{{Name: "Red", Value: "red"}, {Name: "Green", Value: "green"}},
				Doc:      "Color is a paint colour.\n",
			},
			{
				ID: pkg + "Level", Name: "Level", Kind: ir.KindEnum, Target: ref(ir.Prim(ir.Int)),
				Variants: []ir.Variant{{Name: "Low", Value: "1"}, {Name: "High", Value: "2"}},
			},
			{
				ID: pkg + "Shape", Name: "Shape", Kind: ir.KindEnum,
				Variants: []ir.Variant{
					{Name: "Circle", Payload: ref(named("Circle"))},
					{Name: "Square", Payload: ref(named("Square"))},
				},
			},
			{ID: pkg + "Circle", Name: "Circle", Kind: ir.KindStruct, Fields: []ir.Field{field("R", "r", ir.Prim(ir.Float))}},
			{ID: pkg + "Square", Name: "Square", Kind: ir.KindStruct, Fields: []ir.Field{field("Side", "side", ir.Prim(ir.Float))}},
			{ID: pkg + "UserID", Name: "UserID", Kind: ir.KindWrapper, Target: ref(ir.Prim(ir.String))},
			{ID: pkg + "Tags", Name: "Tags", Kind: ir.KindWrapper, Target: ref(ir.Sequence(ir.Prim(ir.String)))},
			{ID: pkg + "Moment", Name: "Moment", Kind: ir.KindAlias, Target: ref(ir.Prim(ir.Time))},
			{ID: pkg + "Nothing", Name: "Nothing", Kind: ir.KindStruct},
			{
				ID: pkg + "Everything", Name: "Everything", Kind: ir.KindStruct,
				Doc: "Everything touches each mapping.\n\nIt is not a real type.\n",
				Fields: []ir.Field{
					field("Name", "name", ir.Prim(ir.String)),
					field("Active", "active", ir.Prim(ir.Bool)),
					field("Count", "count", ir.Prim(ir.Int)),
					field("Ratio", "ratio", ir.Prim(ir.Float)),
					field("Blob", "blob", ir.Prim(ir.Bytes)),
					field("At", "at", ir.Prim(ir.Time)),
					field("Extra", "extra", ir.Prim(ir.Unknown)),
					field("Parent", "parent", ir.Optional(named("Everything"))),
					nick,
					field("Scores", "scores", ir.Sequence(ir.Prim(ir.Float))),
					field("Maybe", "maybe", ir.Sequence(ir.Optional(ir.Prim(ir.Int)))),
					field("Labels", "labels", ir.Map(ir.Prim(ir.String), ir.Prim(ir.String))),
					field("ByLevel", "by_level", ir.Map(ir.Prim(ir.Int), ir.Prim(ir.String))),
					field("ByColor", "by_color", ir.Map(named("Color"), ir.Prim(ir.Int))),
					field("Owner", "owner", named("UserID")),
					field("Shape", "shape", named("Shape")),
					field("ContentType", "content-type", ir.Prim(ir.String)),
				},
			},
		},
	}
}

func TestEmitMappingTable(t *testing.T) {
	artifacts, err := NewGenerator().Emit([]*ir.IR{kitchenIR()}, emit.Options{Version: "1.0.0"})
	require.NoError(t, err)
	golden(t).Assert(t, "mapping", []byte(body(t, artifacts, "kitchen.ts")))
}

func TestTableCoversEveryPrimitive(t *testing.T) {
	rows := make(map[string]string)
	for _, m := range Table {
		rows[m.IR] = m.TypeScript
	}
	for _, p := range ir.Primitives {
		ts, ok := primitives[p]
		require.True(t, ok, "primitive %s has no mapping", p)
		assert.Equal(t, ts, rows[string(p)], "table row for %s", p)
	}
}

// crossUnitIRs is a types unit and an api unit importing from it.
func crossUnitIRs() []*ir.IR {
	types := &ir.IR{
		Unit:  "types",
		Types: []ir.TypeDecl{{ID: "example.com/types.Point", Name: "Point", Kind: ir.KindStruct}},
	}
	api := &ir.IR{
		Unit: "api",
		Types: []ir.TypeDecl{{
			ID: "example.com/api.Route", Name: "Route", Kind: ir.KindStruct,
			Fields: []ir.Field{field("From", "from", ir.Named("example.com/types.Point"))},
		}},
		Signatures: []ir.SignatureDecl{
			{ID: "example.com/api.Locate", Name: "Locate", Result: ref(ir.Named("example.com/types.Point"))},
			{ID: "example.com/api.Reset", Name: "Reset", Params: []ir.Param{{Name: "delete", Type: ir.Prim(ir.Bool)}}},
		},
		Imports: []ir.Import{{Unit: "types", ID: "example.com/types.Point", Name: "Point"}},
	}
	return []*ir.IR{types, api}
}

func TestEmitAsyncBindingsAndImports(t *testing.T) {
	artifacts, err := NewGenerator().Emit(crossUnitIRs(), emit.Options{Version: "1.0.0", Bindings: true, Async: true, Index: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"api.ts", "index.ts", "runtime.ts", "types.ts"}, paths(artifacts))

	apiTS := body(t, artifacts, "api.ts")
	assert.Contains(t, apiTS, "import type { Point } from './types';\nimport { invoke } from './runtime';\n")
	assert.Contains(t, apiTS, "export function locate(): Promise<Point> {\n  return invoke<Point>('api.Locate');\n}\n")
	assert.Contains(t, apiTS, "export function reset(delete_: boolean): Promise<void> {\n  return invoke<void>('api.Reset', delete_);\n}\n")

	g := golden(t)
	g.Assert(t, "index", []byte(body(t, artifacts, "index.ts")))
	g.Assert(t, "runtime_async", []byte(body(t, artifacts, "runtime.ts")))
}

func TestEmitEmptyUnit(t *testing.T) {
	artifacts, err := NewGenerator().Emit([]*ir.IR{{Unit: "empty"}}, emit.Options{Version: "1.0.0", Bindings: true, Index: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"empty.ts", "index.ts"}, paths(artifacts))
	assert.Equal(t, "/* eslint-disable */\n\nexport {};\n", body(t, artifacts, "empty.ts"))
	assert.Equal(t, "/* eslint-disable */\n\nexport {};\n", body(t, artifacts, "index.ts"))
}

func TestEmitUnionWithBareTags(t *testing.T) {
	circle := ir.TypeDecl{
		ID: "example.com/app/shapes.Circle", Name: "Circle", Kind: ir.KindStruct,
		Fields: []ir.Field{field("R", "r", ir.Prim(ir.Float))},
	}
	payload := ir.Named(circle.ID)

	tests := []struct {
		name     string
		variants []ir.Variant
		want     string
	}{
		{
			name:     "payload first",
			variants: []ir.Variant{{Name: "Circle", Payload: &payload}, {Name: "Empty"}},
			want:     "export type Shape =\n  | { kind: 'Circle'; value: Circle }\n  | { kind: 'Empty' };\n",
		},
		{
			name:     "bare tag first",
			variants: []ir.Variant{{Name: "Empty"}, {Name: "Circle", Payload: &payload}},
			want:     "export type Shape =\n  | { kind: 'Empty' }\n  | { kind: 'Circle'; value: Circle };\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ir.IR{
				Unit:    "shapes",
				Package: "example.com/app/shapes",
				Types: []ir.TypeDecl{
					{ID: "example.com/app/shapes.Shape", Name: "Shape", Kind: ir.KindEnum, Variants: tt.variants},
					circle,
				},
			}
			artifacts, err := NewGenerator().Emit([]*ir.IR{m}, emit.Options{Version: "1.0.0", Index: true})
			require.NoError(t, err)
			shapes := body(t, artifacts, "shapes.ts")
			assert.Contains(t, shapes, tt.want)
			assert.NotContains(t, shapes, "as const")
			assert.Contains(t, body(t, artifacts, "index.ts"), "export type { Circle, Shape } from './shapes';")
		})
	}
}

func TestEmitIndexCollision(t *testing.T) {
	a := &ir.IR{Unit: "a", Types: []ir.TypeDecl{{ID: "a.Point", Name: "Point", Kind: ir.KindStruct}}}
	b := &ir.IR{Unit: "b", Types: []ir.TypeDecl{{ID: "b.Point", Name: "Point", Kind: ir.KindStruct}}}

	artifacts, err := NewGenerator().Emit([]*ir.IR{a, b}, emit.Options{Version: "1.0.0", Index: true})
	require.Error(t, err)
	assert.Nil(t, artifacts)
	assert.True(t, stderrors.Is(err, errors.ErrNameCollision))
	assert.Contains(t, err.Error(), `identifier "Point" is exported by both a and b`)

	_, err = NewGenerator().Emit([]*ir.IR{a, b}, emit.Options{Version: "1.0.0"})
	assert.NoError(t, err, "without the barrel each unit is its own module")
}

func TestEmitDeterministic(t *testing.T) {
	opts := emit.Options{Version: "1.0.0", Bindings: true, Index: true}
	first, err := NewGenerator().Emit([]*ir.IR{kitchenIR(), geomIR()}, opts)
	require.NoError(t, err)
	second, err := NewGenerator().Emit([]*ir.IR{geomIR(), kitchenIR()}, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIdents(t *testing.T) {
	values := map[string]string{
		"Distance": "distance",
		"HTTPGet":  "httpGet",
		"ID":       "id",
		"HTTP2Get": "http2Get",
		"a":        "a",
		"Delete":   "delete_",
		"Invoke":   "invoke_",
		"my-arg":   "my_arg",
		"2d":       "_2d",
	}
	for in, want := range values {
		assert.Equal(t, want, ValueIdent(in), "ValueIdent(%q)", in)
	}

	types := map[string]string{
		"Point":   "Point",
		"Record":  "Record_",
		"Promise": "Promise_",
		"string":  "string_",
		"my.type": "my_type",
	}
	for in, want := range types {
		assert.Equal(t, want, TypeIdent(in), "TypeIdent(%q)", in)
	}

	assert.Equal(t, "x", propertyKey("x"))
	assert.Equal(t, "'content-type'", propertyKey("content-type"))
	assert.Equal(t, `'it\'s'`, quote("it's"))
}
