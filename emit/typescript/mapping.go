package typescript

import "github.com/teranos/bridgegen/ir"

// Mapping is one row of the IR → TypeScript table.
type Mapping struct {
	IR         string // IR construct
	TypeScript string // rendered form; T, K, V stand for rendered operands
	Note       string // what the backend must produce on the wire, when encoding/json alone does not
}

// Table documents every mapping the emitter applies. Go types reach it
// through the extractor; config mapping overrides substitute a primitive
// before the table is consulted.
var Table = []Mapping{
	{IR: "string", TypeScript: "string"},
	{IR: "bool", TypeScript: "boolean"},
	{IR: "int", TypeScript: "number"},
	{IR: "float", TypeScript: "number"},
	{IR: "bytes", TypeScript: "string"},
	{IR: "time", TypeScript: "string"},
	{IR: "unknown", TypeScript: "unknown"},
	{IR: "optional<T>", TypeScript: "T | null"},
	{IR: "sequence<T>", TypeScript: "T[]"},
	{IR: "map<K, V>", TypeScript: "Record<K, V>"},
	{IR: "map<E, V> (E a value enum)", TypeScript: "Partial<Record<E, V>>"},
	{IR: "optional field", TypeScript: "name?: T"},
	{IR: "struct", TypeScript: "export interface X { ... }"},
	{IR: "value enum", TypeScript: "export const X = { ... } as const; export type X = 'a' | 'b'"},
	{IR: "tagged union", TypeScript: "export type X = | { kind: 'V'; value: V } | { kind: 'W' } | ...",
		Note: "encoding/json writes a sealed interface as the bare struct; the backend needs a MarshalJSON producing {kind, value}"},
	{IR: "alias", TypeScript: "export type X = T"},
	{IR: "primitive-wrapper", TypeScript: "export type X = T"},
	{IR: "signature", TypeScript: "export function name(params): R"},
	{IR: "async signature", TypeScript: "export function name(params): Promise<R>"},
}

// primitives is the primitive half of Table.
var primitives = map[ir.Primitive]string{
	ir.String:  "string",
	ir.Bool:    "boolean",
	ir.Int:     "number",
	ir.Float:   "number",
	ir.Bytes:   "string",
	ir.Time:    "string",
	ir.Unknown: "unknown",
}
