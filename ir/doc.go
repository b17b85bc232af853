// Package ir is the language-independent model of a generation unit:
// named type declarations, the type references between them, and the
// callable signatures that become frontend bindings.
//
// An IR is produced by package extract, canonicalized by package normalize
// and rendered by package emit. A single IR is owned by one pipeline run and
// is never shared between goroutines.
//
// Invariants after normalization:
//   - every TypeDecl ID is unique and every named TypeRef resolves to a
//     TypeDecl in the IR or to an Import owned by another unit
//   - Types are ordered by origin; fields and variants keep source order
//   - no alias references another alias
package ir
