// Package emit defines what a target emitter produces and the marker every
// generated file starts with.
//
// Emitters are pure: they turn normalized IR into in-memory artifacts and
// never touch the output directory. Writing, and deciding whether writing
// is safe, belongs to the drift package.
package emit

import (
	"github.com/teranos/bridgegen/ir"
)

// Units of the shared artifacts. Configured units may not use these names.
const (
	RuntimeUnit = "runtime"
	IndexUnit   = "index"
)

// Artifact is one generated file.
type Artifact struct {
	Unit        string // owning unit, or RuntimeUnit / IndexUnit for shared files
	Path        string // slash-separated, relative to the output directory
	Content     []byte // marker header followed by the body
	Fingerprint string // fingerprint of the body, as recorded in the marker
}

// Options shape what an emitter produces for a run.
type Options struct {
	Version  string // generator version recorded in markers
	Bindings bool   // emit call-site bindings for signatures
	Async    bool   // bindings return promises
	Index    bool   // emit a barrel export for all units
}

// Emitter renders normalized IR for one target language.
type Emitter interface {
	// Language returns the target language name (e.g. "typescript")
	Language() string

	// FileExtension returns the artifact extension without the dot (e.g. "ts")
	FileExtension() string

	// TypeIdent and ValueIdent render IR names as target identifiers. The
	// normalizer checks collisions with them.
	TypeIdent(name string) string
	ValueIdent(name string) string

	// Emit renders every unit of a run. The units must be normalized.
	Emit(units []*ir.IR, opts Options) ([]Artifact, error)
}

// Seal prefixes body with the marker header and returns the finished artifact.
func Seal(unit, path, version string, body []byte) Artifact {
	m := Marker{
		Version:     version,
		Unit:        unit,
		State:       StateGenerated,
		Fingerprint: BodyFingerprint(body),
	}
	header := m.Render()
	content := make([]byte, 0, len(header)+len(body))
	content = append(content, header...)
	content = append(content, body...)
	return Artifact{Unit: unit, Path: path, Content: content, Fingerprint: m.Fingerprint}
}

// BodyFingerprint is the fingerprint recorded in a marker for body.
func BodyFingerprint(body []byte) string {
	return ir.Fingerprint(ir.DomainArtifact, body)
}
