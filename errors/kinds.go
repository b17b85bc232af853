package errors

import (
	"fmt"
	"strings"
)

// Generator error kinds. Every error produced by a generation stage wraps
// exactly one of these; test with errors.Is.
var (
	// ErrExtractionFailure: the backend does not load, parse or type-check.
	ErrExtractionFailure = New("extraction failure")

	// ErrUnsupportedConstruct: a declaration outside the supported mapping table.
	ErrUnsupportedConstruct = New("unsupported construct")

	// ErrAliasCycle: an alias chain refers back to itself.
	ErrAliasCycle = New("alias cycle")

	// ErrNameCollision: two distinct declarations render to one identifier.
	ErrNameCollision = New("name collision")

	// ErrUnresolvedReference: a type reference names nothing in the IR.
	ErrUnresolvedReference = New("unresolved reference")

	// ErrConflict: a write was refused because the target carries manual edits.
	ErrConflict = New("conflict")

	// ErrDrift: a generated file differs from what the backend generates now.
	ErrDrift = New("drift")

	// ErrIO: backend declarations could not be read or output could not be written.
	ErrIO = New("io failure")
)

// Origin locates a declaration in backend source.
type Origin struct {
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column  int    `json:"column,omitempty" yaml:"column,omitempty"`
}

func (o Origin) String() string {
	switch {
	case o.File != "" && o.Line > 0:
		return fmt.Sprintf("%s:%d:%d", o.File, o.Line, o.Column)
	case o.File != "":
		return o.File
	default:
		return o.Package
	}
}

// GenError carries the context needed to locate the cause of a generation
// error: the unit, the declaration and where it was declared.
type GenError struct {
	Kind   error
	Unit   string
	Decl   string
	Origin Origin
	Msg    string
	Err    error
}

func (e *GenError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.Unit != "" {
		fmt.Fprintf(&sb, " in unit %s", e.Unit)
	}
	if e.Decl != "" {
		fmt.Fprintf(&sb, ": %s", e.Decl)
	}
	if loc := e.Origin.String(); loc != "" {
		fmt.Fprintf(&sb, " (%s)", loc)
	}
	if e.Msg != "" {
		fmt.Fprintf(&sb, ": %s", e.Msg)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Is reports kind membership so errors.Is(err, ErrNameCollision) works.
func (e *GenError) Is(target error) bool {
	return target == e.Kind
}

func (e *GenError) Unwrap() error {
	return e.Err
}

// Unsupported builds an ErrUnsupportedConstruct for decl.
func Unsupported(decl string, origin Origin, format string, args ...interface{}) error {
	return WithHint(
		&GenError{Kind: ErrUnsupportedConstruct, Decl: decl, Origin: origin, Msg: fmt.Sprintf(format, args...)},
		"exclude the declaration with a //bridge:skip doc comment, list it under exclude, or add a mapping override",
	)
}

// Extraction builds an ErrExtractionFailure wrapping cause.
func Extraction(pkg string, cause error) error {
	return &GenError{Kind: ErrExtractionFailure, Origin: Origin{Package: pkg}, Err: cause}
}

// IO builds an ErrIO for path wrapping cause.
func IO(path string, cause error) error {
	return &GenError{Kind: ErrIO, Origin: Origin{File: path}, Err: cause}
}

// WithUnit stamps the unit name on every GenError in err that has none.
func WithUnit(err error, unit string) error {
	if err == nil {
		return nil
	}
	if list, ok := err.(List); ok {
		for _, e := range list {
			WithUnit(e, unit)
		}
		return list
	}
	var ge *GenError
	if As(err, &ge) && ge.Unit == "" {
		ge.Unit = unit
	}
	return err
}

// List aggregates independent errors so a single run can report all of them.
type List []error

func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, err := range l {
		msgs[i] = err.Error()
	}
	if len(msgs) == 1 {
		return msgs[0]
	}
	return fmt.Sprintf("%d errors:\n  - %s", len(msgs), strings.Join(msgs, "\n  - "))
}

// Unwrap exposes the members to errors.Is and errors.As.
func (l List) Unwrap() []error {
	return l
}

// Err returns nil for an empty list, the sole member for one, the list otherwise.
func (l List) Err() error {
	switch len(l) {
	case 0:
		return nil
	case 1:
		return l[0]
	default:
		return l
	}
}
