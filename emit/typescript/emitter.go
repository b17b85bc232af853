// Package typescript renders normalized IR as TypeScript modules: one
// module per unit, a runtime module holding the invoker every binding
// delegates to, and an index barrel re-exporting everything.
package typescript

import (
	"fmt"
	"sort"
	"strings"

	"github.com/teranos/bridgegen/emit"
	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
	"github.com/teranos/bridgegen/logger"
)

// Generator implements emit.Emitter for TypeScript
type Generator struct{}

var _ emit.Emitter = (*Generator)(nil)

// NewGenerator creates a new TypeScript generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Language returns "typescript"
func (g *Generator) Language() string {
	return "typescript"
}

// FileExtension returns "ts"
func (g *Generator) FileExtension() string {
	return "ts"
}

// TypeIdent implements emit.Emitter
func (g *Generator) TypeIdent(name string) string { return TypeIdent(name) }

// ValueIdent implements emit.Emitter
func (g *Generator) ValueIdent(name string) string { return ValueIdent(name) }

// Emit renders every unit. Artifacts come back sorted by path.
func (g *Generator) Emit(units []*ir.IR, opts emit.Options) ([]emit.Artifact, error) {
	sorted := append([]*ir.IR(nil), units...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Unit < sorted[j].Unit })

	r := &renderer{opts: opts, decls: make(map[string]*ir.TypeDecl)}
	for _, m := range sorted {
		for id, d := range m.Index() {
			r.decls[id] = d
		}
	}

	var artifacts []emit.Artifact
	runtime := false
	for _, m := range sorted {
		artifacts = append(artifacts, emit.Seal(m.Unit, g.path(m.Unit), opts.Version, r.unit(m)))
		if opts.Bindings && len(m.Signatures) > 0 {
			runtime = true
		}
	}
	if runtime {
		artifacts = append(artifacts, emit.Seal(emit.RuntimeUnit, g.path(emit.RuntimeUnit), opts.Version, runtimeModule(opts.Async)))
	}
	if opts.Index {
		body, err := g.index(sorted, opts, runtime)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, emit.Seal(emit.IndexUnit, g.path(emit.IndexUnit), opts.Version, body))
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Path < artifacts[j].Path })
	logger.Named("emit").Debugw("Emitted artifacts",
		"language", g.Language(),
		"units", len(sorted),
		"artifacts", len(artifacts))
	return artifacts, nil
}

func (g *Generator) path(unit string) string {
	return unit + "." + g.FileExtension()
}

// runtimeModule holds the invoker registry. Bindings fail loudly until the
// application registers a transport.
func runtimeModule(async bool) []byte {
	invoker, result, missing := "unknown", "T", "throw new Error('bridgegen: no invoker registered for ' + method);"
	if async {
		invoker, result = "Promise<unknown>", "Promise<T>"
		missing = "return Promise.reject(new Error('bridgegen: no invoker registered for ' + method));"
	}

	var sb strings.Builder
	sb.WriteString(eslintDisable)
	sb.WriteString("\n/** Carries a call to the backend. method is '<unit>.<Name>'. */\n")
	fmt.Fprintf(&sb, "export type Invoker = (method: string, ...args: unknown[]) => %s;\n", invoker)
	sb.WriteString("\nlet current: Invoker | null = null;\n")
	sb.WriteString("\n/** Registers the transport every binding delegates to. */\n")
	sb.WriteString("export function setInvoker(invoker: Invoker): void {\n")
	sb.WriteString("  current = invoker;\n")
	sb.WriteString("}\n")
	fmt.Fprintf(&sb, "\nexport function invoke<T>(method: string, ...args: unknown[]): %s {\n", result)
	sb.WriteString("  if (current === null) {\n")
	fmt.Fprintf(&sb, "    %s\n", missing)
	sb.WriteString("  }\n")
	fmt.Fprintf(&sb, "  return current(method, ...args) as %s;\n", result)
	sb.WriteString("}\n")
	return []byte(sb.String())
}

// exported names one identifier re-exported by the barrel.
type exported struct {
	ident string
	unit  string
	value bool // a runtime value, not only a type
}

// index builds the barrel. Two units exporting the same identifier would
// make the barrel ambiguous, so that is a NameCollision.
func (g *Generator) index(units []*ir.IR, opts emit.Options, runtime bool) ([]byte, error) {
	var all []exported
	for _, m := range units {
		for _, d := range m.Types {
			value := d.Kind == ir.KindEnum && !d.IsUnion()
			all = append(all, exported{ident: TypeIdent(d.Name), unit: m.Unit, value: value})
		}
		if opts.Bindings {
			for _, s := range m.Signatures {
				all = append(all, exported{ident: ValueIdent(s.Name), unit: m.Unit, value: true})
			}
		}
	}
	if runtime {
		all = append(all,
			exported{ident: "Invoker", unit: emit.RuntimeUnit},
			exported{ident: "setInvoker", unit: emit.RuntimeUnit, value: true})
	}

	var errs errors.List
	owner := make(map[string]string)
	for _, e := range all {
		if first, taken := owner[e.ident]; taken && first != e.unit {
			errs = append(errs, &errors.GenError{
				Kind: errors.ErrNameCollision,
				Unit: emit.IndexUnit,
				Decl: e.ident,
				Msg:  fmt.Sprintf("identifier %q is exported by both %s and %s", e.ident, first, e.unit),
			})
			continue
		}
		owner[e.ident] = e.unit
	}
	if err := errs.Err(); err != nil {
		return nil, errors.WithHint(err, "rename one declaration, mark it //bridge:skip, or set output.index = false")
	}

	var sb strings.Builder
	sb.WriteString(eslintDisable)
	order := make([]string, 0, len(units)+1)
	for _, m := range units {
		order = append(order, m.Unit)
	}
	if runtime {
		order = append(order, emit.RuntimeUnit)
	}
	for _, unit := range order {
		var types, values []string
		for _, e := range all {
			if e.unit != unit {
				continue
			}
			if e.value {
				values = append(values, e.ident)
			} else {
				types = append(types, e.ident)
			}
		}
		if len(types) == 0 && len(values) == 0 {
			continue
		}
		sb.WriteString("\n")
		sort.Strings(types)
		sort.Strings(values)
		if len(types) > 0 {
			fmt.Fprintf(&sb, "export type { %s } from './%s';\n", strings.Join(types, ", "), unit)
		}
		if len(values) > 0 {
			fmt.Fprintf(&sb, "export { %s } from './%s';\n", strings.Join(values, ", "), unit)
		}
	}
	if len(all) == 0 {
		sb.WriteString("\nexport {};\n")
	}
	return []byte(sb.String()), nil
}
