package typescript

import (
	"fmt"
	"sort"
	"strings"

	"github.com/teranos/bridgegen/emit"
	"github.com/teranos/bridgegen/ir"
)

const eslintDisable = "/* eslint-disable */\n"

// renderer turns one unit into a TypeScript module body. decls indexes every
// declaration of the run so references into other units render by name.
type renderer struct {
	opts  emit.Options
	decls map[string]*ir.TypeDecl
}

func (r *renderer) unit(m *ir.IR) []byte {
	var sb strings.Builder
	sb.WriteString(eslintDisable)

	bindings := r.opts.Bindings && len(m.Signatures) > 0
	if len(m.Imports) > 0 || bindings {
		sb.WriteString("\n")
		r.writeImports(&sb, m.Imports)
		if bindings {
			sb.WriteString("import { invoke } from './runtime';\n")
		}
	}

	for i := range m.Types {
		sb.WriteString("\n")
		r.writeDecl(&sb, &m.Types[i])
	}
	if bindings {
		for i := range m.Signatures {
			sb.WriteString("\n")
			r.writeBinding(&sb, m.Unit, &m.Signatures[i])
		}
	}

	if len(m.Types) == 0 && !bindings {
		sb.WriteString("\nexport {};\n")
	}
	return []byte(sb.String())
}

// writeImports groups imports by owning unit, one statement per unit.
func (r *renderer) writeImports(sb *strings.Builder, imports []ir.Import) {
	byUnit := make(map[string][]string)
	var units []string
	for _, imp := range imports {
		if _, seen := byUnit[imp.Unit]; !seen {
			units = append(units, imp.Unit)
		}
		byUnit[imp.Unit] = append(byUnit[imp.Unit], TypeIdent(imp.Name))
	}
	sort.Strings(units)
	for _, unit := range units {
		names := byUnit[unit]
		sort.Strings(names)
		fmt.Fprintf(sb, "import type { %s } from './%s';\n", strings.Join(names, ", "), unit)
	}
}

func (r *renderer) writeDecl(sb *strings.Builder, d *ir.TypeDecl) {
	writeDoc(sb, "", d.Doc)
	name := TypeIdent(d.Name)

	switch {
	case d.Kind == ir.KindStruct:
		if len(d.Fields) == 0 {
			fmt.Fprintf(sb, "export interface %s {}\n", name)
			return
		}
		fmt.Fprintf(sb, "export interface %s {\n", name)
		for _, f := range d.Fields {
			writeDoc(sb, "  ", f.Doc)
			mark := ""
			if f.Optional {
				mark = "?"
			}
			fmt.Fprintf(sb, "  %s%s: %s;\n", propertyKey(f.WireName()), mark, r.typeExpr(f.Type))
		}
		sb.WriteString("}\n")

	case d.IsUnion():
		fmt.Fprintf(sb, "export type %s =\n", name)
		for i, v := range d.Variants {
			end := ""
			if i == len(d.Variants)-1 {
				end = ";"
			}
			if v.Payload == nil {
				fmt.Fprintf(sb, "  | { kind: %s }%s\n", quote(v.Name), end)
				continue
			}
			fmt.Fprintf(sb, "  | { kind: %s; value: %s }%s\n", quote(v.Name), r.typeExpr(*v.Payload), end)
		}

	case d.Kind == ir.KindEnum:
		if len(d.Variants) == 0 {
			fmt.Fprintf(sb, "export const %s = {} as const;\nexport type %s = never;\n", name, name)
			return
		}
		fmt.Fprintf(sb, "export const %s = {\n", name)
		literals := make([]string, len(d.Variants))
		for i, v := range d.Variants {
			literals[i] = literal(d, v.Value)
			writeDoc(sb, "  ", v.Doc)
			fmt.Fprintf(sb, "  %s: %s,\n", propertyKey(v.Name), literals[i])
		}
		sb.WriteString("} as const;\n")
		fmt.Fprintf(sb, "export type %s = %s;\n", name, strings.Join(literals, " | "))

	default:
		target := "unknown"
		if d.Target != nil {
			target = r.typeExpr(*d.Target)
		}
		fmt.Fprintf(sb, "export type %s = %s;\n", name, target)
	}
}

// literal renders a value enum member: numbers bare, everything else quoted.
func literal(d *ir.TypeDecl, value string) string {
	if d.Target != nil && d.Target.Kind == ir.RefPrimitive &&
		(d.Target.Primitive == ir.Int || d.Target.Primitive == ir.Float) {
		return value
	}
	return quote(value)
}

func (r *renderer) writeBinding(sb *strings.Builder, unit string, s *ir.SignatureDecl) {
	writeDoc(sb, "", s.Doc)

	params := make([]string, len(s.Params))
	args := []string{quote(unit + "." + s.Name)}
	for i, p := range s.Params {
		ident := ValueIdent(p.Name)
		params[i] = ident + ": " + r.typeExpr(p.Type)
		args = append(args, ident)
	}

	result := "void"
	if s.Result != nil {
		result = r.typeExpr(*s.Result)
	}
	returns := result
	if r.opts.Async {
		returns = "Promise<" + result + ">"
	}

	fmt.Fprintf(sb, "export function %s(%s): %s {\n", ValueIdent(s.Name), strings.Join(params, ", "), returns)
	fmt.Fprintf(sb, "  return invoke<%s>(%s);\n", result, strings.Join(args, ", "))
	sb.WriteString("}\n")
}

// typeExpr renders a reference in type position.
func (r *renderer) typeExpr(t ir.TypeRef) string {
	switch t.Kind {
	case ir.RefPrimitive:
		if ts, ok := primitives[t.Primitive]; ok {
			return ts
		}
		return "unknown"
	case ir.RefNamed:
		return r.name(t.Ref)
	case ir.RefOptional:
		return r.typeExpr(*t.Elem) + " | null"
	case ir.RefSequence:
		elem := r.typeExpr(*t.Elem)
		if t.Elem.Kind == ir.RefOptional {
			elem = "(" + elem + ")"
		}
		return elem + "[]"
	case ir.RefMap:
		key, enum := r.keyExpr(*t.Key)
		record := fmt.Sprintf("Record<%s, %s>", key, r.typeExpr(*t.Value))
		if enum {
			return "Partial<" + record + ">"
		}
		return record
	default:
		return "unknown"
	}
}

// keyExpr renders a map key. enum reports a value-enum key, whose record
// holds only some of the members.
func (r *renderer) keyExpr(t ir.TypeRef) (key string, enum bool) {
	switch t.Kind {
	case ir.RefPrimitive:
		if t.Primitive == ir.Int || t.Primitive == ir.Float {
			return "number", false
		}
		return "string", false
	case ir.RefNamed:
		d, ok := r.decls[t.Ref]
		return r.name(t.Ref), ok && d.Kind == ir.KindEnum && !d.IsUnion()
	default:
		return "string", false
	}
}

func (r *renderer) name(id string) string {
	if d, ok := r.decls[id]; ok {
		return TypeIdent(d.Name)
	}
	_, name := ir.SplitID(id)
	return TypeIdent(name)
}

// writeDoc renders doc as JSDoc at the given indent.
func writeDoc(sb *strings.Builder, indent, doc string) {
	doc = strings.TrimSpace(strings.ReplaceAll(doc, "*/", "*\\/"))
	if doc == "" {
		return
	}
	lines := strings.Split(doc, "\n")
	if len(lines) == 1 {
		fmt.Fprintf(sb, "%s/** %s */\n", indent, lines[0])
		return
	}
	fmt.Fprintf(sb, "%s/**\n", indent)
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			fmt.Fprintf(sb, "%s *\n", indent)
			continue
		}
		fmt.Fprintf(sb, "%s * %s\n", indent, line)
	}
	fmt.Fprintf(sb, "%s */\n", indent)
}
