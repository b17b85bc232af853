// Package extract builds the IR of a generation unit from a Go package or a
// language-neutral schema document.
//
// A Go unit is one package loaded with golang.org/x/tools/go/packages and
// read through go/types. Every exported type and top-level function the
// package declares becomes a declaration, together with every exported
// named type reachable from them in packages no other unit owns. Struct
// fields follow encoding/json, so the IR describes the JSON the backend
// actually produces. Tagged unions are the exception: encoding/json writes a
// sealed interface value as the bare concrete struct, so the union's
// {kind, value} envelope must come from a MarshalJSON on the backend side.
package extract

import (
	"context"
	"go/ast"
	"go/build"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/teranos/bridgegen/errors"
	"github.com/teranos/bridgegen/ir"
	"github.com/teranos/bridgegen/logger"
)

// SkipDirective in a declaration's doc comment leaves the declaration out.
const SkipDirective = "//bridge:skip"

// LoadMode is what the extractor needs from go/packages.
const LoadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
	packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports

// Source describes one Go generation unit.
type Source struct {
	Unit      string
	Package   string   // import path, or a path relative to Dir
	Dir       string   // module directory the package loads from
	BuildTags []string
	Tests     bool
	Exclude   []string

	// Mappings overrides fully qualified Go types (pkgpath.Name) with a primitive.
	Mappings map[string]string

	// Owners maps package paths to the unit that owns them. Named types in a
	// package owned by another unit are referenced, not pulled in.
	Owners map[string]string
}

// Package loads src and returns its IR. Load and type errors are an
// ExtractionFailure; constructs outside the mapping table are
// UnsupportedConstruct errors, all of which are reported together. No IR is
// returned alongside an error.
func Package(ctx context.Context, src Source) (*ir.IR, error) {
	log := logger.Named("extract")

	pkg, err := load(ctx, src)
	if err != nil {
		return nil, errors.WithUnit(err, src.Unit)
	}

	e := newExtractor(src, pkg)
	e.scan()
	e.collect()
	if err := e.errs.Err(); err != nil {
		return nil, errors.WithUnit(err, src.Unit)
	}

	log.Debugw("Extracted package",
		"unit", src.Unit,
		"package", pkg.PkgPath,
		"types", len(e.out.Types),
		"signatures", len(e.out.Signatures))
	return e.out, nil
}

// PackageFiles lists the Go files that make up src and every package it
// imports from the main module or a locally replaced one, for cache keys and
// watching. Types pulled in from those packages land in the unit's IR.
func PackageFiles(ctx context.Context, src Source) ([]string, error) {
	mode := packages.NeedName | packages.NeedFiles | packages.NeedImports | packages.NeedDeps | packages.NeedModule
	pkgs, err := packages.Load(loadConfig(ctx, src, mode), src.Package)
	if err != nil {
		return nil, errors.Extraction(src.Package, err)
	}
	roots := make(map[*packages.Package]bool, len(pkgs))
	for _, p := range pkgs {
		roots[p] = true
	}
	seen := map[string]bool{}
	var files []string
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		if !roots[p] && !local(p) {
			return
		}
		for _, f := range p.GoFiles {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	})
	sort.Strings(files)
	return files, nil
}

// local reports whether p is edited in place: a package of the main module
// or of a module replaced by a directory. The standard library and module
// cache entries have fixed contents.
func local(p *packages.Package) bool {
	m := p.Module
	if m == nil {
		return false
	}
	return m.Main || (m.Replace != nil && m.Replace.Version == "")
}

// ImportPath resolves src.Package to the path go/types reports for it.
// Import paths are returned as given; relative paths ask the loader.
func ImportPath(ctx context.Context, src Source) (string, error) {
	if !build.IsLocalImport(src.Package) && !filepath.IsAbs(src.Package) {
		return src.Package, nil
	}
	pkgs, err := packages.Load(loadConfig(ctx, src, packages.NeedName), src.Package)
	if err != nil {
		return "", errors.Extraction(src.Package, err)
	}
	if len(pkgs) == 0 || pkgs[0].PkgPath == "" {
		return "", errors.Extraction(src.Package, errors.New("no packages found"))
	}
	return pkgs[0].PkgPath, nil
}

func loadConfig(ctx context.Context, src Source, mode packages.LoadMode) *packages.Config {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    mode,
		Dir:     src.Dir,
		Tests:   src.Tests,
	}
	if len(src.BuildTags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(src.BuildTags, ",")}
	}
	return cfg
}

func load(ctx context.Context, src Source) (*packages.Package, error) {
	pkgs, err := packages.Load(loadConfig(ctx, src, LoadMode), src.Package)
	if err != nil {
		return nil, errors.Extraction(src.Package, errors.Wrap(err, "failed to load package"))
	}

	// With Tests set the loader also returns test variants; the unit is the
	// package itself (or its internal test variant, which is a superset).
	var pkg *packages.Package
	for _, p := range pkgs {
		if strings.HasSuffix(p.ID, ".test") || strings.HasSuffix(p.PkgPath, "_test") {
			continue
		}
		if pkg == nil || len(p.Syntax) > len(pkg.Syntax) {
			pkg = p
		}
	}
	if pkg == nil {
		return nil, errors.Extraction(src.Package, errors.New("no packages found"))
	}
	if len(pkg.Errors) > 0 {
		msgs := make([]string, len(pkg.Errors))
		for i, pe := range pkg.Errors {
			msgs[i] = pe.Error()
		}
		return nil, errors.Extraction(pkg.PkgPath, errors.Newf("package errors: %s", strings.Join(msgs, "; ")))
	}
	if pkg.Types == nil || pkg.TypesInfo == nil {
		return nil, errors.Extraction(pkg.PkgPath, errors.New("package has no type information"))
	}
	return pkg, nil
}

// extractor walks one loaded package. It is single-use and not safe for
// concurrent use; units extract in parallel with one extractor each.
type extractor struct {
	src  Source
	pkg  *packages.Package
	fset *token.FileSet
	out  *ir.IR
	errs errors.List

	docs      map[types.Object]string
	skipped   map[types.Object]bool
	fieldDocs map[token.Pos]string
	consts    map[*types.TypeName][]*types.Const
	typeOrder []*types.TypeName
	funcOrder []*types.Func

	declared map[string]bool // canonical IDs declared or in progress
	queue    []*types.TypeName
}

func newExtractor(src Source, pkg *packages.Package) *extractor {
	return &extractor{
		src:       src,
		pkg:       pkg,
		fset:      pkg.Fset,
		out:       &ir.IR{Unit: src.Unit, Package: pkg.PkgPath},
		docs:      make(map[types.Object]string),
		skipped:   make(map[types.Object]bool),
		fieldDocs: make(map[token.Pos]string),
		consts:    make(map[*types.TypeName][]*types.Const),
		declared:  make(map[string]bool),
	}
}

// scan records source order, doc comments, skip directives and typed
// constants from the package syntax. go/types has no notion of any of these.
func (e *extractor) scan() {
	info := e.pkg.TypesInfo
	for _, file := range e.pkg.Syntax {
		testFile := strings.HasSuffix(e.fset.Position(file.Pos()).Filename, "_test.go")
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				e.scanGenDecl(d, info)
			case *ast.FuncDecl:
				fn, ok := info.Defs[d.Name].(*types.Func)
				if !ok || d.Recv != nil || testFile {
					continue
				}
				e.note(fn, d.Doc)
				e.funcOrder = append(e.funcOrder, fn)
			}
		}
	}
}

func (e *extractor) scanGenDecl(d *ast.GenDecl, info *types.Info) {
	for _, spec := range d.Specs {
		switch s := spec.(type) {
		case *ast.TypeSpec:
			tn, ok := info.Defs[s.Name].(*types.TypeName)
			if !ok {
				continue
			}
			doc := s.Doc
			if doc == nil && len(d.Specs) == 1 {
				doc = d.Doc
			}
			e.note(tn, doc)
			e.typeOrder = append(e.typeOrder, tn)
			if st, ok := s.Type.(*ast.StructType); ok {
				e.scanFields(st)
			}
		case *ast.ValueSpec:
			if d.Tok != token.CONST {
				continue
			}
			for _, name := range s.Names {
				c, ok := info.Defs[name].(*types.Const)
				if !ok || !c.Exported() {
					continue
				}
				doc := s.Doc
				if doc == nil && len(d.Specs) == 1 {
					doc = d.Doc
				}
				if doc == nil {
					doc = s.Comment
				}
				e.note(c, doc)
				if named, ok := c.Type().(*types.Named); ok && named.Obj().Pkg() == e.pkg.Types {
					e.consts[named.Obj()] = append(e.consts[named.Obj()], c)
				}
			}
		}
	}
}

func (e *extractor) scanFields(st *ast.StructType) {
	ast.Inspect(st, func(n ast.Node) bool {
		field, ok := n.(*ast.Field)
		if !ok {
			return true
		}
		doc := fieldComment(field)
		if doc == "" {
			return true
		}
		if len(field.Names) == 0 {
			e.fieldDocs[field.Type.Pos()] = doc
		}
		for _, name := range field.Names {
			e.fieldDocs[name.Pos()] = doc
		}
		return true
	})
}

func (e *extractor) note(obj types.Object, doc *ast.CommentGroup) {
	if doc == nil {
		return
	}
	for _, c := range doc.List {
		if strings.TrimSpace(c.Text) == SkipDirective {
			e.skipped[obj] = true
		}
	}
	if text := strings.TrimSpace(doc.Text()); text != "" {
		e.docs[obj] = text
	}
}

// collect declares the package's own exported declarations in source order,
// then drains the queue of types they reach.
func (e *extractor) collect() {
	for _, tn := range e.typeOrder {
		if !e.wanted(tn) {
			continue
		}
		if tn.IsAlias() {
			e.declareAlias(tn)
			continue
		}
		e.enqueue(tn)
	}
	for _, fn := range e.funcOrder {
		if e.wanted(fn) {
			e.signature(fn)
		}
	}
	for len(e.queue) > 0 {
		tn := e.queue[0]
		e.queue = e.queue[1:]
		e.declare(tn)
	}
}

func (e *extractor) wanted(obj types.Object) bool {
	if !obj.Exported() || e.skipped[obj] {
		return false
	}
	return !e.excluded(obj)
}

func (e *extractor) excluded(obj types.Object) bool {
	id := qualified(obj)
	for _, name := range e.src.Exclude {
		if name == obj.Name() || name == id {
			return true
		}
	}
	return false
}

func (e *extractor) enqueue(tn *types.TypeName) string {
	id := qualified(tn)
	if !e.declared[id] {
		e.declared[id] = true
		e.queue = append(e.queue, tn)
	}
	return id
}

func (e *extractor) fail(err error) {
	e.errs = append(e.errs, err)
}

func (e *extractor) origin(obj types.Object) ir.Origin {
	o := ir.Origin{}
	if obj.Pkg() != nil {
		o.Package = obj.Pkg().Path()
	}
	if !obj.Pos().IsValid() {
		return o
	}
	pos := e.fset.Position(obj.Pos())
	o.File = e.relative(pos.Filename)
	if o.File != "" {
		o.Line = pos.Line
		o.Column = pos.Column
	}
	return o
}

// relative keeps origins machine-independent: files under the backend dir
// are reported relative to it, anything else (GOROOT, module cache) is
// identified by package alone.
func (e *extractor) relative(filename string) string {
	if filename == "" {
		return ""
	}
	base := e.src.Dir
	if base == "" {
		base = "."
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return ""
	}
	candidates := []string{abs}
	if real, err := filepath.EvalSymlinks(abs); err == nil && real != abs {
		candidates = append(candidates, real)
	}
	for _, dir := range candidates {
		rel, err := filepath.Rel(dir, filename)
		if err == nil && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return ""
}

func qualified(obj types.Object) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return ir.ID(obj.Pkg().Path(), obj.Name())
}

func fieldComment(field *ast.Field) string {
	if field.Doc != nil {
		if text := strings.TrimSpace(field.Doc.Text()); text != "" {
			return text
		}
	}
	if field.Comment != nil {
		return strings.TrimSpace(field.Comment.Text())
	}
	return ""
}
