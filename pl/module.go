package pl

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// FileReader resolves a dotted module path (e.g. "math.utils") to PL source
// text. Production code uses DirFileReader over configured search roots;
// tests use MapFileReader so the module system can be exercised without
// touching disk.
type FileReader interface {
	ReadModule(dottedPath string) (string, error)
}

// MapFileReader is an in-memory FileReader keyed by dotted module path.
type MapFileReader map[string]string

func (m MapFileReader) ReadModule(path string) (string, error) {
	src, ok := m[path]
	if !ok {
		return "", ccoserr.New(ccoserr.KindModuleNotFound, "module %q not found", path)
	}
	return src, nil
}

// DirFileReader resolves modules to files under a list of search roots,
// trying each root in order, e.g. "math.utils" -> "<root>/math/utils.rtfs".
type DirFileReader struct {
	Roots []string
}

func (d DirFileReader) ReadModule(path string) (string, error) {
	rel := ModulePathToFile(path)
	for _, root := range d.Roots {
		full := filepath.Join(root, rel)
		data, err := os.ReadFile(full)
		if err == nil {
			return string(data), nil
		}
	}
	return "", ccoserr.New(ccoserr.KindModuleNotFound, "module %q not found under any search root", path)
}

// Module is a loaded (or, while cyclic loading is in progress, placeholder)
// PL module (spec §4.B "Module system").
type Module struct {
	Name        string
	Env         *Env
	Exports     map[string]value.Value
	Placeholder bool
}

// ModuleLoader implements the dotted-path module system: registry lookup,
// a loading stack that breaks cycles with placeholders, import resolution,
// and export population after body execution (spec §4.B).
type ModuleLoader struct {
	interp *Interpreter
	reader FileReader

	mu       sync.Mutex
	registry map[string]*Module
	stack    []string
	onStack  map[string]bool
	pending  map[string][]pendingImport
}

// pendingImport records an import of a module that was still a placeholder
// at import time, so its bindings can be installed for real once the
// placeholder's owning Load call finishes populating it in place (spec §4.B,
// §9 "never observe a partial object" — resolved by late binding instead).
type pendingImport struct {
	env  *Env
	spec importSpec
}

func NewModuleLoader(interp *Interpreter, reader FileReader) *ModuleLoader {
	return &ModuleLoader{
		interp:   interp,
		reader:   reader,
		registry: make(map[string]*Module),
		onStack:  make(map[string]bool),
		pending:  make(map[string][]pendingImport),
	}
}

// importSpec is one parsed `(import […])` form.
type importSpec struct {
	module string
	as     string   // alias, or "" if not given
	only   []string // :only symbol list, or nil
	bare   bool     // plain `(import [mod])` with no modifier
}

// Load resolves a module by dotted name, following spec §4.B's four-step
// algorithm.
func (l *ModuleLoader) Load(name string, host Host) (*Module, error) {
	l.mu.Lock()
	if m, ok := l.registry[name]; ok && !m.Placeholder {
		l.mu.Unlock()
		return m, nil
	}
	if l.onStack[name] {
		placeholder := &Module{Name: name, Env: l.interp.Stdlib.Child(), Exports: map[string]value.Value{}, Placeholder: true}
		l.registry[name] = placeholder
		l.mu.Unlock()
		return placeholder, nil
	}
	l.onStack[name] = true
	l.stack = append(l.stack, name)
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.onStack, name)
		if len(l.stack) > 0 && l.stack[len(l.stack)-1] == name {
			l.stack = l.stack[:len(l.stack)-1]
		}
		l.mu.Unlock()
	}()

	src, err := l.reader.ReadModule(name)
	if err != nil {
		return nil, err
	}
	forms, err := Parse(src)
	if err != nil {
		return nil, err
	}

	exportNames, imports, body, err := splitModuleForms(forms)
	if err != nil {
		return nil, err
	}

	moduleEnv := l.interp.Stdlib.Child()
	for _, imp := range imports {
		imported, err := l.Load(imp.module, host)
		if err != nil {
			return nil, err
		}
		// imported is still mid-load (a cycle came back to us): its Exports
		// are empty right now, so binding immediately would either silently
		// bind nothing (:as/bare) or wrongly fail an :only lookup. Defer the
		// bind until the placeholder's owning Load call populates it below.
		if imported.Placeholder {
			l.mu.Lock()
			l.pending[imp.module] = append(l.pending[imp.module], pendingImport{env: moduleEnv, spec: imp})
			l.mu.Unlock()
			continue
		}
		if err := bindImport(moduleEnv, imp, imported); err != nil {
			return nil, err
		}
	}

	for _, form := range body {
		if _, err := l.interp.Eval(form, moduleEnv, host); err != nil {
			return nil, ccoserr.Wrap(ccoserr.KindInternalError, err, "executing module %q", name)
		}
	}

	exports := make(map[string]value.Value, len(exportNames))
	for _, sym := range exportNames {
		v, ok := moduleEnv.Get(sym)
		if !ok {
			return nil, ccoserr.New(ccoserr.KindExportMissing, "module %q declares export %q but it is unbound", name, sym)
		}
		exports[sym] = v
	}

	l.mu.Lock()
	existing, hadEntry := l.registry[name]
	var mod *Module
	if hadEntry && existing.Placeholder {
		// Populate the placeholder in place: anything that already holds
		// this *Module pointer (via a pending import) sees the real
		// Env/Exports through it, rather than through a snapshot taken
		// while the cycle was still open.
		existing.Env = moduleEnv
		existing.Exports = exports
		existing.Placeholder = false
		mod = existing
	} else {
		mod = &Module{Name: name, Env: moduleEnv, Exports: exports}
	}
	l.registry[name] = mod
	pendings := l.pending[name]
	delete(l.pending, name)
	l.mu.Unlock()

	for _, p := range pendings {
		if err := bindImport(p.env, p.spec, mod); err != nil {
			return nil, err
		}
	}

	return mod, nil
}

// bindImport installs `imported`'s exports into env per the import form's
// style: `:as alias` -> "alias/name"; `:only [s1 s2]` -> bare "s1", "s2";
// bare `(import [mod])` -> auto-qualified "mod/name" using the full module
// name (spec §4.B).
func bindImport(env *Env, spec importSpec, imported *Module) error {
	switch {
	case spec.as != "" && len(spec.only) > 0:
		return ccoserr.New(ccoserr.KindParseError, "`:as` and `:only` together on import of %q is a static error", spec.module)
	case spec.as != "":
		for name, v := range imported.Exports {
			env.Define(spec.as+"/"+name, v)
		}
	case len(spec.only) > 0:
		for _, name := range spec.only {
			v, ok := imported.Exports[name]
			if !ok {
				return ccoserr.New(ccoserr.KindExportMissing, "module %q does not export %q", spec.module, name)
			}
			env.Define(name, v)
		}
	default:
		for name, v := range imported.Exports {
			env.Define(spec.module+"/"+name, v)
		}
	}
	return nil
}

// splitModuleForms pulls the `(module "name" :exports […])` header and
// `(import […])` forms out of a parsed module file, returning the remaining
// body forms to execute.
func splitModuleForms(forms []value.Value) (exports []string, imports []importSpec, body []value.Value, err error) {
	for _, form := range forms {
		items, ok := form.Items()
		if form.Kind() != value.KindList || !ok || len(items) == 0 {
			body = append(body, form)
			continue
		}
		head := items[0]
		name, isSym := head.Str()
		if head.Kind() != value.KindSymbol || !isSym {
			body = append(body, form)
			continue
		}
		switch name {
		case "module":
			exports, err = parseModuleHeader(items[1:])
			if err != nil {
				return nil, nil, nil, err
			}
		case "import":
			spec, perr := parseImportForm(items[1:])
			if perr != nil {
				return nil, nil, nil, perr
			}
			imports = append(imports, spec)
		default:
			body = append(body, form)
		}
	}
	return exports, imports, body, nil
}

func parseModuleHeader(args []value.Value) ([]string, error) {
	var exports []string
	for i := 0; i < len(args); i++ {
		if args[i].Kind() == value.KindKeyword {
			kw, _ := args[i].Str()
			if kw == "exports" && i+1 < len(args) {
				items, _ := args[i+1].Items()
				for _, it := range items {
					s, _ := it.Str()
					exports = append(exports, s)
				}
				i++
			}
		}
	}
	return exports, nil
}

// parseImportForm parses `[mod :as a]`, `[mod :only [s1 s2]]`, or `[mod]`.
func parseImportForm(args []value.Value) (importSpec, error) {
	if len(args) != 1 || args[0].Kind() != value.KindVector {
		return importSpec{}, ccoserr.New(ccoserr.KindParseError, "`import` requires exactly one vector argument")
	}
	items, _ := args[0].Items()
	if len(items) == 0 {
		return importSpec{}, ccoserr.New(ccoserr.KindParseError, "`import` vector must name a module")
	}
	modSym, ok := items[0].Str()
	if !ok {
		return importSpec{}, ccoserr.New(ccoserr.KindParseError, "`import` module name must be a symbol")
	}
	spec := importSpec{module: modSym, bare: true}
	for i := 1; i < len(items); i++ {
		if items[i].Kind() != value.KindKeyword {
			continue
		}
		kw, _ := items[i].Str()
		switch kw {
		case "as":
			if i+1 < len(items) {
				alias, _ := items[i+1].Str()
				spec.as = alias
				spec.bare = false
				i++
			}
		case "only":
			if i+1 < len(items) {
				syms, _ := items[i+1].Items()
				for _, s := range syms {
					name, _ := s.Str()
					spec.only = append(spec.only, name)
				}
				spec.bare = false
				i++
			}
		}
	}
	return spec, nil
}

// ModulePathToFile converts a dotted module name to its file path under a
// search root, e.g. "math.utils" -> "math/utils.rtfs".
func ModulePathToFile(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/") + ".rtfs"
}
