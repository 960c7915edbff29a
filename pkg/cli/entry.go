// Package cli implements the mirra command: checking source files,
// inspecting registered classes, and the interactive REPL.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/mirralang/mirra/internal/config"
	"github.com/mirralang/mirra/internal/lang"
	"github.com/mirralang/mirra/internal/lexer"
	"github.com/mirralang/mirra/internal/lower"
	"github.com/mirralang/mirra/internal/parser"
	"github.com/mirralang/mirra/internal/pipeline"
	"github.com/mirralang/mirra/internal/project"
)

const usage = `mirra - the Mirra class model toolchain

Usage:
  mirra check [files...]     Check source files (default: mirra.yaml sources)
  mirra inspect FILE CLASS   Check FILE and dump CLASS reflectively
  mirra repl                 Start an interactive session
  mirra help                 Show this help
`

var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func red(s string) string {
	if !colorEnabled {
		return s
	}
	return "\x1b[31m" + s + "\x1b[0m"
}

func green(s string) string {
	if !colorEnabled {
		return s
	}
	return "\x1b[32m" + s + "\x1b[0m"
}

// Run executes the CLI and returns the process exit code: 0 on success, 1
// when diagnostics were reported, 2 on usage errors.
func Run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	switch args[0] {
	case "check":
		return runCheck(args[1:])
	case "inspect":
		if len(args) != 3 {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		return runInspect(args[1], args[2])
	case "repl":
		return runRepl()
	case "help", "-h", "--help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func isSourceFile(path string) bool {
	for _, ext := range config.SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func runCheck(files []string) int {
	cfg, err := project.Find(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", red(err.Error()))
		return 1
	}
	if len(files) == 0 {
		if cfg == nil {
			fmt.Fprintf(os.Stderr, "no files given and no %s found\n", config.ProjectFileName)
			return 2
		}
		files = cfg.SourcePaths()
	}
	strict := cfg != nil && cfg.Strict

	reg := lang.NewRegistry()
	res := lang.NewResolver(reg)

	failed := false
	for _, path := range files {
		if !isSourceFile(path) {
			fmt.Fprintf(os.Stderr, "%s: not a source file (want %s)\n", path, config.SourceFileExt)
			failed = true
			continue
		}
		ctx, err := checkFile(reg, res, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", red(err.Error()))
			failed = true
			continue
		}
		if ctx.Failed() {
			for _, diag := range ctx.Errors {
				fmt.Fprintf(os.Stderr, "%s\n", red(diag.Error()))
			}
			failed = true
			continue
		}
		warns := nestedDerefSites(ctx.Classes)
		for _, warn := range warns {
			if strict {
				fmt.Fprintf(os.Stderr, "%s\n", red("error: "+warn))
			} else {
				fmt.Fprintf(os.Stderr, "note: %s\n", warn)
			}
		}
		if strict && len(warns) > 0 {
			failed = true
			continue
		}
		fmt.Printf("%s %s (%d classes)\n", green("ok"), path, len(ctx.Classes))
	}
	if failed {
		return 1
	}
	return 0
}

// nestedDerefSites flags Dereference classes whose proxied field is itself
// typed as a Dereference class. Ordinary access through such a field stops
// after one level, so the site usually wants an explicit reflective read;
// strict mode turns these notes into errors.
func nestedDerefSites(classes []*lang.Class) []string {
	var sites []string
	for _, c := range classes {
		if c.DerefField == "" {
			continue
		}
		f := c.Field(c.DerefField)
		if f == nil || f.Type == nil {
			continue
		}
		if f.Type.Class.DerefField != "" {
			sites = append(sites, fmt.Sprintf(
				"class %s dereferences %s, whose type %s is itself a Dereference class",
				c.Name, c.DerefField, f.Type.Class.Name))
		}
	}
	return sites
}

func checkFile(reg *lang.Registry, res *lang.Resolver, path string) (*pipeline.Context, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return runSource(reg, res, path, string(src)), nil
}

func runSource(reg *lang.Registry, res *lang.Resolver, path, src string) *pipeline.Context {
	ctx := &pipeline.Context{
		FilePath:   path,
		SourceCode: src,
		Registry:   reg,
		Resolver:   res,
	}
	p := pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
		&lower.LowerProcessor{},
	)
	return p.Run(ctx)
}

func runInspect(path, className string) int {
	reg := lang.NewRegistry()
	res := lang.NewResolver(reg)
	ctx, err := checkFile(reg, res, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", red(err.Error()))
		return 1
	}
	if ctx.Failed() {
		for _, diag := range ctx.Errors {
			fmt.Fprintf(os.Stderr, "%s\n", red(diag.Error()))
		}
		return 1
	}

	model := lang.NewModel(res)
	mirror := lang.NewMirror(model)
	cv, err := mirror.ClassOf(className)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", red(err.Error()))
		return 1
	}
	printClass(reg, mirror, cv)
	return 0
}

func printClass(reg *lang.Registry, mirror *lang.Mirror, cv *lang.ClassValue) {
	kind := "concrete"
	if reg.IsAbstract(cv.C) {
		kind = "abstract"
	}
	fmt.Printf("%s class %s\n", kind, cv.C.Name)

	if len(cv.C.Parents) > 0 {
		parts := make([]string, len(cv.C.Parents))
		for i, edge := range cv.C.Parents {
			parts[i] = (&lang.TypeRef{Class: edge.Class, Args: edge.Args}).String()
		}
		fmt.Printf("  extends %s\n", strings.Join(parts, ", "))
	}
	for _, f := range mirror.FieldsOf(cv) {
		mut := "mutable"
		if f.IsConst() {
			mut = "const"
		}
		fmt.Printf("  %s %s\n", mut, f.Inspect())
	}
	for _, m := range mirror.MethodsOf(cv) {
		suffix := ""
		if m.IsAbstract() {
			suffix = " (abstract)"
		}
		fmt.Printf("  %s%s\n", m.Inspect(), suffix)
	}
	for _, s := range cv.C.Slots() {
		if s.Depth() == 0 {
			continue
		}
		fmt.Printf("  slot %-8s %s\n", s.ID, s.Class.Name)
	}
}

// historyPath resolves the REPL history file location, preferring the
// project manifest.
func historyPath() string {
	if cfg, err := project.Find("."); err == nil && cfg != nil && cfg.HistoryFile != "" {
		return filepath.Join(cfg.Dir, cfg.HistoryFile)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mirra_history"
	}
	return filepath.Join(home, ".mirra_history")
}
