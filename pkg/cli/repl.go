package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/mirralang/mirra/internal/lang"
	"github.com/mirralang/mirra/internal/lexer"
	"github.com/mirralang/mirra/internal/lower"
	"github.com/mirralang/mirra/internal/parser"
)

const (
	promptMain = "mirra> "
	promptCont = "  ...> "
)

const banner = `Mirra REPL
Declare classes, then query them. Ctrl+C cancels input, Ctrl+D exits.`

const helpText = `
REPL commands:
  :classes                    List registered classes
  :inspect CLASS              Dump a class reflectively
  :abstract CLASS             Report whether a class is abstract
  :assignable TYPE TYPE       Check assignability, e.g. :assignable Dog Animal
  :help                       Show this help
  :quit                       Exit
`

var replCommands = []string{":classes", ":inspect", ":abstract", ":assignable", ":help", ":quit"}

func runRepl() int {
	reg := lang.NewRegistry()
	res := lang.NewResolver(reg)
	model := lang.NewModel(res)
	mirror := lang.NewMirror(model)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(func(line string) (out []string) {
		for _, cmd := range replCommands {
			if strings.HasPrefix(cmd, line) {
				out = append(out, cmd)
			}
		}
		return out
	})

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	fmt.Println(banner)
	for {
		input, ok := readInput(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		ln.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			if quit := runCommand(reg, res, mirror, input); quit {
				return 0
			}
			continue
		}

		ctx := runSource(reg, res, "<repl>", input)
		if ctx.Failed() {
			for _, diag := range ctx.Errors {
				fmt.Println(red(diag.Error()))
			}
			continue
		}
		for _, c := range ctx.Classes {
			fmt.Printf("%s class %s\n", green("registered"), c.Name)
		}
	}
}

// readInput reads one input: a command line, or a declaration continued
// until its braces balance.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	depth := 0
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if err == liner.ErrPromptAborted {
			return "", true // cancelled input, keep the session
		}
		if err != nil {
			return "", false
		}
		b.WriteString(line)
		b.WriteString("\n")

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth <= 0 {
			return b.String(), true
		}
	}
}

func runCommand(reg *lang.Registry, res *lang.Resolver, mirror *lang.Mirror, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Print(helpText)
	case ":classes":
		for _, c := range reg.Classes() {
			fmt.Println(c.Name)
		}
	case ":inspect":
		if len(fields) != 2 {
			fmt.Println(red("usage: :inspect CLASS"))
			break
		}
		cv, err := mirror.ClassOf(fields[1])
		if err != nil {
			fmt.Println(red(err.Error()))
			break
		}
		printClass(reg, mirror, cv)
	case ":abstract":
		if len(fields) != 2 {
			fmt.Println(red("usage: :abstract CLASS"))
			break
		}
		c, ok := reg.Lookup(fields[1])
		if !ok {
			fmt.Println(red("unknown class " + fields[1]))
			break
		}
		fmt.Println(reg.IsAbstract(c))
	case ":assignable":
		// The two type expressions are re-split on whitespace by Fields,
		// so rejoin and separate on the argument boundary instead.
		rest := strings.TrimSpace(strings.TrimPrefix(input, ":assignable"))
		v, f, ok := splitTypePair(rest)
		if !ok {
			fmt.Println(red("usage: :assignable TYPE TYPE"))
			break
		}
		vt, err := parseType(reg, res, v)
		if err != nil {
			fmt.Println(red(err.Error()))
			break
		}
		ft, err := parseType(reg, res, f)
		if err != nil {
			fmt.Println(red(err.Error()))
			break
		}
		result, err := res.IsAssignable(vt, ft)
		if err != nil {
			fmt.Println(red(err.Error()))
			break
		}
		fmt.Println(result)
	default:
		fmt.Println(red("unknown command " + fields[0] + ", try :help"))
	}
	return false
}

// splitTypePair splits "Dog Animal" or "Buffer(size = 3) Buffer(size = 3)"
// into its two type expressions: the boundary is the first space at paren
// depth zero.
func splitTypePair(s string) (string, string, bool) {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ' ':
			if depth == 0 {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:]), true
			}
		}
	}
	return "", "", false
}

func parseType(reg *lang.Registry, res *lang.Resolver, src string) (*lang.ClassType, error) {
	toks := lexer.New(src).Tokens()
	ref, errs := parser.ParseTypeExpr(toks)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return lower.ResolveType(reg, res, ref)
}
