package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"github.com/NumSlower/ocl/internal/codegen"
	"github.com/NumSlower/ocl/internal/diag"
	"github.com/NumSlower/ocl/internal/lexer"
	"github.com/NumSlower/ocl/internal/parser"
	"github.com/NumSlower/ocl/internal/token"
	"github.com/NumSlower/ocl/internal/treewalk"
	"github.com/NumSlower/ocl/internal/vm"
)

// replCmd is an interactive prompt, grounded on the teacher's
// cmd_repl_compiled.go multi-line buffering and bracket-balance lookahead,
// but using github.com/chzyer/readline for line editing and history
// instead of a bare bufio.Scanner.
type replCmd struct {
	compiled bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive session" }
func (*replCmd) Usage() string {
	return "ocl repl [--compiled]\n"
}

func (r *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.compiled, "compiled", false, "run each statement through the bytecode VM instead of the tree-walking evaluator")
}

func (r *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.New(">>> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start line editor: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	logger.Info().Bool("compiled", r.compiled).Msg("repl session starting")

	interp := treewalk.New(os.Stdout)

	var buffer strings.Builder
	for {
		if buffer.Len() == 0 {
			rl.SetPrompt(">>> ")
		} else {
			rl.SetPrompt("... ")
		}
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buffer.Reset()
			continue
		}
		if err != nil { // io.EOF (Ctrl-D)
			return subcommands.ExitSuccess
		}
		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		collector := diag.New()
		lex := lexer.New(source, collector)
		tokens := lex.Scan()

		if !inputReady(tokens) {
			continue
		}

		p := parser.New(tokens, collector)
		stmts := p.Parse()
		if collector.HasErrors() {
			if allAtEOF(collector, tokens) {
				continue
			}
			for _, d := range collector.Items() {
				fmt.Fprintln(os.Stderr, d.Format("<repl>"))
			}
			buffer.Reset()
			continue
		}

		if r.compiled {
			chunk := codegen.New(collector).Generate(stmts)
			if collector.HasErrors() {
				for _, d := range collector.Items() {
					fmt.Fprintln(os.Stderr, d.Format("<repl>"))
				}
				buffer.Reset()
				continue
			}
			machine := vm.New(chunk, collector, os.Stdout)
			if err := machine.Run(); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		} else {
			if err := interp.Run(stmts); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		buffer.Reset()
	}
}

// inputReady reports whether the buffered lines form a balanced,
// complete statement — unclosed braces mean the REPL should keep
// prompting for continuation lines.
func inputReady(tokens []token.Token) bool {
	depth := 0
	for _, t := range tokens {
		switch t.Type {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
		}
	}
	return depth <= 0
}

// allAtEOF reports whether every collected diagnostic anchors to the
// final (EOF) token, meaning the user simply hasn't finished typing.
func allAtEOF(collector *diag.Collector, tokens []token.Token) bool {
	if len(tokens) == 0 {
		return false
	}
	eof := tokens[len(tokens)-1]
	items := collector.Items()
	if len(items) == 0 {
		return false
	}
	for _, d := range items {
		if d.Pos.Line != eof.Line || d.Pos.Column != eof.Column {
			return false
		}
	}
	return true
}
