package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/NumSlower/ocl/internal/bytecode"
	"github.com/NumSlower/ocl/internal/codegen"
	"github.com/NumSlower/ocl/internal/diag"
	"github.com/NumSlower/ocl/internal/lexer"
	"github.com/NumSlower/ocl/internal/parser"
)

// dumpCmd compiles a source file and prints its disassembly without
// running it, grounded on the teacher's cmd_emit_bytecode.go.
type dumpCmd struct {
	out string
}

func (*dumpCmd) Name() string     { return "dump" }
func (*dumpCmd) Synopsis() string { return "Compile a source file and print its bytecode" }
func (*dumpCmd) Usage() string {
	return "ocl dump [--out file] <file>\n"
}

func (d *dumpCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.out, "out", "", "write the disassembly to this file instead of stdout")
}

func (d *dumpCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "file not provided")
		return subcommands.ExitUsageError
	}
	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	collector := diag.New()
	lex := lexer.New(string(data), collector)
	tokens := lex.Scan()

	p := parser.New(tokens, collector)
	stmts := p.Parse()
	if collector.HasErrors() {
		printDiagnostics(filename, collector)
		return subcommands.ExitFailure
	}

	chunk := codegen.New(collector).Generate(stmts)
	if collector.HasErrors() {
		printDiagnostics(filename, collector)
		return subcommands.ExitFailure
	}

	text := bytecode.Disassemble(chunk)
	if d.out == "" {
		fmt.Print(text)
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(d.out, []byte(text), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write disassembly: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
