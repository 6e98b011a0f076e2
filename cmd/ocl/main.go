// Command ocl is the language's CLI entry point: a google/subcommands
// dispatcher grounded on the teacher's cmd_run.go / cmd_repl_compiled.go
// / cmd_emit_bytecode.go, generalized into three subcommands (run, repl,
// dump) over the full five-stage pipeline instead of Nilan's two.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// logger is the CLI's operational logger — REPL lifecycle and run
// start-up tracing (file and --strict setting); the --time figure is
// printed directly to stderr, not through it — kept distinct from the
// diag.Collector's user-facing source diagnostics (spec §7).
var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}).With().Timestamp().Logger()

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&dumpCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
