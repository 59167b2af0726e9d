// Command loxvm is the thin, explicitly non-core CLI front end for the
// compiler/VM core: run a script file, or drop into a line-edited REPL.
// Process-level concerns here (flag parsing, file reading, the REPL loop)
// are out of spec.md's scope by design — see spec.md §1.
package main

import (
	"fmt"
	"os"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lado-saha/loxvm/internal/vm"
)

const version = "0.1.0"

func main() {
	var disassemble bool
	var trace bool

	root := &cobra.Command{
		Use:     "loxvm [script]",
		Short:   "A bytecode compiler and stack VM for a small scripting language",
		Version: version,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := vmOptions(disassemble, trace)
			if len(args) == 1 {
				return runFile(args[0], opts)
			}
			return runREPL(opts)
		},
	}

	root.Flags().BoolVar(&disassemble, "disassemble", false, "print chunk disassembly after compiling")
	root.Flags().BoolVar(&trace, "trace", false, "trace stack and instructions during execution")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func vmOptions(disassemble, trace bool) []vm.Option {
	var opts []vm.Option
	if disassemble {
		opts = append(opts, vm.WithDebugPrintCode())
	}
	if trace {
		opts = append(opts, vm.WithDebugTraceExecution())
	}
	return opts
}

// exitCode maps a Result to the traditional sysexits.h-style codes the
// original clox CLI uses: 65 for a compile error, 70 for a runtime error.
func exitCode(result vm.Result) int {
	switch result {
	case vm.CompileError:
		return 65
	case vm.RuntimeError:
		return 70
	default:
		return 0
	}
}

func runFile(path string, opts []vm.Option) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	machine := vm.New(opts...)
	result := machine.Interpret(string(source))
	if code := exitCode(result); code != 0 {
		os.Exit(code)
	}
	return nil
}

func runREPL(opts []vm.Option) error {
	prompt := "> "
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		prompt = ""
	}

	rl, err := readline.New(prompt)
	if err != nil {
		return err
	}
	defer rl.Close()

	machine := vm.New(opts...)
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or Ctrl-D/Ctrl-C
			return nil
		}
		if line == "" {
			continue
		}
		machine.Interpret(line)
	}
}
