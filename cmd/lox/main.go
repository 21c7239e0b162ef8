package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/clarete/lox"
)

const (
	exitUsage   = 64
	exitCompile = 65
	exitRuntime = 70
	exitIOError = 74
)

func main() {
	switch len(os.Args) {
	case 1:
		repl()
	case 2:
		runFile(os.Args[1])
	default:
		fmt.Fprintln(os.Stderr, "Usage: lox [path]")
		os.Exit(exitUsage)
	}
}

func runFile(path string) {
	err := lox.RunFile(path, lox.VMOptions{})
	if err == nil {
		return
	}

	var pathErr *fs.PathError
	switch {
	case errors.As(err, &pathErr):
		fmt.Fprintf(os.Stderr, "Can't open file %q: %s\n", path, pathErr.Err.Error())
		os.Exit(exitIOError)
	default:
		switch err.(type) {
		case *lox.CompileError:
			os.Exit(exitCompile)
		default:
			os.Exit(exitRuntime)
		}
	}
}

// repl reads one line at a time from standard input, interpreting
// each as a whole program against the same long-lived VM, so
// top-level variable and function definitions persist across lines.
func repl() {
	vm := lox.NewVM(lox.VMOptions{})
	scanner := bufio.NewScanner(os.Stdin)

	const disasmPrefix = ".disasm "

	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) > len(disasmPrefix) && line[:len(disasmPrefix)] == disasmPrefix {
			out, err := vm.Disassemble(line[len(disasmPrefix):])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			} else {
				fmt.Print(out)
			}
			fmt.Print("> ")
			continue
		}
		vm.Interpret(line) // errors already reported to stderr; REPL keeps going
		fmt.Print("> ")
	}
}
