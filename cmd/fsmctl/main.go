package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "export":
		err = runExport(os.Args[2:], os.Stdout)
	case "run":
		err = runRun(os.Args[2:], os.Stdout)
	case "prune":
		err = runPrune(os.Args[2:], os.Stdout)
	case "watch":
		err = runWatch(os.Args[2:], os.Stdin)
	case "version", "-v", "--version":
		fmt.Printf("fsmctl version %s\n", version)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "fsmctl - Finite state machine toolkit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  fsmctl <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  export   Export a graph document as YAML or Graphviz DOT")
	fmt.Fprintln(w, "  run      Send messages to a graph and print each step")
	fmt.Fprintln(w, "  prune    Remove orphan states from a graph")
	fmt.Fprintln(w, "  watch    Re-export a graph whenever its document changes")
	fmt.Fprintln(w, "  version  Show version information")
	fmt.Fprintln(w, "  help     Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'fsmctl <command> -h' for more information on a command.")
}
