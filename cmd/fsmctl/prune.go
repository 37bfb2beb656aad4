package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/junbin-yang/go-fsmkit/pkg/document"
)

func runPrune(args []string, stdout io.Writer) error {
	var common commonFlags
	fs := newFlagSet("prune", func(fs *flag.FlagSet) {
		fmt.Fprintln(fs.Output(), "Usage: fsmctl prune [options]")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Remove states that have no outgoing transitions and no incoming")
		fmt.Fprintln(fs.Output(), "transitions from other states. The current state is kept.")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Options:")
		fs.PrintDefaults()
	})
	common.register(fs)
	out := fs.String("out", "", "Output file (defaults to stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&common)
	if err != nil {
		return err
	}
	defer a.Close()

	src, m, err := a.loadGraph(common.in)
	if err != nil {
		return err
	}

	removed := m.Prune()
	for _, s := range removed {
		fmt.Fprintf(os.Stderr, "pruned: %s\n", s.Name())
	}

	doc := document.FromMachine(m)
	doc.Name = src.Name
	return writeDocument(stdout, *out, doc, document.FormatYAML)
}
