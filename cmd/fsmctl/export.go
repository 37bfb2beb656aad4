package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/junbin-yang/go-fsmkit/pkg/document"
)

func runExport(args []string, stdout io.Writer) error {
	var common commonFlags
	fs := newFlagSet("export", func(fs *flag.FlagSet) {
		fmt.Fprintln(fs.Output(), "Usage: fsmctl export [options]")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Export a graph document as YAML or Graphviz DOT")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Examples:")
		fmt.Fprintln(fs.Output(), "  fsmctl export -in order.yml -format dot -out order.dot")
	})
	common.register(fs)
	format := fs.String("format", "", "Output format: yaml or dot (defaults to document.format)")
	out := fs.String("out", "", "Output file (defaults to stdout)")
	rankdir := fs.String("rankdir", "LR", "Graphviz rank direction for dot output")
	props := fs.Bool("props", false, "Show state properties in dot output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&common)
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := a.formatOrDefault(*format)
	if err != nil {
		return err
	}
	src, m, err := a.loadGraph(common.in)
	if err != nil {
		return err
	}

	doc := document.FromMachine(m)
	doc.Name = src.Name
	if f == document.FormatDOT && *out == "" {
		return document.WriteDOT(stdout, doc, document.DOTOptions{RankDir: *rankdir, ShowProperties: *props})
	}
	return writeDocument(stdout, *out, doc, f)
}
