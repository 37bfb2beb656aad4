package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/junbin-yang/go-fsmkit/pkg/document"
	"github.com/junbin-yang/go-fsmkit/pkg/logger"
	"github.com/junbin-yang/go-fsmkit/pkg/statemachine"
)

func runRun(args []string, stdout io.Writer) error {
	var common commonFlags
	fs := newFlagSet("run", func(fs *flag.FlagSet) {
		fmt.Fprintln(fs.Output(), "Usage: fsmctl run [options] message...")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Send messages in order and print the state after each step.")
		fmt.Fprintln(fs.Output(), "Use '-' for the EMPTY message and '*' for ANY.")
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Examples:")
		fmt.Fprintln(fs.Output(), "  fsmctl run -in order.yml pay ship deliver")
		fmt.Fprintln(fs.Output(), "  fsmctl run -in order.yml -init -history - pay")
	})
	common.register(fs)
	fromStart := fs.Bool("init", false, "Start from the first state even if the document marks a current state")
	history := fs.Bool("history", false, "Print the transition history as JSON at the end")
	out := fs.String("out", "", "Save the resulting graph (with its current state) to this file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(&common)
	if err != nil {
		return err
	}
	defer a.Close()

	rec := statemachine.NewHistoryRecorder(a.cfg.Machine.HistoryLimit)
	src, m, err := a.loadGraph(common.in, statemachine.WithObserver(rec.Observer()))
	if err != nil {
		return err
	}
	if *fromStart {
		if err := m.Init(); err != nil {
			return err
		}
	}

	cur, ok := m.Current()
	if !ok {
		return statemachine.ErrEmptyGraph
	}
	fmt.Fprintf(stdout, "start: %s\n", cur.Name())

	for _, arg := range fs.Args() {
		msg := parseMessage(arg)
		if next, ok := m.GetNext(msg); ok {
			fmt.Fprintf(stdout, "%s -> %s\n", msg, next.Name())
			continue
		}
		cur, _ = m.Current()
		fmt.Fprintf(stdout, "%s -> %s (no transition)\n", msg, cur.Name())
		a.log.Debug("message rejected", logger.String("message", msg.String()), logger.String("state", cur.Name()))
	}

	if *history {
		data, err := json.MarshalIndent(rec.Records(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
	}

	if *out != "" {
		doc := document.FromMachine(m)
		doc.Name = src.Name
		f, err := document.FormatFromPath(*out)
		if err != nil {
			f = document.FormatYAML
		}
		return document.SaveDocument(document.OSFileSystem{}, *out, doc, f)
	}
	return nil
}
