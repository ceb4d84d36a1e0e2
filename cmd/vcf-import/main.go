package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/emersion/go-vcf/importer"
	"github.com/emersion/go-vcf/sqlite"
)

// terminalUI implements the importer prompts on stdin/stdout.
type terminalUI struct {
	in *bufio.Reader
}

func newTerminalUI() *terminalUI {
	return &terminalUI{in: bufio.NewReader(os.Stdin)}
}

func (ui *terminalUI) Progress(current, max int) {
	fmt.Fprintf(os.Stderr, "\r%d/%d", current, max)
	if current == max {
		fmt.Fprintln(os.Stderr)
	}
}

func (ui *terminalUI) Message(text string) {
	log.Print(text)
}

func (ui *terminalUI) ContinueOrAbort(msg string) bool {
	for {
		fmt.Printf("%s\ncontinue? [y/n] ", msg)
		line, err := ui.in.ReadString('\n')
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}

func (ui *terminalUI) MergeDecision(contactDetail string) (importer.Action, bool) {
	for {
		fmt.Printf("%q already exists: [k]eep, [m]erge, [o]verwrite (uppercase = always)? ", contactDetail)
		line, err := ui.in.ReadString('\n')
		if err != nil {
			return importer.ActionKeep, true
		}
		answer := strings.TrimSpace(line)
		always := answer != strings.ToLower(answer)
		switch strings.ToLower(answer) {
		case "k", "keep":
			return importer.ActionKeep, always
		case "m", "merge":
			return importer.ActionMerge, always
		case "o", "overwrite":
			return importer.ActionOverwrite, always
		}
	}
}

func parseMergeSetting(s string) (importer.Action, error) {
	switch s {
	case "prompt":
		return importer.ActionPrompt, nil
	case "keep":
		return importer.ActionKeep, nil
	case "merge":
		return importer.ActionMerge, nil
	case "overwrite":
		return importer.ActionOverwrite, nil
	}
	return 0, fmt.Errorf("unknown merge setting %q", s)
}

func main() {
	var dbPath, mergeFlag string
	flag.StringVar(&dbPath, "db", "contacts.db", "contact database path")
	flag.StringVar(&mergeFlag, "merge", "prompt", "duplicate handling: prompt, keep, merge or overwrite")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [options...] files...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	mergeSetting, err := parseMergeSetting(mergeFlag)
	if err != nil {
		log.Fatal(err)
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	im := importer.New(store, newTerminalUI(), &importer.Options{
		MergeSetting: mergeSetting,
	})
	if err := im.PopulateCache(ctx); err != nil {
		log.Fatal(err)
	}

	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatal(err)
		}
		if err := im.ImportData(ctx, data, path); err != nil {
			log.Fatal(err)
		}
	}

	stats := im.Stats()
	log.Printf("created %d, merged %d, overwritten %d, skipped %d",
		stats.Created, stats.Merged, stats.Overwritten, stats.Skipped)
}
