package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/emersion/go-ical"

	vcf "github.com/emersion/go-vcf"
	"github.com/emersion/go-vcf/exporter"
	"github.com/emersion/go-vcf/sqlite"
)

func writeBirthdayCalendar(ctx context.Context, store *sqlite.Store, path string) error {
	var contacts []*vcf.Contact
	err := store.Contacts(ctx, func(id int64, rec *vcf.Record) error {
		contact, err := rec.Finalize()
		if errors.Is(err, vcf.ErrNotIdentifiable) {
			return nil
		}
		if err != nil {
			return err
		}
		contacts = append(contacts, contact)
		return nil
	})
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := ical.NewEncoder(f).Encode(exporter.BirthdayCalendar(contacts)); err != nil {
		return err
	}
	return f.Close()
}

func main() {
	var dbPath, outPath, birthdaysPath string
	var groups, addUID bool
	flag.StringVar(&dbPath, "db", "contacts.db", "contact database path")
	flag.StringVar(&outPath, "o", "", "output file (default stdout)")
	flag.StringVar(&birthdaysPath, "birthdays", "", "also write a birthday iCalendar to this path")
	flag.BoolVar(&groups, "groups", false, "write group memberships as X-GROUPS")
	flag.BoolVar(&addUID, "uid", false, "write a UID property per card")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [options...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	store, err := sqlite.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		out = f
	}

	ctx := context.Background()
	ex := exporter.New(store)
	ex.Options = vcf.EncoderOptions{Groups: groups, AddUID: addUID}
	ex.Progress = func(current, max int) {
		fmt.Fprintf(os.Stderr, "\r%d/%d", current, max)
		if current == max {
			fmt.Fprintln(os.Stderr)
		}
	}

	stats, err := ex.Export(ctx, out)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("exported %d, skipped %d", stats.Exported, stats.Skipped)

	if birthdaysPath != "" {
		if err := writeBirthdayCalendar(ctx, store, birthdaysPath); err != nil {
			log.Fatal(err)
		}
	}
}
