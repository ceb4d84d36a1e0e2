// Package exporter writes the contacts of a store out as vCard 3.0
// text, and can derive an iCalendar of contact birthdays.
package exporter

import (
	"context"
	"errors"
	"io"

	vcf "github.com/emersion/go-vcf"
)

// Source is the contact store an export reads from.
type Source interface {
	CountContacts(ctx context.Context) (int, error)
	// Contacts calls fn for every contact in the store, with its id
	// and its accumulated record.
	Contacts(ctx context.Context, fn func(id int64, rec *vcf.Record) error) error
}

// ProgressFunc reports export progress. It may be nil.
type ProgressFunc func(current, max int)

// Stats counts the outcome of an export run.
type Stats struct {
	Exported int
	// Skipped counts contacts with no identifiable feature, which
	// cannot be written as vCards.
	Skipped int
}

// Exporter writes every contact of a Source to a vCard stream.
type Exporter struct {
	// Options are passed to the vCard encoder.
	Options vcf.EncoderOptions
	// Progress, when set, is called after each contact.
	Progress ProgressFunc

	src Source
}

// New returns an exporter over the given source.
func New(src Source) *Exporter {
	return &Exporter{src: src}
}

// Export writes all contacts to w. Contacts without an identifiable
// feature are skipped and counted, not errors.
func (ex *Exporter) Export(ctx context.Context, w io.Writer) (Stats, error) {
	var stats Stats

	max, err := ex.src.CountContacts(ctx)
	if err != nil {
		return stats, err
	}

	enc := vcf.NewEncoder(w)
	enc.Options = ex.Options

	err = ex.src.Contacts(ctx, func(id int64, rec *vcf.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		contact, err := rec.Finalize()
		if errors.Is(err, vcf.ErrNotIdentifiable) {
			stats.Skipped++
			return nil
		}
		if err != nil {
			return err
		}

		if err := enc.Encode(contact); err != nil {
			return err
		}
		stats.Exported++

		if ex.Progress != nil {
			ex.Progress(stats.Exported+stats.Skipped, max)
		}
		return nil
	})
	return stats, err
}
