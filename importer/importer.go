package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	vcf "github.com/emersion/go-vcf"
)

// ErrAborted is returned when the user chose to abort the import.
var ErrAborted = errors.New("importer: aborted")

// Action is a merge setting or merge decision.
type Action int

const (
	// ActionPrompt asks the user what to do when a duplicate is found.
	ActionPrompt Action = iota
	// ActionKeep skips contacts that already exist in the store.
	ActionKeep
	// ActionMerge adds only genuinely new data to existing contacts.
	ActionMerge
	// ActionOverwrite deletes the existing contact and recreates it
	// from the imported data.
	ActionOverwrite
)

// Backend is the contact store an import writes into. Implementations
// report write failures as errors; the importer surfaces them to the
// user rather than retrying.
type Backend interface {
	CountContacts(ctx context.Context) (int, error)
	// Contacts calls fn for every contact in the store, with its id
	// and its accumulated record.
	Contacts(ctx context.Context, fn func(id int64, rec *vcf.Record) error) error
	CreateContact(ctx context.Context, name string) (int64, error)
	DeleteContact(ctx context.Context, id int64) error
	AddNumber(ctx context.Context, id int64, n vcf.Number) error
	AddEmail(ctx context.Context, id int64, e vcf.Email) error
	AddAddress(ctx context.Context, id int64, a vcf.Address) error
	AddOrganisation(ctx context.Context, id int64, o vcf.Organisation) error
	AddNote(ctx context.Context, id int64, note string) error
	SetBirthday(ctx context.Context, id int64, birthday string) error
}

// UI is the importer's channel to the user. Prompt methods block until
// the user has decided; the importer suspends at these points.
type UI interface {
	Progress(current, max int)
	Message(text string)
	// ContinueOrAbort reports whether the user chose to continue.
	ContinueOrAbort(msg string) bool
	// MergeDecision asks what to do with a duplicate of the named
	// contact. The second return value makes the decision permanent
	// for the rest of the run. Returning ActionPrompt asks again.
	MergeDecision(contactDetail string) (Action, bool)
}

// Stats counts what happened to the contacts of an import run.
type Stats struct {
	Created     int
	Merged      int
	Overwritten int
	Skipped     int
}

// Options configure an import run.
type Options struct {
	// MergeSetting is the initial merge setting. The zero value
	// prompts on every duplicate.
	MergeSetting Action
}

// Importer drives an import run: it matches each finalized contact
// against the cache, decides whether to create, merge, overwrite or
// skip, and writes only genuinely new data to the backend.
type Importer struct {
	backend Backend
	ui      UI
	cache   *Cache

	merge        Action
	lastDecision Action
	stats        Stats
}

// New returns an importer over the given backend and UI. opts may be
// nil.
func New(backend Backend, ui UI, opts *Options) *Importer {
	im := &Importer{
		backend: backend,
		ui:      ui,
		cache:   NewCache(),
	}
	if opts != nil {
		im.merge = opts.MergeSetting
	}
	return im
}

// Stats returns the counts accumulated so far.
func (im *Importer) Stats() Stats {
	return im.stats
}

// Cache exposes the importer's cache, mainly for inspection in tests.
func (im *Importer) Cache() *Cache {
	return im.cache
}

// PopulateCache fills the cache from the backend's existing contacts.
// Each contact gets one lookup, by the first of its identifying
// details (name, organisation, number, email), plus all of its
// associated data.
func (im *Importer) PopulateCache(ctx context.Context) error {
	im.ui.Message("caching existing contacts")

	return im.backend.Contacts(ctx, func(id int64, rec *vcf.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		c := rec.Contact()
		if ident, ok := c.Identifier(); ok {
			im.cache.AddLookup(ident, id)
		}
		for _, o := range c.Organisations {
			im.cache.AddAssociatedOrganisation(id, o.Name)
		}
		for _, n := range c.Numbers {
			im.cache.AddAssociatedNumber(id, n.Value)
		}
		for _, e := range c.Emails {
			im.cache.AddAssociatedEmail(id, e.Value)
		}
		for _, a := range c.Addresses {
			im.cache.AddAssociatedAddress(id, a.Value)
		}
		for _, note := range c.Notes {
			im.cache.AddAssociatedNote(id, note)
		}
		if c.Birthday != "" {
			im.cache.AddAssociatedBirthday(id, c.Birthday)
		}
		return nil
	})
}

// ImportData imports every vCard in data. name labels the input in
// messages shown to the user. Malformed or unidentifiable vCards are
// skipped with the user's consent; ErrAborted is returned when the
// user aborts instead.
func (im *Importer) ImportData(ctx context.Context, data []byte, name string) error {
	max, err := vcf.CountCards(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, vcf.ErrVMsgFile) {
			if !im.ui.ContinueOrAbort(name + " contains vMsg data, not vCards") {
				return ErrAborted
			}
			im.stats.Skipped++
			return nil
		}
		return err
	}

	im.ui.Progress(0, max)

	dec := vcf.NewDecoder(bytes.NewReader(data))
	done := 0
	for {
		contact, err := dec.Next()
		if err == io.EOF {
			break
		}

		var perr *vcf.ParseError
		if errors.As(err, &perr) {
			msg := fmt.Sprintf("error parsing %v, line %v: %v", name, perr.Line, parseErrorText(perr))
			if !im.ui.ContinueOrAbort(msg) {
				return ErrAborted
			}
			im.stats.Skipped++
			done++
			im.ui.Progress(done, max)
			continue
		}
		if err != nil {
			return err
		}

		if err := im.ImportContact(ctx, contact); err != nil {
			return err
		}
		done++
		im.ui.Progress(done, max)
	}
	return nil
}

func parseErrorText(perr *vcf.ParseError) string {
	if errors.Is(perr, vcf.ErrNotIdentifiable) {
		return "the vCard does not contain enough information to identify the contact"
	}
	if perr.Msg != "" {
		return perr.Msg
	}
	return perr.Error()
}

// ImportContact reconciles one finalized contact with the store.
func (im *Importer) ImportContact(ctx context.Context, contact *vcf.Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ident, ok := contact.Identifier()
	if !ok {
		return vcf.ErrNotIdentifiable
	}

	id, exists := im.cache.Lookup(ident)

	skip, err := im.shouldSkip(ctx, ident.Detail, exists, im.merge)
	if err != nil {
		return err
	}
	if skip {
		im.stats.Skipped++
		return nil
	}

	// when overwriting, destroy the existing contact before importing
	deleted := false
	if exists && im.lastDecision == ActionOverwrite {
		if err := im.backend.DeleteContact(ctx, id); err != nil {
			return im.writeFailed(err)
		}
		im.cache.RemoveLookup(ident)
		im.cache.RemoveAssociatedData(id)
		deleted = true
		exists = false
	}

	if !exists {
		id, err = im.backend.CreateContact(ctx, contact.Name)
		if err != nil {
			return im.writeFailed(err)
		}
		im.cache.AddLookup(ident, id)
		if deleted {
			im.stats.Overwritten++
		} else {
			im.stats.Created++
		}
	} else {
		im.stats.Merged++
	}

	if err := im.importParts(ctx, id, contact); err != nil {
		return im.writeFailed(err)
	}
	return nil
}

// importParts writes the contact's associated data, skipping values
// the cache already knows for this contact. Type annotations are not
// part of the duplicate check: if the value exists at all, it does not
// need importing.
func (im *Importer) importParts(ctx context.Context, id int64, contact *vcf.Contact) error {
	for _, n := range contact.Numbers {
		if im.cache.HasAssociatedNumber(id, n.Value) {
			continue
		}
		if err := im.backend.AddNumber(ctx, id, n); err != nil {
			return err
		}
		im.cache.AddAssociatedNumber(id, n.Value)
	}

	for _, e := range contact.Emails {
		if im.cache.HasAssociatedEmail(id, e.Value) {
			continue
		}
		if err := im.backend.AddEmail(ctx, id, e); err != nil {
			return err
		}
		im.cache.AddAssociatedEmail(id, e.Value)
	}

	for _, a := range contact.Addresses {
		if im.cache.HasAssociatedAddress(id, a.Value) {
			continue
		}
		if err := im.backend.AddAddress(ctx, id, a); err != nil {
			return err
		}
		im.cache.AddAssociatedAddress(id, a.Value)
	}

	for _, o := range contact.Organisations {
		if im.cache.HasAssociatedOrganisation(id, o.Name) {
			continue
		}
		if err := im.backend.AddOrganisation(ctx, id, o); err != nil {
			return err
		}
		im.cache.AddAssociatedOrganisation(id, o.Name)
	}

	for _, note := range contact.Notes {
		if im.cache.HasAssociatedNote(id, note) {
			continue
		}
		if err := im.backend.AddNote(ctx, id, note); err != nil {
			return err
		}
		im.cache.AddAssociatedNote(id, note)
	}

	if contact.Birthday != "" && !im.cache.HasAssociatedBirthday(id, contact.Birthday) {
		if err := im.backend.SetBirthday(ctx, id, contact.Birthday); err != nil {
			return err
		}
		im.cache.AddAssociatedBirthday(id, contact.Birthday)
	}

	return nil
}

// shouldSkip decides whether to skip a contact given whether it
// already exists and the merge setting in effect, prompting the user
// when required.
func (im *Importer) shouldSkip(ctx context.Context, detail string, exists bool, setting Action) (bool, error) {
	im.lastDecision = setting

	switch setting {
	case ActionKeep:
		return exists, nil

	case ActionPrompt:
		if !exists {
			return false, nil
		}
		decision := ActionPrompt
		var always bool
		for decision == ActionPrompt {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			decision, always = im.ui.MergeDecision(detail)
		}
		if always {
			im.merge = decision
		}
		return im.shouldSkip(ctx, detail, exists, decision)
	}

	// overwriting and merging never skip
	return false, nil
}

// writeFailed surfaces a backend write failure and lets the user
// choose between continuing with the next contact and aborting.
func (im *Importer) writeFailed(err error) error {
	if im.ui.ContinueOrAbort(fmt.Sprintf("unable to add contact: %v", err)) {
		im.stats.Skipped++
		return nil
	}
	return ErrAborted
}
