// Package importer reconciles parsed contacts against a contact store,
// deduplicating them with a cache of the store's existing contacts.
package importer

import (
	"strings"

	vcf "github.com/emersion/go-vcf"
)

// Cache indexes the contacts already present in a store so that
// imported contacts can be matched against them and their associated
// data deduplicated. It is built and consumed sequentially within one
// import run.
type Cache struct {
	// one lookup map per identifier type
	byName   map[string]int64
	byOrg    map[string]int64
	byNumber map[string]int64
	byEmail  map[string]int64

	// per-contact sets of normalized associated values
	numbers       map[int64]map[string]struct{}
	emails        map[int64]map[string]struct{}
	addresses     map[int64]map[string]struct{}
	organisations map[int64]map[string]struct{}
	notes         map[int64]map[string]struct{}
	birthdays     map[int64]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		byName:        make(map[string]int64),
		byOrg:         make(map[string]int64),
		byNumber:      make(map[string]int64),
		byEmail:       make(map[string]int64),
		numbers:       make(map[int64]map[string]struct{}),
		emails:        make(map[int64]map[string]struct{}),
		addresses:     make(map[int64]map[string]struct{}),
		organisations: make(map[int64]map[string]struct{}),
		notes:         make(map[int64]map[string]struct{}),
		birthdays:     make(map[int64]string),
	}
}

func (c *Cache) lookupMap(t vcf.IdentifierType) map[string]int64 {
	switch t {
	case vcf.IdentifierName:
		return c.byName
	case vcf.IdentifierOrganisation:
		return c.byOrg
	case vcf.IdentifierNumber:
		return c.byNumber
	case vcf.IdentifierEmail:
		return c.byEmail
	}
	return nil
}

// Lookup returns the contact id a cache identifier resolves to, if
// any.
func (c *Cache) Lookup(id vcf.Identifier) (int64, bool) {
	m := c.lookupMap(id.Type)
	if m == nil {
		return 0, false
	}
	contactID, ok := m[id.Detail]
	return contactID, ok
}

// AddLookup records that the identifier resolves to the given contact.
func (c *Cache) AddLookup(id vcf.Identifier, contactID int64) {
	if m := c.lookupMap(id.Type); m != nil {
		m[id.Detail] = contactID
	}
}

// RemoveLookup removes the cache entry for the identifier, returning
// the contact id it resolved to.
func (c *Cache) RemoveLookup(id vcf.Identifier) (int64, bool) {
	m := c.lookupMap(id.Type)
	if m == nil {
		return 0, false
	}
	contactID, ok := m[id.Detail]
	delete(m, id.Detail)
	return contactID, ok
}

// RemoveAssociatedData forgets all data associated with a contact.
func (c *Cache) RemoveAssociatedData(contactID int64) {
	delete(c.numbers, contactID)
	delete(c.emails, contactID)
	delete(c.addresses, contactID)
	delete(c.organisations, contactID)
	delete(c.notes, contactID)
	delete(c.birthdays, contactID)
}

func hasAssociated(m map[int64]map[string]struct{}, contactID int64, value string) bool {
	if value == "" {
		return false
	}
	set, ok := m[contactID]
	if !ok {
		return false
	}
	_, ok = set[value]
	return ok
}

func addAssociated(m map[int64]map[string]struct{}, contactID int64, value string) {
	if value == "" {
		return
	}
	set, ok := m[contactID]
	if !ok {
		set = make(map[string]struct{})
		m[contactID] = set
	}
	set[value] = struct{}{}
}

// HasAssociatedNumber reports whether the contact is already known to
// have the number, regardless of its type annotation.
func (c *Cache) HasAssociatedNumber(contactID int64, number string) bool {
	return hasAssociated(c.numbers, contactID, vcf.NormalizeNumber(number))
}

// AddAssociatedNumber records the number as belonging to the contact.
func (c *Cache) AddAssociatedNumber(contactID int64, number string) {
	addAssociated(c.numbers, contactID, vcf.NormalizeNumber(number))
}

// HasAssociatedEmail reports whether the contact is already known to
// have the email address.
func (c *Cache) HasAssociatedEmail(contactID int64, email string) bool {
	return hasAssociated(c.emails, contactID, vcf.NormalizeEmail(email))
}

// AddAssociatedEmail records the email address as belonging to the
// contact.
func (c *Cache) AddAssociatedEmail(contactID int64, email string) {
	addAssociated(c.emails, contactID, vcf.NormalizeEmail(email))
}

// HasAssociatedAddress reports whether the contact is already known to
// have the postal address.
func (c *Cache) HasAssociatedAddress(contactID int64, address string) bool {
	return hasAssociated(c.addresses, contactID, vcf.NormalizeAddress(address))
}

// AddAssociatedAddress records the postal address as belonging to the
// contact.
func (c *Cache) AddAssociatedAddress(contactID int64, address string) {
	addAssociated(c.addresses, contactID, vcf.NormalizeAddress(address))
}

// HasAssociatedOrganisation reports whether the contact is already
// known to belong to the organisation.
func (c *Cache) HasAssociatedOrganisation(contactID int64, organisation string) bool {
	return hasAssociated(c.organisations, contactID, vcf.NormalizeOrganisation(organisation))
}

// AddAssociatedOrganisation records the organisation as belonging to
// the contact.
func (c *Cache) AddAssociatedOrganisation(contactID int64, organisation string) {
	addAssociated(c.organisations, contactID, vcf.NormalizeOrganisation(organisation))
}

// HasAssociatedNote reports whether the contact already has the note.
func (c *Cache) HasAssociatedNote(contactID int64, note string) bool {
	return hasAssociated(c.notes, contactID, vcf.NormalizeNote(note))
}

// AddAssociatedNote records the note as belonging to the contact.
func (c *Cache) AddAssociatedNote(contactID int64, note string) {
	addAssociated(c.notes, contactID, vcf.NormalizeNote(note))
}

// HasAssociatedBirthday reports whether the contact already has this
// birthday recorded.
func (c *Cache) HasAssociatedBirthday(contactID int64, birthday string) bool {
	birthday = vcf.NormalizeBirthday(birthday)
	if birthday == "" {
		return false
	}
	found, ok := c.birthdays[contactID]
	return ok && strings.EqualFold(found, birthday)
}

// AddAssociatedBirthday records the contact's birthday.
func (c *Cache) AddAssociatedBirthday(contactID int64, birthday string) {
	birthday = vcf.NormalizeBirthday(birthday)
	if birthday == "" {
		return
	}
	c.birthdays[contactID] = birthday
}
