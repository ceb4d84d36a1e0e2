package vcf

import (
	"regexp"
	"strings"
)

// IdentifierType says which kind of contact detail an Identifier was
// built from.
type IdentifierType int

const (
	IdentifierName IdentifierType = iota
	IdentifierOrganisation
	IdentifierNumber
	IdentifierEmail
)

// Identifier is a normalized (type, detail) pair used to find an
// existing contact during import reconciliation. Two identifiers are
// equal iff both type and normalized detail match. It is not a
// reference to a particular contact and may not identify one.
type Identifier struct {
	Type   IdentifierType
	Detail string
}

// NewIdentifier builds an identifier from a raw detail value,
// normalizing it per type. It reports false when the detail normalizes
// to nothing usable.
func NewIdentifier(t IdentifierType, detail string) (Identifier, bool) {
	switch t {
	case IdentifierName:
		detail = NormalizeName(detail)
	case IdentifierOrganisation:
		detail = NormalizeOrganisation(detail)
	case IdentifierNumber:
		detail = NormalizeNumber(detail)
	case IdentifierEmail:
		detail = NormalizeEmail(detail)
	default:
		return Identifier{}, false
	}
	if detail == "" {
		return Identifier{}, false
	}
	return Identifier{Type: t, Detail: detail}, true
}

// identifierForRecord computes a record's identifier using the
// priority name, then primary organisation, number and email.
func identifierForRecord(r *Record) (Identifier, bool) {
	if r.nameSet {
		if id, ok := NewIdentifier(IdentifierName, r.name); ok {
			return id, true
		}
	}
	if r.primaryOrg != "" {
		if id, ok := NewIdentifier(IdentifierOrganisation, r.primaryOrg); ok {
			return id, true
		}
	}
	if r.primaryNumber != "" {
		if id, ok := NewIdentifier(IdentifierNumber, r.primaryNumber); ok {
			return id, true
		}
	}
	if r.primaryEmail != "" {
		if id, ok := NewIdentifier(IdentifierEmail, r.primaryEmail); ok {
			return id, true
		}
	}
	return Identifier{}, false
}

var numberStripRegexp = regexp.MustCompile(`[-() ]`)

// NormalizeName trims a contact name; it returns the empty string when
// nothing remains.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// NormalizeNumber strips dashes, parentheses and spaces from a phone
// number.
func NormalizeNumber(number string) string {
	return numberStripRegexp.ReplaceAllString(strings.TrimSpace(number), "")
}

// NormalizeEmail trims and lower-cases an email address in full. Note
// that this is the comparison form; sanitization of addresses being
// stored preserves the local part's case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeOrganisation trims an organisation name.
func NormalizeOrganisation(organisation string) string {
	return strings.TrimSpace(organisation)
}

// NormalizeAddress trims a postal address.
func NormalizeAddress(address string) string {
	return strings.TrimSpace(address)
}

// NormalizeNote trims a note.
func NormalizeNote(note string) string {
	return strings.TrimSpace(note)
}

// NormalizeBirthday trims a birthday value.
func NormalizeBirthday(birthday string) string {
	return strings.TrimSpace(birthday)
}
