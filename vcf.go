// Package vcf implements a vCard 2.1/3.0 codec and a contact record
// model suitable for reconciling imported contacts against a contact
// store.
//
// vCard 3.0 is defined in RFC 2426. The decoder also accepts the legacy
// 2.1 format, including quoted-printable encoded values and charset
// parameters.
package vcf

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNotIdentifiable is returned when a contact record carries no
	// detail (name, organisation, number or email) that could identify
	// it.
	ErrNotIdentifiable = errors.New("vcf: contact has no identifiable detail")

	// ErrVMsgFile is returned when the input turns out to be vMsg data
	// rather than vCard data.
	ErrVMsgFile = errors.New("vcf: input is vMsg data, not vCard")
)

// Type classifies a phone number, email address or postal address.
type Type int

const (
	TypeHome Type = iota
	TypeWork
	TypeMobile // only used with phone numbers
	TypeFaxHome
	TypeFaxWork
	TypePager
)

func isNonVoice(t Type) bool {
	return t == TypeFaxHome || t == TypeFaxWork || t == TypePager
}

// Organisation is an organisation membership of a contact.
type Organisation struct {
	Name      string
	Title     string
	Preferred bool
}

// Number is a phone number of a contact.
type Number struct {
	Value     string
	Type      Type
	Preferred bool
}

// Email is an email address of a contact.
type Email struct {
	Value     string
	Type      Type
	Preferred bool
}

// Address is a postal address of a contact, stored as formatted text.
type Address struct {
	Value string
	Type  Type
}

// Contact is a finalized contact record. It is produced by
// Record.Finalize and consumed by the encoder and the import engine.
// Entries appear in the order they were added to the record.
type Contact struct {
	Name          string
	Organisations []Organisation
	Numbers       []Number
	Emails        []Email
	Addresses     []Address
	Notes         []string
	Groups        []string
	Birthday      string

	id   Identifier
	idOK bool
}

// Identifier returns the identifier computed for this contact, if any.
// Contacts obtained from Record.Finalize always have one.
func (c *Contact) Identifier() (Identifier, bool) {
	return c.id, c.idOK
}

// PrimaryIdentifier returns the raw detail that identifies this
// contact: its name, else its first organisation, number or email. It
// returns the empty string if the contact has none of these.
func (c *Contact) PrimaryIdentifier() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Organisations) > 0 {
		return c.Organisations[0].Name
	}
	if len(c.Numbers) > 0 {
		return c.Numbers[0].Value
	}
	if len(c.Emails) > 0 {
		return c.Emails[0].Value
	}
	return ""
}

// Record accumulates contact data while it is being parsed or read
// from a store. Add operations sanitize their input and silently drop
// values that don't survive sanitization. Once all data has been
// added, Finalize produces the Contact consumed by the encoder and the
// import engine.
type Record struct {
	name    string
	nameSet bool

	orgs       []Organisation
	orgIndex   map[string]int
	numbers    []Number
	numIndex   map[string]int
	emails     []Email
	emailIndex map[string]int
	addresses  []Address
	addrIndex  map[string]int
	notes      []string
	noteSet    map[string]struct{}
	groups     []string
	birthday   string

	primaryOrg             string
	primaryOrgPreferred    bool
	primaryNumber          string
	primaryNumberType      Type
	primaryNumberPreferred bool
	primaryEmail           string
	primaryEmailPreferred  bool
}

// NewRecord returns an empty contact record.
func NewRecord() *Record {
	return &Record{
		orgIndex:   make(map[string]int),
		numIndex:   make(map[string]int),
		emailIndex: make(map[string]int),
		addrIndex:  make(map[string]int),
		noteSet:    make(map[string]struct{}),
	}
}

// SetName sets the contact's display name.
func (r *Record) SetName(name string) {
	r.name = name
	r.nameSet = true
}

// HasName reports whether a name has been set.
func (r *Record) HasName() bool {
	return r.nameSet
}

// AddOrganisation adds an organisation with an optional title. The
// first organisation added becomes the primary one; a later preferred
// organisation replaces a non-preferred primary.
func (r *Record) AddOrganisation(org, title string, preferred bool) {
	org = strings.TrimSpace(org)
	if org == "" {
		return
	}
	title = strings.TrimSpace(title)

	// stored entries are never marked preferred; the primary entry is
	// marked during finalization
	if _, ok := r.orgIndex[org]; !ok {
		r.orgIndex[org] = len(r.orgs)
		r.orgs = append(r.orgs, Organisation{Name: org, Title: title})
	}

	if r.primaryOrg == "" || (preferred && !r.primaryOrgPreferred) {
		r.primaryOrg = org
		r.primaryOrgPreferred = preferred
	}
}

// setOrganisationTitle updates the title of a previously added
// organisation. Used by the decoder's ORG/TITLE pairing.
func (r *Record) setOrganisationTitle(org, title string) {
	if i, ok := r.orgIndex[org]; ok {
		r.orgs[i].Title = strings.TrimSpace(title)
	}
}

// AddNumber adds a phone number. The first number added becomes the
// primary one; a later number replaces it if it is preferred and the
// current primary isn't, or if both are on equal standing and the new
// number is a voice number while the current primary is not.
func (r *Record) AddNumber(number string, t Type, preferred bool) {
	number = sanitizePhoneNumber(number)
	if number == "" {
		return
	}

	if _, ok := r.numIndex[number]; !ok {
		r.numIndex[number] = len(r.numbers)
		r.numbers = append(r.numbers, Number{Value: number, Type: t})
	}

	if r.primaryNumber == "" ||
		(preferred && !r.primaryNumberPreferred) ||
		(preferred == r.primaryNumberPreferred &&
			!isNonVoice(t) && isNonVoice(r.primaryNumberType)) {
		r.primaryNumber = number
		r.primaryNumberType = t
		r.primaryNumberPreferred = preferred
	}
}

// AddEmail adds an email address. The first email added becomes the
// primary one; a later preferred email replaces a non-preferred
// primary.
func (r *Record) AddEmail(email string, t Type, preferred bool) {
	email = sanitizeEmailAddress(email)
	if email == "" {
		return
	}

	if _, ok := r.emailIndex[email]; !ok {
		r.emailIndex[email] = len(r.emails)
		r.emails = append(r.emails, Email{Value: email, Type: t})
	}

	if r.primaryEmail == "" || (preferred && !r.primaryEmailPreferred) {
		r.primaryEmail = email
		r.primaryEmailPreferred = preferred
	}
}

// AddAddress adds a postal address given as formatted text.
func (r *Record) AddAddress(address string, t Type) {
	address = strings.TrimSpace(address)
	if address == "" {
		return
	}

	if _, ok := r.addrIndex[address]; !ok {
		r.addrIndex[address] = len(r.addresses)
		r.addresses = append(r.addresses, Address{Value: address, Type: t})
	}
}

// AddNote adds a free-text note. Duplicate notes are dropped.
func (r *Record) AddNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if _, ok := r.noteSet[note]; ok {
		return
	}
	r.noteSet[note] = struct{}{}
	r.notes = append(r.notes, note)
}

// AddGroup appends a group membership.
func (r *Record) AddGroup(group string) {
	if group == "" {
		return
	}
	r.groups = append(r.groups, group)
}

// SetBirthday sets the contact's birthday as free text. The value is
// validated for display format at write time, not here.
func (r *Record) SetBirthday(birthday string) {
	r.birthday = birthday
}

// Contact returns a snapshot of the record with the primary
// organisation, number and email explicitly marked, so that exactly
// one entry per category carries the flag even if the source data
// never marked one. Unlike Finalize it does not require the record to
// be identifiable.
func (r *Record) Contact() *Contact {
	c := &Contact{
		Name:     r.name,
		Birthday: r.birthday,
	}
	c.Organisations = append(c.Organisations, r.orgs...)
	c.Numbers = append(c.Numbers, r.numbers...)
	c.Emails = append(c.Emails, r.emails...)
	c.Addresses = append(c.Addresses, r.addresses...)
	c.Notes = append(c.Notes, r.notes...)
	c.Groups = append(c.Groups, r.groups...)

	if r.primaryOrg != "" {
		c.Organisations[r.orgIndex[r.primaryOrg]].Preferred = true
	}
	if r.primaryNumber != "" {
		c.Numbers[r.numIndex[r.primaryNumber]].Preferred = true
	}
	if r.primaryEmail != "" {
		c.Emails[r.emailIndex[r.primaryEmail]].Preferred = true
	}

	c.id, c.idOK = identifierForRecord(r)
	return c
}

// Finalize produces the finalized contact. It returns
// ErrNotIdentifiable if the record carries no name, organisation,
// number or email that could identify the contact.
func (r *Record) Finalize() (*Contact, error) {
	c := r.Contact()
	if !c.idOK {
		return nil, ErrNotIdentifiable
	}
	return c, nil
}

var phoneNumberRegexp = regexp.MustCompile(`^[-() +0-9#*]+`)

// sanitizePhoneNumber trims the number and keeps only the leading run
// of phone number characters. It returns the empty string if nothing
// usable remains.
func sanitizePhoneNumber(number string) string {
	number = strings.TrimSpace(number)
	return strings.TrimSpace(phoneNumberRegexp.FindString(number))
}

var emailAddressRegexp = regexp.MustCompile(
	`^[^ @]+@[a-zA-Z]([-a-zA-Z0-9]*[a-zA-Z0-9])?(\.[a-zA-Z]([-a-zA-Z0-9]*[a-zA-Z0-9])?)+$`)

// sanitizeEmailAddress trims the address and validates it, lower-casing
// the domain part but preserving the case of the local part. It returns
// the empty string if the address is not valid.
func sanitizeEmailAddress(email string) string {
	email = strings.TrimSpace(email)
	if !emailAddressRegexp.MatchString(email) {
		return ""
	}
	at := strings.LastIndexByte(email, '@')
	return email[:at+1] + strings.ToLower(email[at+1:])
}
