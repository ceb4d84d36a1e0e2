// Package sqlite implements a local contact store backed by a SQLite
// database. It satisfies both the importer backend and the exporter
// source interfaces, making it the batteries-included store for the
// command line tools.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	vcf "github.com/emersion/go-vcf"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	birthday TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS phones (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	number TEXT NOT NULL,
	type INTEGER NOT NULL,
	preferred INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS emails (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	address TEXT NOT NULL,
	type INTEGER NOT NULL,
	preferred INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS addresses (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	address TEXT NOT NULL,
	type INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS organisations (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	preferred INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS notes (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	note TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS groups (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	name TEXT NOT NULL
);
`

// Store is a SQLite-backed contact store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the contact database at path.
// The path ":memory:" yields a transient in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite: %v", err)
	}
	// a single connection keeps ":memory:" pointing at one database;
	// every pooled connection would otherwise get its own empty one
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: creating schema: %v", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CountContacts returns the number of contacts in the store.
func (s *Store) CountContacts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&n)
	return n, err
}

// Contacts calls fn for every contact in the store with its full
// record, preferred entries first within each category.
func (s *Store) Contacts(ctx context.Context, fn func(id int64, rec *vcf.Record) error) error {
	// read the contact rows completely before fetching details so
	// no two queries hold connections at once
	type contactRow struct {
		id             int64
		name, birthday string
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, birthday FROM contacts ORDER BY id`)
	if err != nil {
		return err
	}
	var contacts []contactRow
	for rows.Next() {
		var c contactRow
		if err := rows.Scan(&c.id, &c.name, &c.birthday); err != nil {
			rows.Close()
			return err
		}
		contacts = append(contacts, c)
	}
	if err := closeRows(rows); err != nil {
		return err
	}

	for _, c := range contacts {
		rec, err := s.readDetails(ctx, c.id, c.name, c.birthday)
		if err != nil {
			return err
		}
		if err := fn(c.id, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) readDetails(ctx context.Context, id int64, name, birthday string) (*vcf.Record, error) {
	rec := vcf.NewRecord()
	if name != "" {
		rec.SetName(name)
	}
	if birthday != "" {
		rec.SetBirthday(birthday)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, title, preferred FROM organisations WHERE contact_id = ? ORDER BY preferred DESC, rowid`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var org, title string
		var preferred bool
		if err := rows.Scan(&org, &title, &preferred); err != nil {
			rows.Close()
			return nil, err
		}
		rec.AddOrganisation(org, title, preferred)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT number, type, preferred FROM phones WHERE contact_id = ? ORDER BY preferred DESC, rowid`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var number string
		var typ int
		var preferred bool
		if err := rows.Scan(&number, &typ, &preferred); err != nil {
			rows.Close()
			return nil, err
		}
		rec.AddNumber(number, vcf.Type(typ), preferred)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT address, type, preferred FROM emails WHERE contact_id = ? ORDER BY preferred DESC, rowid`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var address string
		var typ int
		var preferred bool
		if err := rows.Scan(&address, &typ, &preferred); err != nil {
			rows.Close()
			return nil, err
		}
		rec.AddEmail(address, vcf.Type(typ), preferred)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT address, type FROM addresses WHERE contact_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var address string
		var typ int
		if err := rows.Scan(&address, &typ); err != nil {
			rows.Close()
			return nil, err
		}
		rec.AddAddress(address, vcf.Type(typ))
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT note FROM notes WHERE contact_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var note string
		if err := rows.Scan(&note); err != nil {
			rows.Close()
			return nil, err
		}
		rec.AddNote(note)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT name FROM groups WHERE contact_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var group string
		if err := rows.Scan(&group); err != nil {
			rows.Close()
			return nil, err
		}
		rec.AddGroup(group)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	return rec, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// CreateContact adds a contact with the given display name and
// returns its id.
func (s *Store) CreateContact(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO contacts (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("sqlite: creating contact: %v", err)
	}
	return res.LastInsertId()
}

// DeleteContact removes a contact and all of its associated data.
func (s *Store) DeleteContact(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting contact: %v", err)
	}
	return nil
}

// AddNumber adds a phone number to a contact.
func (s *Store) AddNumber(ctx context.Context, id int64, n vcf.Number) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO phones (contact_id, number, type, preferred) VALUES (?, ?, ?, ?)`,
		id, n.Value, int(n.Type), n.Preferred)
	if err != nil {
		return fmt.Errorf("sqlite: adding number: %v", err)
	}
	return nil
}

// AddEmail adds an email address to a contact.
func (s *Store) AddEmail(ctx context.Context, id int64, e vcf.Email) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO emails (contact_id, address, type, preferred) VALUES (?, ?, ?, ?)`,
		id, e.Value, int(e.Type), e.Preferred)
	if err != nil {
		return fmt.Errorf("sqlite: adding email: %v", err)
	}
	return nil
}

// AddAddress adds a postal address to a contact.
func (s *Store) AddAddress(ctx context.Context, id int64, a vcf.Address) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO addresses (contact_id, address, type) VALUES (?, ?, ?)`,
		id, a.Value, int(a.Type))
	if err != nil {
		return fmt.Errorf("sqlite: adding address: %v", err)
	}
	return nil
}

// AddOrganisation adds an organisation membership to a contact.
func (s *Store) AddOrganisation(ctx context.Context, id int64, o vcf.Organisation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organisations (contact_id, name, title, preferred) VALUES (?, ?, ?, ?)`,
		id, o.Name, o.Title, o.Preferred)
	if err != nil {
		return fmt.Errorf("sqlite: adding organisation: %v", err)
	}
	return nil
}

// AddNote adds a note to a contact.
func (s *Store) AddNote(ctx context.Context, id int64, note string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (contact_id, note) VALUES (?, ?)`, id, note)
	if err != nil {
		return fmt.Errorf("sqlite: adding note: %v", err)
	}
	return nil
}

// AddGroup adds a group membership to a contact.
func (s *Store) AddGroup(ctx context.Context, id int64, group string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (contact_id, name) VALUES (?, ?)`, id, group)
	if err != nil {
		return fmt.Errorf("sqlite: adding group: %v", err)
	}
	return nil
}

// SetBirthday sets a contact's birthday.
func (s *Store) SetBirthday(ctx context.Context, id int64, birthday string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET birthday = ? WHERE id = ?`, birthday, id)
	if err != nil {
		return fmt.Errorf("sqlite: setting birthday: %v", err)
	}
	return nil
}
