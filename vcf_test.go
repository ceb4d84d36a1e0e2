package vcf

import (
	"errors"
	"reflect"
	"testing"
)

func TestSanitizePhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (555) 123-4567", "+1 (555) 123-4567"},
		{"  555-0100  ", "555-0100"},
		{"+1 (555) 123-4567 ext 9", "+1 (555) 123-4567"},
		{"*#06#", "*#06#"},
		{"call me", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := sanitizePhoneNumber(tc.in); got != tc.want {
			t.Errorf("sanitizePhoneNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeEmailAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john@example.com", "john@example.com"},
		{" john@example.com ", "john@example.com"},
		{"John.Smith@EXAMPLE.COM", "John.Smith@example.com"},
		{"john@sub.example-site.org", "john@sub.example-site.org"},
		{"not an email", ""},
		{"john@", ""},
		{"@example.com", ""},
		{"john@localhost", ""},
		{"john@example.com.", ""},
	}
	for _, tc := range tests {
		if got := sanitizeEmailAddress(tc.in); got != tc.want {
			t.Errorf("sanitizeEmailAddress(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRecordPrimaryNumber(t *testing.T) {
	tests := []struct {
		name string
		add  []Number
		want string
	}{
		{
			name: "first wins",
			add: []Number{
				{Value: "111", Type: TypeHome},
				{Value: "222", Type: TypeWork},
			},
			want: "111",
		},
		{
			name: "preferred replaces non-preferred",
			add: []Number{
				{Value: "111", Type: TypeHome},
				{Value: "222", Type: TypeMobile, Preferred: true},
			},
			want: "222",
		},
		{
			name: "voice replaces non-voice",
			add: []Number{
				{Value: "111", Type: TypeFaxHome},
				{Value: "222", Type: TypeHome},
			},
			want: "222",
		},
		{
			name: "preferred fax stays over voice",
			add: []Number{
				{Value: "111", Type: TypeFaxWork, Preferred: true},
				{Value: "222", Type: TypeHome},
			},
			want: "111",
		},
		{
			name: "preferred among non-preferred mix",
			add: []Number{
				{Value: "111", Type: TypeHome},
				{Value: "222", Type: TypeFaxHome},
				{Value: "333", Type: TypeMobile, Preferred: true},
			},
			want: "333",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewRecord()
			for _, n := range tc.add {
				rec.AddNumber(n.Value, n.Type, n.Preferred)
			}
			c := rec.Contact()
			var primary string
			for _, n := range c.Numbers {
				if n.Preferred {
					if primary != "" {
						t.Fatalf("two numbers marked preferred: %q and %q", primary, n.Value)
					}
					primary = n.Value
				}
			}
			if primary != tc.want {
				t.Errorf("primary number = %q, want %q", primary, tc.want)
			}
		})
	}
}

func TestRecordDeduplicates(t *testing.T) {
	rec := NewRecord()
	rec.AddNumber("555-0100", TypeHome, false)
	rec.AddNumber("555-0100", TypeWork, true)
	rec.AddEmail("john@example.com", TypeHome, false)
	rec.AddEmail("john@example.com", TypeWork, false)
	rec.AddNote("a note")
	rec.AddNote("a note")
	rec.AddOrganisation("ACME", "", false)
	rec.AddOrganisation("ACME", "Engineer", false)

	c := rec.Contact()
	if len(c.Numbers) != 1 {
		t.Errorf("got %d numbers, want 1", len(c.Numbers))
	}
	if len(c.Emails) != 1 {
		t.Errorf("got %d emails, want 1", len(c.Emails))
	}
	if len(c.Notes) != 1 {
		t.Errorf("got %d notes, want 1", len(c.Notes))
	}
	if len(c.Organisations) != 1 {
		t.Errorf("got %d organisations, want 1", len(c.Organisations))
	}
}

func TestFinalizeNotIdentifiable(t *testing.T) {
	rec := NewRecord()
	rec.AddNote("only a note")
	rec.AddAddress("1 Main St", TypeHome)
	rec.SetBirthday("1970-01-01")

	if _, err := rec.Finalize(); !errors.Is(err, ErrNotIdentifiable) {
		t.Errorf("Finalize() = %v, want ErrNotIdentifiable", err)
	}
}

func TestIdentifierPriority(t *testing.T) {
	tests := []struct {
		name  string
		setup func(rec *Record)
		want  Identifier
	}{
		{
			name: "name first",
			setup: func(rec *Record) {
				rec.SetName("John Smith")
				rec.AddOrganisation("ACME", "", false)
				rec.AddNumber("555-0100", TypeHome, false)
				rec.AddEmail("john@example.com", TypeHome, false)
			},
			want: Identifier{Type: IdentifierName, Detail: "John Smith"},
		},
		{
			name: "organisation before number",
			setup: func(rec *Record) {
				rec.AddOrganisation("ACME", "", false)
				rec.AddNumber("555-0100", TypeHome, false)
			},
			want: Identifier{Type: IdentifierOrganisation, Detail: "ACME"},
		},
		{
			name: "number normalized",
			setup: func(rec *Record) {
				rec.AddNumber("+1 (555) 012-3456", TypeHome, false)
			},
			want: Identifier{Type: IdentifierNumber, Detail: "+15550123456"},
		},
		{
			name: "email lower-cased",
			setup: func(rec *Record) {
				rec.AddEmail("John@Example.COM", TypeHome, false)
			},
			want: Identifier{Type: IdentifierEmail, Detail: "john@example.com"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewRecord()
			tc.setup(rec)
			c, err := rec.Finalize()
			if err != nil {
				t.Fatalf("Finalize() = %v", err)
			}
			id, ok := c.Identifier()
			if !ok {
				t.Fatal("Identifier() reported no identifier")
			}
			if !reflect.DeepEqual(id, tc.want) {
				t.Errorf("Identifier() = %#v, want %#v", id, tc.want)
			}
		})
	}
}

func TestIdentifierNameFirstNoEmailCollision(t *testing.T) {
	// two contacts sharing an email address still get distinct name
	// identifiers
	ids := make(map[Identifier]bool)
	for _, name := range []string{"John Smith", "Jane Smith"} {
		rec := NewRecord()
		rec.SetName(name)
		rec.AddEmail("shared@example.com", TypeHome, false)
		c, err := rec.Finalize()
		if err != nil {
			t.Fatalf("Finalize() = %v", err)
		}
		id, ok := c.Identifier()
		if !ok || id.Type != IdentifierName {
			t.Fatalf("Identifier() = %#v, %v, want a name identifier", id, ok)
		}
		ids[id] = true
	}
	if len(ids) != 2 {
		t.Errorf("got %d distinct identifiers, want 2", len(ids))
	}
}

func TestNewIdentifier(t *testing.T) {
	if _, ok := NewIdentifier(IdentifierName, "   "); ok {
		t.Error("NewIdentifier accepted a blank name")
	}
	if id, ok := NewIdentifier(IdentifierNumber, "555 010-0"); !ok || id.Detail != "5550100" {
		t.Errorf("NewIdentifier(number) = %#v, %v", id, ok)
	}
}
