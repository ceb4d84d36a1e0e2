package vcf

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestEncoderGolden(t *testing.T) {
	c := &Contact{
		Name: "John Smith",
		Organisations: []Organisation{
			{Name: "ACME", Title: "Engineer", Preferred: true},
		},
		Numbers: []Number{
			{Value: "555-0100", Type: TypeHome, Preferred: true},
			{Value: "555-0199", Type: TypeFaxWork},
		},
		Emails: []Email{
			{Value: "john@example.com", Type: TypeHome, Preferred: true},
		},
		Addresses: []Address{
			{Value: "1 Main St\nSpringfield", Type: TypeHome},
		},
		Notes:    []string{"likes coffee, black"},
		Birthday: "1985-04-12",
	}

	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(c); err != nil {
		t.Fatalf("Encode() = %v", err)
	}

	want := crlf("BEGIN:VCARD\n" +
		"VERSION:3.0\n" +
		"FN:John Smith\n" +
		"N:Smith;John;;;\n" +
		"ORG:ACME\n" +
		"TITLE:Engineer\n" +
		"TEL;TYPE=VOICE,HOME,PREF:555-0100\n" +
		"TEL;TYPE=FAX,WORK:555-0199\n" +
		"EMAIL;TYPE=INTERNET,HOME:john@example.com\n" +
		`LABEL;TYPE=POSTAL,HOME:1 Main St\nSpringfield` + "\n" +
		`NOTE:likes coffee\, black` + "\n" +
		"BDAY:1985-04-12\n" +
		"END:VCARD\n")
	if got := buf.String(); got != want {
		t.Errorf("Encode() output:\n%q\nwant:\n%q", got, want)
	}
}

func TestEncoderFirstNumberTaggedPref(t *testing.T) {
	// the PREF tag goes to the first number in insertion order, which
	// need not be the record's preferred number
	rec := NewRecord()
	rec.SetName("x y")
	rec.AddNumber("111", TypeHome, false)
	rec.AddNumber("222", TypeMobile, true)

	c, err := rec.Finalize()
	if err != nil {
		t.Fatalf("Finalize() = %v", err)
	}

	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(c); err != nil {
		t.Fatalf("Encode() = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "TEL;TYPE=VOICE,HOME,PREF:111\r\n") {
		t.Errorf("missing PREF on first number:\n%s", out)
	}
	if !strings.Contains(out, "TEL;TYPE=VOICE,CELL:222\r\n") {
		t.Errorf("unexpected tag on second number:\n%s", out)
	}
}

func TestEncoderBirthdayFreeText(t *testing.T) {
	c := &Contact{Name: "x", Birthday: "sometime in spring"}

	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(c); err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	if !strings.Contains(buf.String(), "BDAY;VALUE=text:sometime in spring\r\n") {
		t.Errorf("missing free-text BDAY:\n%s", buf.String())
	}
}

func TestEncoderOptions(t *testing.T) {
	c := &Contact{Name: "x", Groups: []string{"friends", "work"}}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.Options = EncoderOptions{Groups: true, AddUID: true}
	if err := enc.Encode(c); err != nil {
		t.Fatalf("Encode() = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "X-GROUPS:friends\r\n") ||
		!strings.Contains(out, "X-GROUPS:work\r\n") {
		t.Errorf("missing X-GROUPS:\n%s", out)
	}
	if !strings.Contains(out, "UID:urn:uuid:") {
		t.Errorf("missing UID:\n%s", out)
	}
}

func TestEncoderNoIdentifier(t *testing.T) {
	var buf bytes.Buffer
	err := NewEncoder(&buf).Encode(&Contact{Notes: []string{"note"}})
	if err != ErrNotIdentifiable {
		t.Fatalf("Encode() = %v, want ErrNotIdentifiable", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Encode() wrote %q on error", buf.String())
	}
}

func TestEncoderSeparatesCards(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, name := range []string{"a", "b"} {
		if err := enc.Encode(&Contact{Name: name}); err != nil {
			t.Fatalf("Encode(%q) = %v", name, err)
		}
	}

	if got := strings.Count(buf.String(), "\r\n\r\nBEGIN:VCARD\r\n"); got != 1 {
		t.Errorf("got %d blank-line separators, want 1:\n%q", got, buf.String())
	}
}

func TestEncoderRoundTrip(t *testing.T) {
	rec := NewRecord()
	rec.SetName("Jane Doe")
	rec.AddOrganisation("ACME", "Engineer", true)
	rec.AddNumber("555-0100", TypeMobile, true)
	rec.AddEmail("jane@example.com", TypeWork, false)
	rec.AddAddress("1 Main St\nSpringfield", TypeWork)
	rec.AddNote("a rather long note that will exceed the folding limit of seventy five characters easily")
	rec.SetBirthday("1985-04-12")

	c, err := rec.Finalize()
	if err != nil {
		t.Fatalf("Finalize() = %v", err)
	}

	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(c); err != nil {
		t.Fatalf("Encode() = %v", err)
	}

	got, err := NewDecoder(&buf).Next()
	if err != nil {
		t.Fatalf("Next() = %v", err)
	}

	if got.Name != c.Name {
		t.Errorf("Name = %q, want %q", got.Name, c.Name)
	}
	if !reflect.DeepEqual(got.Organisations, c.Organisations) {
		t.Errorf("Organisations = %#v, want %#v", got.Organisations, c.Organisations)
	}
	if !reflect.DeepEqual(got.Numbers, c.Numbers) {
		t.Errorf("Numbers = %#v, want %#v", got.Numbers, c.Numbers)
	}
	if !reflect.DeepEqual(got.Emails, c.Emails) {
		t.Errorf("Emails = %#v, want %#v", got.Emails, c.Emails)
	}
	if !reflect.DeepEqual(got.Addresses, c.Addresses) {
		t.Errorf("Addresses = %#v, want %#v", got.Addresses, c.Addresses)
	}
	if !reflect.DeepEqual(got.Notes, c.Notes) {
		t.Errorf("Notes = %#v, want %#v", got.Notes, c.Notes)
	}
	if got.Birthday != c.Birthday {
		t.Errorf("Birthday = %q, want %q", got.Birthday, c.Birthday)
	}
}
