package vcf

import (
	"bytes"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/emersion/go-vcf/internal"
)

// EncoderOptions control optional behaviour of the encoder. The zero
// value emits plain vCard 3.0 output.
type EncoderOptions struct {
	// Groups emits an X-GROUPS property per group membership.
	Groups bool
	// AddUID emits a UID property with a fresh urn:uuid value on every
	// encoded card.
	AddUID bool
}

// Encoder writes contacts to a stream as vCard 3.0 text. A blank line
// separates consecutive cards. Either a whole card is written or, on
// error, nothing is.
type Encoder struct {
	// Options may be adjusted before the first call to Encode.
	Options EncoderOptions

	w     io.Writer
	first bool
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, first: true}
}

// Encode writes one contact. It returns ErrNotIdentifiable when the
// contact has no identifiable detail to derive the mandatory FN
// property from.
func (enc *Encoder) Encode(c *Contact) error {
	identifier := strings.TrimSpace(c.PrimaryIdentifier())
	if identifier == "" {
		return ErrNotIdentifiable
	}

	var out bytes.Buffer
	if !enc.first {
		out.WriteByte('\n')
	}

	out.WriteString("BEGIN:VCARD\n")
	out.WriteString("VERSION:3.0\n")

	writeProp(&out, "FN:"+internal.EscapeValue(identifier))

	if enc.Options.AddUID {
		writeProp(&out, "UID:urn:uuid:"+uuid.New().String())
	}

	writeProp(&out, "N:"+structuredName(c.Name))

	for _, org := range c.Organisations {
		writeProp(&out, "ORG:"+internal.EscapeValue(org.Name))
		if org.Title != "" {
			writeProp(&out, "TITLE:"+internal.EscapeValue(org.Title))
		}
	}

	for i, num := range c.Numbers {
		types := telTypeParams(num.Type)
		// the first emitted number is tagged PREF; entries are in
		// insertion order, so this is deterministic, but it need not
		// be the record's actual preferred number
		if i == 0 {
			types = append(types, "PREF")
		}
		writeProp(&out, "TEL;TYPE="+strings.Join(types, ",")+":"+
			internal.EscapeValue(num.Value))
	}

	for _, email := range c.Emails {
		types := []string{"INTERNET"}
		switch email.Type {
		case TypeHome:
			types = append(types, "HOME")
		case TypeWork:
			types = append(types, "WORK")
		}
		writeProp(&out, "EMAIL;TYPE="+strings.Join(types, ",")+":"+
			internal.EscapeValue(email.Value))
	}

	// LABEL is used instead of structured ADR because the address data
	// is formatted text, not semicolon-delimited fields
	for _, addr := range c.Addresses {
		types := []string{"POSTAL"}
		switch addr.Type {
		case TypeHome:
			types = append(types, "HOME")
		case TypeWork:
			types = append(types, "WORK")
		}
		writeProp(&out, "LABEL;TYPE="+strings.Join(types, ",")+":"+
			internal.EscapeValue(addr.Value))
	}

	for _, note := range c.Notes {
		writeProp(&out, "NOTE:"+internal.EscapeValue(note))
	}

	if enc.Options.Groups {
		for _, group := range c.Groups {
			writeProp(&out, "X-GROUPS:"+internal.EscapeValue(group))
		}
	}

	if c.Birthday != "" {
		if internal.IsValidDateAndOrTime(c.Birthday) {
			writeProp(&out, "BDAY:"+internal.EscapeValue(c.Birthday))
		} else {
			writeProp(&out, "BDAY;VALUE=text:"+internal.EscapeValue(c.Birthday))
		}
	}

	out.WriteString("END:VCARD\n")

	if _, err := enc.w.Write(toCRLF(out.Bytes())); err != nil {
		return err
	}
	enc.first = false
	return nil
}

func writeProp(out *bytes.Buffer, line string) {
	out.WriteString(internal.FoldLine(line))
	out.WriteByte('\n')
}

// structuredName derives an N value from a display name by splitting
// it on spaces into family, given and middle parts.
func structuredName(name string) string {
	bits := strings.Fields(name)
	for i, bit := range bits {
		bits[i] = internal.EscapeValue(bit)
	}

	var family, given, middle string
	if len(bits) > 0 {
		family = bits[len(bits)-1]
	}
	if len(bits) > 1 {
		given = bits[0]
		middle = strings.Join(bits[1:len(bits)-1], " ")
	}
	return family + ";" + given + ";" + middle + ";;"
}

func telTypeParams(t Type) []string {
	switch t {
	case TypeWork:
		return []string{"VOICE", "WORK"}
	case TypeFaxHome:
		return []string{"FAX", "HOME"}
	case TypeFaxWork:
		return []string{"FAX", "WORK"}
	case TypePager:
		return []string{"PAGER"}
	case TypeMobile:
		return []string{"VOICE", "CELL"}
	default:
		return []string{"VOICE", "HOME"}
	}
}

// toCRLF converts bare newlines to CRLF, leaving already-correct CRLF
// sequences alone.
func toCRLF(data []byte) []byte {
	out := make([]byte, 0, len(data)+bytes.Count(data, []byte{'\n'}))
	for i, b := range data {
		if b == '\n' && (i == 0 || data[i-1] != '\r') {
			out = append(out, '\r')
		}
		out = append(out, b)
	}
	return out
}
