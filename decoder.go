package vcf

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-vcf/internal"
)

// ParseError describes a malformed vCard. It is scoped to a single
// vCard: the caller may discard that vCard and keep calling
// Decoder.Next, which resumes at the next BEGIN:VCARD.
type ParseError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vcf: line %v: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("vcf: line %v: %v", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	beginVCardRegexp = regexp.MustCompile(`(?i)^BEGIN[ \t]*:[ \t]*VCARD`)
	endVCardRegexp   = regexp.MustCompile(`(?i)^END[ \t]*:[ \t]*VCARD`)
	beginVMsgRegexp  = regexp.MustCompile(`(?i)^BEGIN[ \t]*:[ \t]*VMSG`)
)

// CountCards counts the vCards in the input, as used to size progress
// reporting before an import. It returns ErrVMsgFile if the input
// turns out to be vMsg data.
func CountCards(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 0
	inVCard := false
	for scanner.Scan() {
		line := scanner.Text()
		if !inVCard {
			if beginVCardRegexp.MatchString(line) {
				inVCard = true
				n++
			} else if beginVMsgRegexp.MatchString(line) {
				return 0, ErrVMsgFile
			}
		} else if endVCardRegexp.MatchString(line) {
			inVCard = false
		}
	}
	return n, scanner.Err()
}

// A contentLine is one physical line of input, as raw bytes, together
// with a flag saying whether the following physical line starts with
// whitespace (and so looks like a MIME-DIR folded continuation).
type contentLine struct {
	data       []byte
	foldedNext bool
	num        int
}

// Decoder reads contacts from a vCard stream.
type Decoder struct {
	br   *bufio.Reader
	line int
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{br: bufio.NewReader(r)}
}

// Next returns the next contact in the stream, finalized. It returns
// io.EOF when the input is exhausted. A *ParseError or an error
// wrapping ErrNotIdentifiable discards only the current vCard; calling
// Next again resumes at the next BEGIN:VCARD. ErrVMsgFile is returned
// when a vMsg entity is found instead of a vCard.
func (dec *Decoder) Next() (*Contact, error) {
	for {
		cl, err := dec.readContentLine()
		if err != nil {
			return nil, err
		}

		line := string(cl.data)
		if beginVCardRegexp.MatchString(line) {
			return dec.decodeCard(cl.num)
		}
		if beginVMsgRegexp.MatchString(line) {
			return nil, ErrVMsgFile
		}
	}
}

// readContentLine reads one physical line, stripping the line ending,
// and peeks at the next line to detect folding.
func (dec *Decoder) readContentLine() (*contentLine, error) {
	data, err := dec.br.ReadBytes('\n')
	if len(data) == 0 {
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}

	if n := len(data); n > 0 && data[n-1] == '\n' {
		data = data[:n-1]
		if n := len(data); n > 0 && data[n-1] == '\r' {
			data = data[:n-1]
		}
	}

	dec.line++
	cl := &contentLine{data: data, num: dec.line}

	if peek, err := dec.br.Peek(1); err == nil {
		cl.foldedNext = peek[0] == ' ' || peek[0] == '\t'
	}

	return cl, nil
}

func (dec *Decoder) decodeCard(startLine int) (*Contact, error) {
	p := &cardParser{record: NewRecord()}

	for {
		cl, err := dec.readContentLine()
		if err != nil {
			// input ended mid-card; the partial card is discarded
			return nil, err
		}

		if endVCardRegexp.MatchString(string(cl.data)) {
			return p.finish(startLine)
		}

		if err := p.parseLine(cl); err != nil {
			return nil, err
		}
	}
}

// Multi-line continuation states of the parser.
const (
	multilineNone    = iota
	multilineEncoded // v2.1 quoted-printable soft line break
	multilineEscaped // dangling backslash in a ;-delimited value
	multilineFolded  // MIME-DIR folding
)

// Properties subject to the ENCODING parameter restriction.
var encodingCheckedProps = map[string]bool{
	"N": true, "FN": true, "ORG": true, "TITLE": true,
	"TEL": true, "EMAIL": true, "ADR": true, "LABEL": true,
}

// Name levels: FN beats N beats nothing.
const (
	nameLevelNone = iota
	nameLevelN
	nameLevelFN
)

// cardParser is the per-vCard state machine. Content lines go in;
// contact field additions come out.
type cardParser struct {
	record  *Record
	version string

	// lines buffered until a VERSION property is seen
	buffered []*contentLine

	nameLevel         int
	multiline         int
	currentNameParams string
	bufferedValue     string

	cachedOrganisation string
	cachedTitle        string
}

func (p *cardParser) finish(startLine int) (*Contact, error) {
	// content but no VERSION line means a version 2.1 vCard; process
	// the buffered content now
	if p.version == "" && p.buffered != nil {
		p.version = "2.1"
		buffered := p.buffered
		p.buffered = nil
		for _, cl := range buffered {
			if err := p.parseLine(cl); err != nil {
				return nil, err
			}
		}
	}

	c, err := p.record.Finalize()
	if err != nil {
		return nil, &ParseError{Line: startLine, Err: err}
	}
	return c, nil
}

// splitColon splits a content line into the part before the first
// colon and the part after it, both trimmed. It reports false when the
// line has no colon or an empty former part.
func splitColon(line string) (former, latter string, ok bool) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 || len(parts[0]) == 0 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func (p *cardParser) parseLine(cl *contentLine) error {
	if p.version == "" {
		// tentatively treat the line as a property to spot VERSION
		nameParams, value, ok := splitColon(string(cl.data))
		if ok && strings.EqualFold(nameParams, "VERSION") {
			if value != "2.1" && value != "3.0" {
				return &ParseError{Line: cl.num, Msg: "unsupported vCard version"}
			}
			p.version = value

			// parse the lines accumulated while waiting for a version
			buffered := p.buffered
			p.buffered = nil
			for _, b := range buffered {
				if err := p.parseLine(b); err != nil {
					return err
				}
			}
		} else {
			p.buffered = append(p.buffered, cl)
		}
		return nil
	}

	var nameParams string
	var pos int

	if p.multiline != multilineNone {
		// mid multi-line value: reuse the stored property name and
		// parameters, and skip initial characters depending on the
		// kind of continuation
		nameParams = p.currentNameParams
		switch p.multiline {
		case multilineFolded:
			pos = 1
		case multilineEncoded:
			for pos < len(cl.data) && (cl.data[pos] == ' ' || cl.data[pos] == '\t') {
				pos++
			}
		}
		if pos > len(cl.data) {
			pos = len(cl.data)
		}

		// leave multi-line so that this line can re-enter it
		p.multiline = multilineNone
	} else {
		if strings.TrimSpace(string(cl.data)) == "" {
			return nil
		}

		var ok bool
		nameParams, _, ok = splitColon(string(cl.data))
		if !ok {
			return &ParseError{Line: cl.num, Msg: "malformed property line"}
		}
		pos = strings.IndexByte(string(cl.data), ':') + 1

		p.currentNameParams = nameParams
		p.bufferedValue = ""
	}

	value := cl.data[pos:]

	params := strings.Split(nameParams, ";")
	for i := range params {
		params[i] = strings.TrimSpace(params[i])
	}
	prop := strings.ToUpper(params[0])

	encoding := strings.ToUpper(paramValue(params, "ENCODING"))
	if encodingCheckedProps[prop] && encoding != "" &&
		encoding != "8BIT" && encoding != "QUOTED-PRINTABLE" {
		return &ParseError{Line: cl.num, Msg: "unsupported value encoding " + encoding}
	}

	charset := strings.ToUpper(paramValue(params, "CHARSET"))
	if charset != "" && charset != "US-ASCII" && charset != "ASCII" && charset != "UTF-8" {
		return &ParseError{Line: cl.num, Msg: "unsupported charset " + charset}
	}

	if encoding == "QUOTED-PRINTABLE" {
		decoded, more := internal.DecodeQuotedPrintable(value)
		value = decoded
		if more {
			p.multiline = multilineEncoded
		}
	}

	// where a v2.1 entry has no charset, US-ASCII is assumed
	if (charset == "" && p.version == "2.1") ||
		charset == "ASCII" || charset == "US-ASCII" {
		value = internal.TranscodeASCIIToUTF8(value)
	}

	sv := string(value)

	// for properties with semicolon-separated value parts, a dangling
	// escape character means the value continues on the next line
	if (prop == "N" || prop == "ORG" || prop == "ADR") && internal.EndsInEscape(sv) {
		p.multiline = multilineEscaped
		sv = sv[:len(sv)-1]
	}

	if p.multiline == multilineNone && cl.foldedNext {
		p.multiline = multilineFolded
	}

	if p.multiline != multilineNone {
		p.bufferedValue += sv
		return nil
	}

	complete := strings.TrimSpace(p.bufferedValue + sv)
	if complete == "" {
		return nil
	}

	switch prop {
	case "N":
		p.parseN(complete)
	case "FN":
		p.parseFN(complete)
	case "ORG":
		p.parseORG(complete)
	case "TITLE":
		p.parseTITLE(complete)
	case "TEL":
		p.parseTEL(params, complete)
	case "EMAIL":
		p.parseEMAIL(params, complete)
	case "ADR":
		p.parseADR(params, complete)
	case "LABEL":
		p.parseLABEL(params, complete)
	case "NOTE":
		p.record.AddNote(internal.UnescapeValue(complete))
	case "BDAY":
		p.record.SetBirthday(complete)
	}
	return nil
}

// nPartOrder gives the order in which the structured components of an
// N property (family, given, middle, prefix, suffix) are joined into a
// display name: prefix, given, middle, family, suffix.
var nPartOrder = [...]int{3, 1, 2, 0, 4}

func (p *cardParser) parseN(value string) {
	if p.nameLevel >= nameLevelN {
		return
	}

	parts := internal.SplitEscaped(value, ';')

	var name strings.Builder
	for _, idx := range nPartOrder {
		if idx >= len(parts) || parts[idx] == "" {
			continue
		}
		for _, bit := range internal.SplitEscaped(parts[idx], ',') {
			if bit == "" {
				continue
			}
			if name.Len() > 0 {
				name.WriteByte(' ')
			}
			name.WriteString(bit)
		}
	}

	p.record.SetName(internal.UnescapeValue(name.String()))
	p.nameLevel = nameLevelN
}

func (p *cardParser) parseFN(value string) {
	if p.nameLevel >= nameLevelFN {
		return
	}
	p.record.SetName(internal.UnescapeValue(value))
	p.nameLevel = nameLevelFN
}

func (p *cardParser) parseORG(value string) {
	parts := internal.SplitEscaped(value, ';')
	if len(parts) < 1 {
		return
	}
	organisation := internal.UnescapeValue(strings.Join(parts, ", "))

	// attach a title we've previously found; ORG-derived entries are
	// always inserted as preferred
	p.record.AddOrganisation(organisation, p.cachedTitle, true)

	// remember this organisation so a later TITLE can attach to it, or
	// consume the cached title we just used
	if p.cachedTitle == "" {
		p.cachedOrganisation = organisation
	} else {
		p.cachedTitle = ""
	}
}

func (p *cardParser) parseTITLE(value string) {
	value = internal.UnescapeValue(value)

	if p.cachedOrganisation != "" {
		p.record.setOrganisationTitle(p.cachedOrganisation, value)
	}

	// mirror of the ORG bookkeeping: remember the title until an ORG
	// arrives, or consume the cached organisation it was attached to
	if p.cachedOrganisation == "" {
		p.cachedTitle = value
	} else {
		p.cachedOrganisation = ""
	}
}

var telTypes = []string{
	"PREF", "HOME", "WORK", "VOICE", "FAX", "MSG", "CELL",
	"PAGER", "BBS", "MODEM", "CAR", "ISDN", "VIDEO",
}

func (p *cardParser) parseTEL(params []string, value string) {
	types := p.extractTypes(params, telTypes)

	var t Type
	switch {
	case types["FAX"] && types["HOME"]:
		t = TypeFaxHome
	case types["FAX"]:
		t = TypeFaxWork
	case types["CELL"], types["VIDEO"]:
		t = TypeMobile
	case types["PAGER"]:
		t = TypePager
	case types["WORK"]:
		t = TypeWork
	default:
		t = TypeHome
	}

	p.record.AddNumber(value, t, types["PREF"])
}

var emailTypes = []string{"PREF", "WORK", "HOME", "INTERNET"}

func (p *cardParser) parseEMAIL(params []string, value string) {
	types := p.extractTypes(params, emailTypes)

	t := TypeHome
	if types["WORK"] {
		t = TypeWork
	}

	p.record.AddEmail(internal.UnescapeValue(value), t, types["PREF"])
}

var addressTypes = []string{"PREF", "WORK", "HOME"}

func (p *cardParser) parseADR(params []string, value string) {
	parts := internal.SplitEscaped(value, ';')

	var addr strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		if p.version == "3.0" {
			// version 3.0 vCards allow further splitting by comma
			for _, bit := range internal.SplitEscaped(part, ',') {
				if bit == "" {
					continue
				}
				if addr.Len() > 0 {
					addr.WriteByte('\n')
				}
				addr.WriteString(bit)
			}
		} else {
			if addr.Len() > 0 {
				addr.WriteByte('\n')
			}
			addr.WriteString(part)
		}
	}

	p.record.AddAddress(internal.UnescapeValue(addr.String()), p.addressType(params))
}

func (p *cardParser) parseLABEL(params []string, value string) {
	p.record.AddAddress(internal.UnescapeValue(value), p.addressType(params))
}

func (p *cardParser) addressType(params []string) Type {
	types := p.extractTypes(params, addressTypes)
	if types["WORK"] {
		return TypeWork
	}
	return TypeHome
}

// paramValues collects the values of every parameter with the given
// name. A value may be surrounded by double quotes, which are dropped.
func paramValues(params []string, name string) []string {
	var vals []string
	for _, param := range params {
		if len(param) < len(name) || !strings.EqualFold(param[:len(name)], name) {
			continue
		}
		rest := strings.TrimLeft(param[len(name):], " \t")
		if !strings.HasPrefix(rest, "=") {
			continue
		}
		v := strings.TrimLeft(rest[1:], " \t")
		if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
			v = v[1 : len(v)-1]
		}
		vals = append(vals, v)
	}
	return vals
}

// paramValue returns the value of the first parameter with the given
// name, or the empty string.
func paramValue(params []string, name string) string {
	if vals := paramValues(params, name); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// extractTypes returns the type values present amongst the parameters.
// For v3.0 those are TYPE= parameters, possibly repeated and possibly
// carrying comma-separated lists; for v2.1 vCards bare positional
// parameters are types too.
func (p *cardParser) extractTypes(params []string, valid []string) map[string]bool {
	types := make(map[string]bool)

	for _, tv := range paramValues(params, "TYPE") {
		for _, part := range strings.Split(tv, ",") {
			uc := strings.ToUpper(part)
			if containsString(valid, uc) {
				types[uc] = true
			}
		}
	}

	if p.version == "2.1" {
		for _, param := range params[1:] {
			uc := strings.ToUpper(param)
			if containsString(valid, uc) {
				types[uc] = true
			}
		}
	}

	return types
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
