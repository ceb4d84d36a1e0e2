package internal

import "regexp"

// Pieces of the RFC 6350 date-and-or-time grammar.
const (
	// ISO 8601:2004 4.1.2 date with 4.1.2.3 a) and b) reduced accuracy
	dateFull = `[0-9]{4}(?:-?[0-9]{2}(?:-?[0-9]{2})?)?`

	// ISO 8601:2000 5.2.1.3 d), e) and f) truncated date representation
	dateTrunc = `--(?:[0-9]{2}(?:-?[0-9]{2})?|-[0-9]{2})`

	// ISO 8601:2004 4.2.2 time with 4.2.2.3 reduced accuracy, 4.2.4 UTC
	// and 4.2.5 zone offset, no 4.2.2.4 decimal fraction and no 4.2.3
	// 24:00 midnight
	timeFull = `(?:[0-1][0-9]|2[0-3])(?::?[0-5][0-9](?::?(?:60|[0-5][0-9]))?)?` +
		`(?:Z|[-+](?:[0-1][0-9]|2[0-3])(?::?[0-5][0-9])?)?`

	// ISO 8601:2000 5.3.1.4 a), b) and c) truncated time representation
	timeTrunc = `-(?:[0-5][0-9](?::?(?:60|[0-5][0-9]))?|-(?:60|[0-5][0-9]))`
)

var dateAndOrTimeRegexp = regexp.MustCompile(
	`^(?:` + dateFull + `|` + dateTrunc + `)?` +
		`(?:T(?:` + timeFull + `|` + timeTrunc + `))?$`)

// IsValidDateAndOrTime reports whether value matches the RFC 6350
// date-and-or-time grammar (with a mandatory T designator when a time
// is present).
func IsValidDateAndOrTime(value string) bool {
	return dateAndOrTimeRegexp.MatchString(value)
}
