package internal

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestFoldLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "short",
			in:   "FN:John Smith",
			want: "FN:John Smith",
		},
		{
			name: "exactly 75",
			in:   strings.Repeat("a", 75),
			want: strings.Repeat("a", 75),
		},
		{
			name: "76 units",
			in:   strings.Repeat("a", 76),
			want: strings.Repeat("a", 75) + "\n a",
		},
		{
			name: "two folds",
			in:   strings.Repeat("a", 160),
			want: strings.Repeat("a", 75) + "\n " + strings.Repeat("a", 75) + "\n " + strings.Repeat("a", 10),
		},
		{
			name: "surrogate pair at the cut",
			in:   strings.Repeat("a", 74) + "\U0001f600" + "bc",
			want: strings.Repeat("a", 74) + "\n \U0001f600bc",
		},
		{
			name: "escape at the cut",
			in:   strings.Repeat("a", 74) + `\nbc`,
			want: strings.Repeat("a", 74) + "\n " + `\nbc`,
		},
		{
			name: "escaped backslash at the cut",
			in:   strings.Repeat("a", 73) + `\\bc`,
			want: strings.Repeat("a", 73) + `\\` + "\n bc",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FoldLine(tc.in)
			if got != tc.want {
				t.Errorf("FoldLine(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if unfolded := UnfoldLine(got); unfolded != tc.in {
				t.Errorf("UnfoldLine(FoldLine(%q)) = %q", tc.in, unfolded)
			}
		})
	}
}

func TestEscapeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a,b;c", `a\,b\;c`},
		{"line1\nline2", `line1\nline2`},
		{`back\slash`, `back\\slash`},
	}
	for _, tc := range tests {
		got := EscapeValue(tc.in)
		if got != tc.want {
			t.Errorf("EscapeValue(%q) = %q, want %q", tc.in, got, tc.want)
		}
		if back := UnescapeValue(got); back != tc.in {
			t.Errorf("UnescapeValue(EscapeValue(%q)) = %q", tc.in, back)
		}
	}
}

func TestUnescapeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`a\nb`, "a\nb"},
		{`a\Nb`, "a\nb"},
		{`a\tb`, "a\tb"},
		{`a\\nb`, `a\nb`},
		{`a\;b\,c`, "a;b,c"},
		{`a\xb`, `a\xb`},
	}
	for _, tc := range tests {
		if got := UnescapeValue(tc.in); got != tc.want {
			t.Errorf("UnescapeValue(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEndsInEscape(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"abc", false},
		{`abc\`, true},
		{`abc\\`, false},
		{`abc\\\`, true},
		{`\`, true},
	}
	for _, tc := range tests {
		if got := EndsInEscape(tc.in); got != tc.want {
			t.Errorf("EndsInEscape(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestSplitEscaped(t *testing.T) {
	tests := []struct {
		name string
		in   string
		sep  byte
		want []string
	}{
		{
			name: "simple",
			in:   "Smith;John;Quinlan;Mr.;Esq.",
			sep:  ';',
			want: []string{"Smith", "John", "Quinlan", "Mr.", "Esq."},
		},
		{
			name: "escaped separator",
			in:   `Doe\;Jr.;Jane`,
			sep:  ';',
			want: []string{"Doe;Jr.", "Jane"},
		},
		{
			name: "trailing empties dropped",
			in:   "Smith;John;;;",
			sep:  ';',
			want: []string{"Smith", "John"},
		},
		{
			name: "inner empty kept",
			in:   "Smith;;John",
			sep:  ';',
			want: []string{"Smith", "", "John"},
		},
		{
			name: "whitespace trimmed",
			in:   " Smith ; John ",
			sep:  ';',
			want: []string{"Smith", "John"},
		},
		{
			name: "empty",
			in:   "",
			sep:  ';',
			want: []string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitEscaped(tc.in, tc.sep)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("SplitEscaped(%q) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecodeQuotedPrintable(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     string
		wantMore bool
	}{
		{
			name: "plain",
			in:   "hello",
			want: "hello",
		},
		{
			name: "equals sign",
			in:   "a=3Db",
			want: "a=b",
		},
		{
			name: "latin1 byte",
			in:   "caf=E9",
			want: "caf\xe9",
		},
		{
			name: "utf8 sequence",
			in:   "=C3=A9",
			want: "é",
		},
		{
			name:     "soft line break",
			in:       "first part=",
			want:     "first part",
			wantMore: true,
		},
		{
			name: "lowercase hex",
			in:   "=c3=a9",
			want: "é",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, more := DecodeQuotedPrintable([]byte(tc.in))
			if !bytes.Equal(got, []byte(tc.want)) {
				t.Errorf("DecodeQuotedPrintable(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if more != tc.wantMore {
				t.Errorf("DecodeQuotedPrintable(%q) more = %v, want %v", tc.in, more, tc.wantMore)
			}
		})
	}
}

func TestTranscodeASCIIToUTF8(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("plain ascii"), "plain ascii"},
		{[]byte{'c', 'a', 'f', 0xe9}, "café"},
		{[]byte{0xdf}, "ß"},
	}
	for _, tc := range tests {
		if got := TranscodeASCIIToUTF8(tc.in); string(got) != tc.want {
			t.Errorf("TranscodeASCIIToUTF8(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
