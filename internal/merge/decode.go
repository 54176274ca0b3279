package merge

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decoder attempts a strict decode and fails on any invalid sequence.
type decoder struct {
	label  string
	decode func(data []byte) (string, error)
}

// decoders is the fixed attempt order: narrowest valid region first,
// first strict success wins. Nothing is selected by content sniffing.
var decoders = []decoder{
	{"utf-8", decodeUTF8},
	{"utf-8-sig", decodeUTF8SIG},
	{"cp1251", func(data []byte) (string, error) { return decodeCharmap(data, charmap.Windows1251) }},
	{"windows-1251", func(data []byte) (string, error) { return decodeCharmap(data, charmap.Windows1251) }},
	{"latin-1", func(data []byte) (string, error) { return decodeCharmap(data, charmap.ISO8859_1) }},
}

// DecodeBestEffort decodes data with the first encoding in the fixed
// list that accepts it strictly, returning the text and the encoding
// label. If none accept, the bytes are force-decoded as UTF-8 with
// replacement of invalid sequences and the label records the last
// strict error plus an advisory charset hint.
func DecodeBestEffort(data []byte) (string, string) {
	var lastErr error
	for _, d := range decoders {
		text, err := d.decode(data)
		if err == nil {
			return text, d.label
		}
		lastErr = err
	}

	label := fmt.Sprintf("fallback(replace): %v", lastErr)
	if hint := detectHint(data); hint != "" {
		label += fmt.Sprintf(" [detector hint: %s]", hint)
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), label
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("invalid utf-8 sequence")
	}
	return string(data), nil
}

func decodeUTF8SIG(data []byte) (string, error) {
	if !bytes.HasPrefix(data, utf8BOM) {
		return "", fmt.Errorf("missing utf-8 byte order mark")
	}
	return decodeUTF8(data[len(utf8BOM):])
}

// decodeCharmap decodes byte-per-rune charsets, rejecting bytes the
// charmap leaves undefined (x/text maps those to U+FFFD silently).
func decodeCharmap(data []byte, cm *charmap.Charmap) (string, error) {
	var sb strings.Builder
	sb.Grow(len(data))
	for i, b := range data {
		r := cm.DecodeByte(b)
		if r == utf8.RuneError {
			return "", fmt.Errorf("byte 0x%02X at offset %d has no mapping", b, i)
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

// detectHint runs the charset detector for the fallback label only; it
// never influences which decoder is chosen.
func detectHint(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return ""
	}
	return strings.ToLower(result.Charset)
}
