// Package header decodes and picks apart raw email header values:
// RFC 2047 encoded-words, double-decoded UTF-8, and sender/recipient
// addresses. Every function is total: malformed input degrades to a
// best-effort result and never panics or returns an error.
package header

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/charset"
)

// encodedWordPattern matches =?charset?B|Q?payload?=.
var encodedWordPattern = regexp.MustCompile(`(?i)=\?([^?]+)\?([BQ])\?([^?]+)\?=`)

// qpEscapePattern matches one =XX escape inside a Q payload.
var qpEscapePattern = regexp.MustCompile(`=([0-9A-Fa-f]{2})`)

// DecodeEncodedWords replaces every encoded-word in raw with its
// decoded text. Words that fail to decode are left as they were, and
// text outside encoded-words passes through untouched.
func DecodeEncodedWords(raw string) string {
	if !strings.Contains(raw, "=?") {
		return raw
	}

	return encodedWordPattern.ReplaceAllStringFunc(raw, func(word string) string {
		m := encodedWordPattern.FindStringSubmatch(word)
		if m == nil {
			return word
		}
		label, enc, payload := m[1], strings.ToUpper(m[2]), m[3]

		var data []byte
		var ok bool
		switch enc {
		case "B":
			data, ok = decodeBase64(payload)
		case "Q":
			data, ok = decodeQ(payload)
		}
		if !ok {
			return word
		}

		return toUTF8(label, data)
	})
}

// decodeBase64 accepts padded and unpadded payloads.
func decodeBase64(payload string) ([]byte, bool) {
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, true
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return nil, false
	}
	return data, true
}

// decodeQ turns underscores into spaces and =XX escapes into bytes.
// Underscores are handled first so an encoded =5F stays an underscore,
// as RFC 2047 requires; decoding escapes first would turn it into a space.
func decodeQ(payload string) ([]byte, bool) {
	spaced := strings.ReplaceAll(payload, "_", " ")
	out := qpEscapePattern.ReplaceAllStringFunc(spaced, func(esc string) string {
		b, err := hex.DecodeString(esc[1:])
		if err != nil {
			return esc
		}
		return string(b)
	})
	return []byte(out), true
}

// toUTF8 converts data from the named charset. UTF-8, ASCII and
// unknown charsets are read as UTF-8, with invalid sequences replaced.
func toUTF8(label string, data []byte) string {
	switch strings.ToLower(label) {
	case "utf-8", "utf8", "us-ascii", "ascii":
	default:
		if r, err := charset.Reader(label, bytes.NewReader(data)); err == nil {
			if converted, err := io.ReadAll(r); err == nil {
				data = converted
			}
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

// mojibakePattern is the signature of UTF-8 bytes that were decoded as
// Latin-1: Ã or Â followed by a character in U+0080..U+00BF.
var mojibakePattern = regexp.MustCompile(`[ÃÂ][\x{80}-\x{BF}]`)

// RepairMojibake re-decodes text that looks like UTF-8 read as Latin-1.
// It is a heuristic: it can miss real double encoding and can mangle
// legitimate text that happens to match the signature. Input is
// returned unchanged when it does not match, when a character falls
// outside Latin-1, or when the re-decoded bytes are not valid UTF-8.
func RepairMojibake(text string) string {
	if text == "" || !mojibakePattern.MatchString(text) {
		return text
	}

	buf := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0xFF {
			return text
		}
		buf = append(buf, byte(r))
	}

	if !utf8.Valid(buf) {
		return text
	}
	return string(buf)
}
