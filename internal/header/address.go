package header

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UnknownSender is the display name used when nothing better exists.
const UnknownSender = "Unknown"

var (
	angleAddrPattern  = regexp.MustCompile(`<([^>]+)>`)
	quotedNamePattern = regexp.MustCompile(`"([^"]+)"`)
)

// ExtractSenderEmail returns the lowercase address inside <...> when
// present, otherwise the whole value lowercased and trimmed.
func ExtractSenderEmail(value string) string {
	if m := angleAddrPattern.FindStringSubmatch(value); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	return strings.ToLower(strings.TrimSpace(value))
}

// ExtractDomain returns the lowercase text after the first "@", or the
// whole address lowercased when there is no "@".
func ExtractDomain(email string) string {
	if _, domain, ok := strings.Cut(email, "@"); ok {
		return strings.ToLower(domain)
	}
	return strings.ToLower(email)
}

// ExtractSenderName derives a display name from a raw From header. In
// order of preference: the quoted display name, the capitalized local
// part of the <address>, the local part of the whole value, and finally
// UnknownSender.
func ExtractSenderName(from string) string {
	decoded := RepairMojibake(DecodeEncodedWords(from))

	if m := quotedNamePattern.FindStringSubmatch(decoded); m != nil {
		return RepairMojibake(m[1])
	}

	if m := angleAddrPattern.FindStringSubmatch(decoded); m != nil {
		local, _, _ := strings.Cut(m[1], "@")
		if name := RepairMojibake(capitalize(local)); name != "" {
			return name
		}
		return UnknownSender
	}

	local, _, _ := strings.Cut(decoded, "@")
	if name := RepairMojibake(local); name != "" {
		return name
	}
	return UnknownSender
}

// capitalize upper-cases the first rune only.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
