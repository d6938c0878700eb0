package email

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/jaytaylor/html2text"

	// Registers non-UTF-8 charsets with go-message.
	_ "github.com/emersion/go-message/charset"
)

// decodeBody reassembles the fetched header and text sections into a
// message and returns its readable body: the text/plain part when
// present, otherwise the text/html part rendered as plain text. Bodies
// are fetched partially, so a truncated trailing part is tolerated.
func decodeBody(head, text []byte) string {
	if len(text) == 0 {
		return ""
	}

	var raw bytes.Buffer
	raw.Write(head)
	if len(head) > 0 && !bytes.HasSuffix(head, []byte("\n")) {
		raw.WriteString("\r\n")
	}
	if b := raw.Bytes(); !bytes.HasSuffix(b, []byte("\r\n\r\n")) && !bytes.HasSuffix(b, []byte("\n\n")) {
		raw.WriteString("\r\n")
	}
	raw.Write(text)

	textBody, htmlBody := parseMIMEBody(raw.Bytes())
	if textBody == "" && htmlBody == "" {
		return string(text)
	}
	if strings.TrimSpace(textBody) != "" {
		return textBody
	}
	return htmlToText(htmlBody)
}

// parseMIMEBody parses a raw RFC 2822 message using go-message and
// returns the first text/plain and text/html bodies it finds.
func parseMIMEBody(raw []byte) (textBody, htmlBody string) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return "", ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if len(body) == 0 && readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}

	return textBody, htmlBody
}

// htmlToText renders an HTML body as plain text.
func htmlToText(html string) string {
	if html == "" {
		return ""
	}
	text, err := html2text.FromString(html, html2text.Options{TextOnly: true})
	if err != nil {
		return html
	}
	return strings.TrimSpace(text)
}
