// Package docgen lays out a project's generated units into OOXML document
// containers. It is invoked only after the generation cascade has made the
// project as complete as it can be; ungenerated units render a placeholder.
package docgen

import (
	"fmt"
	"strings"

	"docforge/pkg/domain"
)

const (
	wordMIME  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	slideMIME = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

	placeholderText = "[Content not yet generated]"
)

// Serialize renders the project into a .docx or .pptx byte buffer
// according to its kind.
func Serialize(p domain.Project) ([]byte, error) {
	switch p.Kind {
	case domain.KindWord:
		return buildWord(p)
	case domain.KindSlide:
		return buildPowerPoint(p)
	default:
		return nil, fmt.Errorf("unknown document kind: %q", p.Kind)
	}
}

// MIMEType returns the content type for the document kind.
func MIMEType(kind domain.DocumentKind) string {
	if kind == domain.KindSlide {
		return slideMIME
	}
	return wordMIME
}

// Extension returns the file extension for the document kind.
func Extension(kind domain.DocumentKind) string {
	if kind == domain.KindSlide {
		return "pptx"
	}
	return "docx"
}

// Filename builds a download filename from the project title: characters
// other than letters, digits, spaces, dashes, and underscores are stripped
// and trailing spaces removed.
func Filename(title string, kind domain.DocumentKind) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	name := strings.TrimRight(b.String(), " ")
	if name == "" {
		name = "Document"
	}
	return name + "." + Extension(kind)
}

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)
