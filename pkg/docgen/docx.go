package docgen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"docforge/pkg/domain"
)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const docxDocumentRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const docxStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:style w:type="paragraph" w:styleId="Title">
<w:name w:val="Title"/><w:rPr><w:b/><w:sz w:val="48"/></w:rPr>
</w:style>
<w:style w:type="paragraph" w:styleId="Heading1">
<w:name w:val="heading 1"/><w:rPr><w:b/><w:sz w:val="32"/></w:rPr>
</w:style>
</w:styles>`

// buildWord renders the project as a minimal WordprocessingML package:
// centered title, optional description, then one heading plus paragraphs
// per section in unit order.
func buildWord(p domain.Project) ([]byte, error) {
	sections := append([]domain.Section(nil), p.Sections...)
	sort.Slice(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })

	var body strings.Builder
	body.WriteString(styledParagraph("Title", `<w:jc w:val="center"/>`, p.Title))
	if p.Description != "" {
		body.WriteString(plainParagraph(p.Description))
	}
	body.WriteString(emptyParagraph)

	for _, section := range sections {
		body.WriteString(styledParagraph("Heading1", "", section.Title))
		if section.Content != nil {
			for _, para := range strings.Split(*section.Content, "\n\n") {
				para = strings.TrimSpace(para)
				if para != "" {
					body.WriteString(plainParagraph(para))
				}
			}
		} else {
			body.WriteString(plainParagraph(placeholderText))
		}
		body.WriteString(emptyParagraph)
	}

	document := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>%s</w:body>
</w:document>`, body.String())

	return writeZip(map[string]string{
		"[Content_Types].xml":          docxContentTypes,
		"_rels/.rels":                  docxRootRels,
		"word/_rels/document.xml.rels": docxDocumentRels,
		"word/styles.xml":              docxStyles,
		"word/document.xml":            document,
	})
}

const emptyParagraph = "<w:p/>"

func plainParagraph(text string) string {
	return fmt.Sprintf(`<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, escapeXML(text))
}

func styledParagraph(style, extraProps, text string) string {
	return fmt.Sprintf(`<w:p><w:pPr><w:pStyle w:val="%s"/>%s</w:pPr><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`,
		style, extraProps, escapeXML(text))
}

func writeZip(parts map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	// Deterministic part order keeps output byte-stable.
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create zip part %s: %w", name, err)
		}
		if _, err := w.Write([]byte(parts[name])); err != nil {
			return nil, fmt.Errorf("write zip part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
