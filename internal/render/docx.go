// Package render writes plain resume text as a minimal WordprocessingML
// package: one paragraph per line, the first line styled as the candidate
// name and short all-caps or colon-terminated lines as section headings.
package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"resume-ranker/internal/shared/util"
)

// ContentType is the MIME type of a rendered document.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	wmlNamespace     = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNamespace     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	defaultFileName  = "resume.docx"
	maxHeadingLength = 60
	bulletGlyph      = "• "
)

// ErrEmptyContent is returned when there is nothing to render.
var ErrEmptyContent = errors.New("content is required")

// zipModified is fixed so identical content renders to identical bytes.
var zipModified = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

const sectionPropsXML = `<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
	`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr>`

// RenderText converts content into DOCX bytes.
func RenderText(content string) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	documentXML := renderDocumentXML(content)
	if err := validateDocumentXMLStructure(documentXML); err != nil {
		return nil, err
	}

	var output bytes.Buffer
	writer := zip.NewWriter(&output)
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/document.xml", documentXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
	}
	for _, part := range parts {
		if err := writeZipPart(writer, part.name, []byte(part.body)); err != nil {
			return nil, fmt.Errorf("write %s: %w", part.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

// DownloadName turns a client-supplied name into a safe .docx file name.
func DownloadName(name string) string {
	name = strings.TrimSpace(name)
	if lower := strings.ToLower(name); strings.HasSuffix(lower, ".docx") {
		name = name[:len(name)-len(".docx")]
	}
	if strings.Trim(name, "._ ") == "" {
		return defaultFileName
	}
	return util.SafeStorageName(name) + ".docx"
}

func renderDocumentXML(content string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="` + wmlNamespace + `" xmlns:r="` + relNamespace + `"><w:body>`)

	seenName := false
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		line = strings.TrimRightFunc(xmlSafe(line), unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			b.WriteString("<w:p/>")
			continue
		}
		style, text := classify(line, !seenName)
		seenName = true
		writeParagraph(&b, StyleMap[style], text)
	}

	b.WriteString(sectionPropsXML)
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func classify(line string, first bool) (string, string) {
	trimmed := strings.TrimSpace(line)
	if first {
		return styleName, trimmed
	}
	for _, marker := range []string{"- ", "* ", bulletGlyph} {
		if strings.HasPrefix(trimmed, marker) {
			return styleBullet, bulletGlyph + strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
		}
	}
	if isHeading(trimmed) {
		return styleHeading, trimmed
	}
	return styleBody, trimmed
}

func isHeading(line string) bool {
	if len([]rune(line)) > maxHeadingLength {
		return false
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func writeParagraph(b *strings.Builder, style RunStyle, text string) {
	b.WriteString("<w:p><w:r>")
	if props := runProps(style); props != "" {
		b.WriteString("<w:rPr>" + props + "</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	_ = xml.EscapeText(b, []byte(text))
	b.WriteString("</w:t></w:r></w:p>")
}

// runProps emits rPr children in schema order.
func runProps(style RunStyle) string {
	var b strings.Builder
	if style.Bold {
		b.WriteString("<w:b/>")
	}
	if style.Italic {
		b.WriteString("<w:i/>")
	}
	if style.Color != "" {
		b.WriteString(`<w:color w:val="` + style.Color + `"/>`)
	}
	if style.Size > 0 {
		b.WriteString(`<w:sz w:val="` + strconv.Itoa(style.Size) + `"/>`)
	}
	return b.String()
}

// xmlSafe drops runes that XML 1.0 cannot carry.
func xmlSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r < 0x20, r == 0xFFFE, r == 0xFFFF, r >= 0xD800 && r <= 0xDFFF:
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, ""))
}

func writeZipPart(writer *zip.Writer, name string, content []byte) error {
	header := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: zipModified}
	dst, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = dst.Write(content)
	return err
}

func validateDocumentXMLStructure(xmlText string) error {
	decoder := xml.NewDecoder(strings.NewReader(xmlText))
	var stack []xml.Name
	var runSeenText []bool

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("document.xml parse failed: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
			if isWmlElement(t.Name, "p") {
				for i := len(stack) - 2; i >= 0; i-- {
					if isWmlElement(stack[i], "p") {
						return errors.New("document.xml has nested <w:p>")
					}
				}
			}
			if isWmlElement(t.Name, "r") {
				runSeenText = append(runSeenText, false)
			}
			if isWmlElement(t.Name, "t") && len(runSeenText) > 0 {
				runSeenText[len(runSeenText)-1] = true
			}
			if isWmlElement(t.Name, "rPr") && len(runSeenText) > 0 && runSeenText[len(runSeenText)-1] {
				return errors.New("document.xml has <w:rPr> after <w:t> in a run")
			}
		case xml.EndElement:
			if isWmlElement(t.Name, "r") && len(runSeenText) > 0 {
				runSeenText = runSeenText[:len(runSeenText)-1]
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}

func isWmlElement(name xml.Name, local string) bool {
	return name.Local == local && name.Space == wmlNamespace
}
