// Package extract turns uploaded resume bytes into plain text.
//
// Extraction never fails from the caller's point of view: parser errors,
// panics inside third-party decoders and timeouts all degrade to an empty
// Result with Degraded set, so one bad file cannot abort a ranking run.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Format names the decoder that produced a Result.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatDOC  Format = "doc"
	FormatText Format = "text"
)

const (
	mimePDF      = "application/pdf"
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC      = "application/msword"
	mimeOLE      = "application/x-ole-storage"
	mimeOctet    = "application/octet-stream"
	mimeZip      = "application/zip"
	headingLimit = 200
)

// Result is the outcome of extracting one file.
type Result struct {
	Text     string
	Heading  string
	Format   Format
	Degraded bool
	// Reason describes why the result is degraded. Empty otherwise.
	Reason string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

var decoders = map[Format]func([]byte) (string, error){
	FormatPDF:  extractPDF,
	FormatDOCX: extractDOCX,
	FormatDOC:  extractDOC,
	FormatText: decodeText,
}

// Extract decodes data according to fileName and mimeType.
func Extract(ctx context.Context, data []byte, fileName, mimeType string) Result {
	format := detectFormat(data, fileName, mimeType)
	if err := ctx.Err(); err != nil {
		return Result{Format: format, Degraded: true, Reason: err.Error()}
	}

	raw, err := decode(format, data)
	if err != nil {
		return Result{Format: format, Degraded: true, Reason: err.Error()}
	}
	raw = clean(raw)
	return Result{
		Text:    Normalize(raw),
		Heading: firstLine(raw),
		Format:  format,
	}
}

// ExtractWithTimeout runs Extract with a time budget. When the budget or ctx
// expires first the Result is empty and degraded. The decoder goroutine is
// left to finish on its own since the parsers are not cancellable.
func ExtractWithTimeout(ctx context.Context, timeout time.Duration, data []byte, fileName, mimeType string) Result {
	if timeout <= 0 {
		return Extract(ctx, data, fileName, mimeType)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		done <- Extract(ctx, data, fileName, mimeType)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return Result{
			Format:   detectFormat(data, fileName, mimeType),
			Degraded: true,
			Reason:   fmt.Sprintf("extraction timed out: %v", ctx.Err()),
		}
	}
}

// Normalize collapses every whitespace run to one space and trims the ends.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

func decode(format Format, data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%s decoder panic: %v", format, rec)
		}
	}()

	if fn, ok := decoders[format]; ok {
		return fn(data)
	}
	return decodeText(data)
}

// clean drops NUL bytes and invalid UTF-8 so decoded text is safe for TEXT
// columns. PDF fonts with unknown encodings pass raw bytes through.
func clean(raw string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(raw, ""), "\x00", "")
}

func detectFormat(data []byte, fileName, mimeType string) Format {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".doc":
		return FormatDOC
	}

	switch cleanMime(mimeType) {
	case mimePDF:
		return FormatPDF
	case mimeDOCX:
		return FormatDOCX
	case mimeDOC:
		return FormatDOC
	case "", mimeOctet, mimeZip:
		return sniffFormat(data)
	}
	return FormatText
}

func cleanMime(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}

func firstLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		if heading := Normalize(line); heading != "" {
			if len([]rune(heading)) > headingLimit {
				return string([]rune(heading)[:headingLimit])
			}
			return heading
		}
	}
	return ""
}
