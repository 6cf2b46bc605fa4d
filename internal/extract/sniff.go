package extract

import "github.com/gabriel-vasile/mimetype"

// sniffFormat routes untyped payloads by content signature.
func sniffFormat(data []byte) Format {
	if len(data) == 0 {
		return FormatText
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch {
		case m.Is(mimePDF):
			return FormatPDF
		case m.Is(mimeDOCX):
			return FormatDOCX
		case m.Is(mimeDOC), m.Is(mimeOLE):
			return FormatDOC
		}
	}
	return FormatText
}
