package extract

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// nulRatioLimit marks payloads as binary when more than one byte in ten is NUL.
const nulRatioLimit = 10

// ErrBinaryPayload reports a payload routed to the text decoder that is not text.
var ErrBinaryPayload = errors.New("binary payload is not text")

func decodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	if hasUTF16BOM(data) {
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err == nil {
			return strings.ReplaceAll(string(decoded), "\uFFFD", ""), nil
		}
	}
	if bytes.Count(data, []byte{0})*nulRatioLimit > len(data) {
		return "", ErrBinaryPayload
	}
	return string(bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))), nil
}

func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 && ((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF))
}
