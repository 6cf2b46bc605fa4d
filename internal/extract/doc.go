package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
)

// Word 97-2003 File Information Block offsets inside the WordDocument stream.
const (
	fibIdent         = 0xA5EC
	fibFlagsOffset   = 0x000A
	fibWhichTblStm   = 0x0200
	fibFcClxOffset   = 0x01A2
	fibLcbClxOffset  = 0x01A6
	pieceCompressed  = 0x40000000
	clxPrc           = 0x01
	clxPcdt          = 0x02
	pcdSize          = 8
	minPrintableRun  = 4
	maxPieceCharSpan = 1 << 24
)

var errNotWordDocument = errors.New("not a word 97-2003 document")

func extractDOC(data []byte) (string, error) {
	streams, err := readOLEStreams(data, "WordDocument", "0Table", "1Table")
	if err != nil {
		return "", err
	}
	wordDoc := streams["WordDocument"]
	if len(wordDoc) == 0 {
		return "", errNotWordDocument
	}

	tableName := "0Table"
	if len(wordDoc) > fibFlagsOffset+2 && binary.LittleEndian.Uint16(wordDoc[fibFlagsOffset:])&fibWhichTblStm != 0 {
		tableName = "1Table"
	}

	text, err := parsePieceTable(wordDoc, streams[tableName])
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	// Piece table unusable: salvage printable 8-bit runs from the body.
	if salvaged := printableRuns(wordDoc); salvaged != "" {
		return salvaged, nil
	}
	if err == nil {
		err = errNotWordDocument
	}
	return "", err
}

func readOLEStreams(data []byte, names ...string) (map[string][]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open compound file: %w", err)
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	out := make(map[string][]byte)
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if !wanted[entry.Name] {
			continue
		}
		buf, readErr := io.ReadAll(entry)
		if readErr != nil {
			return nil, fmt.Errorf("read stream %s: %w", entry.Name, readErr)
		}
		out[entry.Name] = buf
	}
	return out, nil
}

// parsePieceTable walks the CLX in the table stream and concatenates every
// text piece it references in the WordDocument stream.
func parsePieceTable(wordDoc, table []byte) (string, error) {
	if len(wordDoc) < fibLcbClxOffset+4 {
		return "", errNotWordDocument
	}
	if binary.LittleEndian.Uint16(wordDoc[0:2]) != fibIdent {
		return "", errNotWordDocument
	}
	fcClx := int(binary.LittleEndian.Uint32(wordDoc[fibFcClxOffset:]))
	lcbClx := int(binary.LittleEndian.Uint32(wordDoc[fibLcbClxOffset:]))
	if lcbClx <= 0 || fcClx < 0 || fcClx+lcbClx > len(table) {
		return "", errors.New("clx out of range")
	}
	clx := table[fcClx : fcClx+lcbClx]

	pos := 0
	for pos < len(clx) && clx[pos] == clxPrc {
		if pos+3 > len(clx) {
			return "", errors.New("truncated prc")
		}
		pos += 3 + int(binary.LittleEndian.Uint16(clx[pos+1:]))
	}
	if pos+5 > len(clx) || clx[pos] != clxPcdt {
		return "", errors.New("pcdt not found")
	}
	lcb := int(binary.LittleEndian.Uint32(clx[pos+1:]))
	plc := clx[pos+5:]
	if lcb > len(plc) || lcb < 4+pcdSize+4 {
		return "", errors.New("plcpcd out of range")
	}
	plc = plc[:lcb]

	pieces := (lcb - 4) / (4 + pcdSize)
	cpBase := 0
	pcdBase := 4 * (pieces + 1)

	var buf strings.Builder
	for i := 0; i < pieces; i++ {
		cpStart := int(binary.LittleEndian.Uint32(plc[cpBase+4*i:]))
		cpEnd := int(binary.LittleEndian.Uint32(plc[cpBase+4*(i+1):]))
		chars := cpEnd - cpStart
		if chars <= 0 || chars > maxPieceCharSpan {
			continue
		}
		pcd := plc[pcdBase+pcdSize*i : pcdBase+pcdSize*(i+1)]
		fc := binary.LittleEndian.Uint32(pcd[2:6])

		if fc&pieceCompressed != 0 {
			off := int((fc &^ pieceCompressed) / 2)
			if off+chars > len(wordDoc) {
				continue
			}
			decoded, err := charmap.Windows1252.NewDecoder().Bytes(wordDoc[off : off+chars])
			if err != nil {
				continue
			}
			buf.Write(decoded)
			continue
		}

		off := int(fc)
		if off+2*chars > len(wordDoc) {
			continue
		}
		units := make([]uint16, chars)
		for j := range units {
			units[j] = binary.LittleEndian.Uint16(wordDoc[off+2*j:])
		}
		buf.WriteString(string(utf16.Decode(units)))
	}
	return cleanWordText(buf.String()), nil
}

// cleanWordText maps Word control characters to plain whitespace and drops
// field markers.
func cleanWordText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\r', 0x0b, 0x0c:
			b.WriteByte('\n')
		case 0x07, '\t':
			b.WriteByte('\t')
		case 0x13, 0x14, 0x15, 0x01, 0x08:
		default:
			if r >= 0x20 || r == '\n' {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

func printableRuns(data []byte) string {
	var out, run strings.Builder
	flush := func() {
		if run.Len() >= minPrintableRun {
			if out.Len() > 0 {
				out.WriteByte('\n')
			}
			out.WriteString(run.String())
		}
		run.Reset()
	}
	for _, c := range data {
		if (c >= 0x20 && c < 0x7f) || c == '\t' {
			run.WriteByte(c)
			continue
		}
		flush()
	}
	flush()
	return out.String()
}
