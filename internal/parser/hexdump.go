package parser

import "strings"

// HexDumpLimit bounds how many bytes HexDump prints.
const HexDumpLimit = 32

const hexDigits = "0123456789ABCDEF"

// HexDump renders at most the first HexDumpLimit bytes of b as space separated
// upper-case hex pairs, e.g. "46 53 32".
func HexDump(b []byte) string {
	if len(b) > HexDumpLimit {
		b = b[:HexDumpLimit]
	}
	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(hexDigits[c>>4])
		sb.WriteByte(hexDigits[c&0x0F])
	}
	return sb.String()
}
