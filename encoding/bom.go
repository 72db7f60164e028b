package encoding

import "bytes"

// bom4, bom3 and bom2 map a byte-order mark to the charset name it implies,
// grouped by the mark's length. DetectBOM tries them longest first: the
// four-byte UCS-4 marks (both endiannesses, plus the two "unusual"
// middle-endian orderings), then the three-byte UTF-8 mark, then the
// two-byte UTF-16 marks.
var bom4 = []struct {
	pattern []byte
	charset string
}{
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, "ucs-4be"},
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, "ucs-4le"},
	{[]byte{0xFE, 0xFF, 0x00, 0x00}, "ucs-4-2143"},
	{[]byte{0x00, 0x00, 0xFF, 0xFE}, "ucs-4-3412"},
}

var bom3 = []struct {
	pattern []byte
	charset string
}{
	{[]byte{0xEF, 0xBB, 0xBF}, "utf-8"},
}

var bom2 = []struct {
	pattern []byte
	charset string
}{
	{[]byte{0xFE, 0xFF}, "utf-16be"},
	{[]byte{0xFF, 0xFE}, "utf-16le"},
}

// DetectBOM implements §4.2 step (a). It returns the charset implied by a
// recognized byte-order mark and the number of leading bytes to discard, or
// ok=false if raw does not start with any known BOM.
func DetectBOM(raw []byte) (charset string, bomLen int, ok bool) {
	if len(raw) >= 4 {
		for _, b := range bom4 {
			if bytes.Equal(raw[:4], b.pattern) {
				return b.charset, 4, true
			}
		}
	}
	if len(raw) >= 3 {
		for _, b := range bom3 {
			if bytes.Equal(raw[:3], b.pattern) {
				return b.charset, 3, true
			}
		}
	}
	if len(raw) >= 2 {
		for _, b := range bom2 {
			if bytes.Equal(raw[:2], b.pattern) {
				return b.charset, 2, true
			}
		}
	}
	return "", 0, false
}
