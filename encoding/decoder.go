package encoding

import (
	"bytes"
	"errors"
	"io"
)

// Decoded is the result of running the Character Stream Decoder (component
// B) over a resource's byte stream.
type Decoded struct {
	// Text is the fully decoded document, re-encoded as UTF-8 with null
	// bytes mapped to spaces per §4.2 step 4. Line-ending normalization is
	// the Entity's job (§4.3), not the decoder's.
	Text []byte
	// Charset is the name of the encoding that was ultimately used.
	Charset string
}

// ErrUnsupportedCharset is returned when a detected or declared charset name
// has no known decoder.
var ErrUnsupportedCharset = errors.New("encoding: unsupported charset")

// Decode implements §4.2 end to end: detect the encoding via BOM, XML
// declaration, or HTML <meta>, in that order, decode the whole stream to
// UTF-8, and map null bytes to spaces. defaultCharset is used when none of
// the detection steps succeed (empty means UTF-8, per the spec). isHTML is
// not consulted: the <meta> sniff is attempted for every document, since a
// non-HTML document simply won't contain the tag.
//
// Non-seekable input is read fully into memory first (§4.2 step 3): sniffing
// requires rewinding, and io.Reader offers none.
func Decode(r io.Reader, defaultCharset string, isHTML bool) (*Decoded, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(raw, defaultCharset, isHTML)
}

// DecodeBytes is Decode for callers who already hold the full byte stream in
// memory.
func DecodeBytes(raw []byte, defaultCharset string, isHTML bool) (*Decoded, error) {
	if charset, n, ok := DetectBOM(raw); ok {
		body := raw[n:]
		text, err := decodeWith(charset, body)
		if err != nil {
			return nil, err
		}
		return &Decoded{Text: mapNulls(text), Charset: charset}, nil
	}

	provisional := defaultCharset
	if provisional == "" {
		provisional = "utf-8"
	}

	if charset, ok := SniffXMLDecl(raw); ok {
		text, err := decodeWith(charset, raw)
		if err != nil {
			return nil, err
		}
		return &Decoded{Text: mapNulls(text), Charset: charset}, nil
	}

	if charset, ok := SniffHTMLMeta(raw); ok {
		text, err := decodeWith(charset, raw)
		if err != nil {
			return nil, err
		}
		return &Decoded{Text: mapNulls(text), Charset: charset}, nil
	}

	text, err := decodeWith(provisional, raw)
	if err != nil {
		return nil, err
	}
	return &Decoded{Text: mapNulls(text), Charset: provisional}, nil
}

func decodeWith(charset string, raw []byte) ([]byte, error) {
	if isUCS4Charset(charset) {
		return decodeUCS4(raw, charset)
	}
	enc := Load(charset)
	if enc == nil {
		return nil, ErrUnsupportedCharset
	}
	return enc.NewDecoder().Bytes(raw)
}

func mapNulls(b []byte) []byte {
	if !bytes.ContainsRune(b, 0) {
		return b
	}
	out := make([]byte, len(b))
	for i, c := range b {
		if c == 0 {
			out[i] = ' '
		} else {
			out[i] = c
		}
	}
	return out
}
