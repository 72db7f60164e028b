package encoding_test

import (
	"testing"

	"github.com/sgml-go/sgml/encoding"
	"github.com/stretchr/testify/require"
)

func TestDecodeUTF8BOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("<a>x</a>")...)
	d, err := encoding.DecodeBytes(raw, "", false)
	require.NoError(t, err)
	require.Equal(t, "utf-8", d.Charset)
	require.Equal(t, "<a>x</a>", string(d.Text))
}

func TestDecodeXMLDeclEncoding(t *testing.T) {
	raw := []byte(`<?xml version="1.0" encoding="windows-1252"?><a>caf` + "\xe9" + `</a>`)
	d, err := encoding.DecodeBytes(raw, "", false)
	require.NoError(t, err)
	require.Equal(t, "windows-1252", d.Charset)
	require.Contains(t, string(d.Text), "café")
}

func TestDecodeHTMLMetaCharset(t *testing.T) {
	raw := []byte(`<html><head><meta http-equiv="Content-Type" content="text/html; charset=windows-1252"></head><body>caf` + "\xe9" + `</body></html>`)
	d, err := encoding.DecodeBytes(raw, "", true)
	require.NoError(t, err)
	require.Equal(t, "windows-1252", d.Charset)
	require.Contains(t, string(d.Text), "café")
}

func TestDecodeDefaultsToUTF8(t *testing.T) {
	d, err := encoding.DecodeBytes([]byte("<a>plain</a>"), "", false)
	require.NoError(t, err)
	require.Equal(t, "utf-8", d.Charset)
}

func TestDecodeNullBytesMappedToSpace(t *testing.T) {
	d, err := encoding.DecodeBytes([]byte("<a>x\x00y</a>"), "", false)
	require.NoError(t, err)
	require.Equal(t, "<a>x y</a>", string(d.Text))
}

func TestDecodeUCS4BigEndian(t *testing.T) {
	bom := []byte{0x00, 0x00, 0xFE, 0xFF}
	var body []byte
	for _, r := range []rune("<a/>") {
		body = append(body, byte(r>>24), byte(r>>16), byte(r>>8), byte(r))
	}
	raw := append(bom, body...)
	d, err := encoding.DecodeBytes(raw, "", false)
	require.NoError(t, err)
	require.Equal(t, "ucs-4be", d.Charset)
	require.Equal(t, "<a/>", string(d.Text))
}

func TestDecodeUCS4RejectsSurrogate(t *testing.T) {
	bom := []byte{0x00, 0x00, 0xFE, 0xFF}
	raw := append(bom, 0x00, 0x00, 0xD8, 0x00)
	_, err := encoding.DecodeBytes(raw, "", false)
	require.ErrorIs(t, err, encoding.ErrInvalidUCS4)
}
