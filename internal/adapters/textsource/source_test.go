package textsource

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func xzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = xw.Write(data)
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	return buf.Bytes()
}

func TestDecode_Passthrough(t *testing.T) {
	in := []byte("ushers and his hers")
	out, err := Decode("input.txt", in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Unknown extension, no extension
	out, err = Decode("README", in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecode_Gzip(t *testing.T) {
	in := []byte("GAATTCGGATCC")
	out, err := Decode("reads.txt.gz", gzipBytes(t, in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecode_Xz(t *testing.T) {
	in := bytes.Repeat([]byte("she sells sea shells "), 100)
	out, err := Decode("corpus.XZ", xzBytes(t, in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecode_NestedMarkdownGzip(t *testing.T) {
	md := []byte("# Title\n\nsome *emphasis* here\n")
	out, err := Decode("notes.md.gz", gzipBytes(t, md))
	require.NoError(t, err)
	assert.Equal(t, "Title\nsome emphasis here", string(out))
}

func TestDecode_CorruptStream(t *testing.T) {
	_, err := Decode("bad.gz", []byte("not gzip at all"))
	assert.Error(t, err)

	_, err = Decode("bad.xz", []byte("not xz either"))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>he said &amp; she said</p>"), 0644))

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "he said & she said", string(out))

	_, err = ReadFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestHTMLText(t *testing.T) {
	doc := []byte(`<!doctype html>
<html><head><title>hidden title</title><style>.x{color:red}</style></head>
<body>
  <h1>Visible   heading</h1>
  <script>var secret = "password";</script>
  <p>first<br>second</p>
  <noscript>no js</noscript>
</body></html>`)
	out, err := HTMLText(doc)
	require.NoError(t, err)
	assert.Equal(t, "Visible heading first second", string(out))
}

func TestMarkdownText(t *testing.T) {
	md := []byte("## Heading\n\n" +
		"A paragraph with `inline code` and a [link](http://example.com).\n\n" +
		"- item one\n- item two\n\n" +
		"```go\nfmt.Println(\"hi\")\n```\n\n" +
		"<div>raw html</div>\n")
	out := string(MarkdownText(md))

	assert.Contains(t, out, "Heading\n")
	assert.Contains(t, out, "A paragraph with inline code and a link.")
	assert.Contains(t, out, "item one\nitem two")
	assert.Contains(t, out, "fmt.Println(\"hi\")")
	assert.NotContains(t, out, "raw html")
	assert.NotContains(t, out, "http://example.com")
	assert.NotContains(t, out, "##")
}

func TestToUTF8_ValidPassthrough(t *testing.T) {
	in := []byte("naïve café")
	out, err := ToUTF8(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestToUTF8_UTF16WithBOM(t *testing.T) {
	// "hello" in UTF-16LE with a byte order mark
	in := []byte{0xFF, 0xFE, 'h', 0, 'e', 0, 'l', 0, 'l', 0, 'o', 0}
	out, err := ToUTF8(in)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	be := []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}
	out, err = ToUTF8(be)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(out))
}

func TestDecoderFor(t *testing.T) {
	assert.Equal(t, charmap.ISO8859_1, decoderFor("ISO-8859-1"))
	assert.Equal(t, charmap.Windows1252, decoderFor("windows-1252"))
	assert.Equal(t, encoding.Nop, decoderFor("UTF-8"))
	assert.Equal(t, encoding.Nop, decoderFor("x-unknown"))

	// The mapped decoder really converts.
	latin := []byte{'c', 'a', 'f', 0xE9}
	out, err := decoderFor("ISO-8859-1").NewDecoder().Bytes(latin)
	require.NoError(t, err)
	assert.Equal(t, "café", string(out))
}
