// Package textsource turns files on disk into the byte text the matcher scans.
// It unwraps compression by extension (.gz, .bz2, .xz), converts legacy
// charsets to UTF-8, and reduces markup (.html, .htm, .md) to its visible text.
// Anything else passes through unchanged.
package textsource

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/corey/multimatch/internal/logger"
)

// MaxSize caps the decompressed size of a single input.
const MaxSize = 256 << 20

// ReadFile reads path and decodes it by name.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(path, data)
}

// Decode unwraps data according to the extensions of name, last extension first:
// "notes.md.gz" is gunzipped, then decoded to UTF-8, then stripped of markdown.
func Decode(name string, data []byte) ([]byte, error) {
	base := strings.ToLower(filepath.Base(name))

	for {
		ext := filepath.Ext(base)
		var r io.Reader
		var err error
		switch ext {
		case ".gz":
			r, err = gzip.NewReader(bytes.NewReader(data))
		case ".bz2":
			r = bzip2.NewReader(bytes.NewReader(data))
		case ".xz":
			r, err = xz.NewReader(bytes.NewReader(data))
		}
		if r == nil && err == nil {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: open %s stream: %w", name, ext, err)
		}
		data, err = readLimited(r)
		if err != nil {
			return nil, fmt.Errorf("%s: decompress %s: %w", name, ext, err)
		}
		logger.DebugLogger.Printf("textsource: %s: unwrapped %s (%d bytes)", name, ext, len(data))
		base = strings.TrimSuffix(base, ext)
	}

	data, err := ToUTF8(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	switch filepath.Ext(base) {
	case ".html", ".htm":
		return HTMLText(data)
	case ".md", ".markdown":
		return MarkdownText(data), nil
	}
	return data, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("decompressed size exceeds %d bytes", MaxSize)
	}
	return data, nil
}

// ToUTF8 returns data unchanged when it is already valid UTF-8. Otherwise the
// charset is detected and the text converted; undetectable input is returned
// as is so byte-level matching still works.
func ToUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}

	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil {
		logger.Logger.Printf("textsource: charset detection failed: %v, using raw bytes", err)
		return data, nil
	}

	dec := decoderFor(result.Charset)
	if dec == encoding.Nop {
		logger.DebugLogger.Printf("textsource: charset %s (confidence %d) left as is", result.Charset, result.Confidence)
		return data, nil
	}
	logger.DebugLogger.Printf("textsource: decoding %s (confidence %d)", result.Charset, result.Confidence)

	out, _, err := transform.Bytes(dec.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", result.Charset, err)
	}
	return out, nil
}

// decoderFor maps a chardet charset name to an x/text encoding.
func decoderFor(charset string) encoding.Encoding {
	switch strings.ToLower(charset) {
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case "iso-8859-1":
		return charmap.ISO8859_1
	case "windows-1252":
		return charmap.Windows1252
	case "iso-8859-2":
		return charmap.ISO8859_2
	case "windows-1251":
		return charmap.Windows1251
	case "koi8-r":
		return charmap.KOI8R
	case "gbk", "gb2312", "gb18030", "gb-18030":
		return simplifiedchinese.GB18030
	case "big5":
		return traditionalchinese.Big5
	case "shift_jis":
		return japanese.ShiftJIS
	case "euc-jp":
		return japanese.EUCJP
	case "euc-kr":
		return korean.EUCKR
	default:
		return encoding.Nop
	}
}
