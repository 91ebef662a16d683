// Package charset resolves the character encoding of a fetched page and
// decodes its bytes into UTF-8 text.
package charset

import (
	"bytes"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	htmlcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Default is used when neither headers nor markup declare an encoding.
const Default = "utf-8"

// sniffLen is how much of the body is searched for <meta> declarations.
const sniffLen = 4096

var (
	headerCharset = regexp.MustCompile(`(?i)charset=["']?([A-Za-z0-9_\-:.]+)`)
	metaCharset   = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([A-Za-z0-9_\-]+)["']?`)
	metaHTTPEquiv = regexp.MustCompile(`(?i)<meta[^>]+http-equiv=["']?content-type["']?[^>]*content=["'][^>]*charset=([A-Za-z0-9_\-]+)["']`)
)

// Resolve returns the encoding name declared for body: the Content-Type
// header first, then a <meta> declaration near the top of the document, then
// Default.
func Resolve(header http.Header, body []byte) string {
	if ct := header.Get("Content-Type"); ct != "" {
		if _, params, err := mime.ParseMediaType(ct); err == nil && params["charset"] != "" {
			return strings.TrimSpace(params["charset"])
		}
		if m := headerCharset.FindStringSubmatch(ct); m != nil {
			return m[1]
		}
	}
	head := body
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	// latin-1 view: every byte maps to one rune, so offsets stay meaningful
	text := latin1(head)
	if m := metaCharset.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := metaHTTPEquiv.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return Default
}

// Decode converts body from the named encoding to UTF-8. Unknown names are
// treated as UTF-8; invalid sequences become U+FFFD.
func Decode(body []byte, name string) string {
	enc := lookup(name)
	if enc == nil {
		return toValidUTF8(body)
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return toValidUTF8(body)
	}
	return string(out)
}

// DecodeResponse resolves and decodes in one step and returns the encoding
// name that was used.
func DecodeResponse(header http.Header, body []byte) (string, string) {
	name := Resolve(header, body)
	return Decode(body, name), name
}

func lookup(name string) encoding.Encoding {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return nil
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc
	}
	if enc, _ := htmlcharset.Lookup(name); enc != nil {
		return enc
	}
	return nil
}

func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return string(bytes.ToValidUTF8(b, []byte("\uFFFD")))
}

func latin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
