package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateRunes(t *testing.T) {
	tp := NewTextProcessor(nil)

	assert.Equal(t, "héllo", tp.TruncateRunes("héllo", 10))
	assert.Equal(t, "hé", tp.TruncateRunes("héllo", 2))
	assert.Equal(t, "", tp.TruncateRunes("", 3))

	long := strings.Repeat("ü", 1500)
	out := tp.TruncateRunes(long, 1000)
	assert.Equal(t, 1000, len([]rune(out)))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
	assert.Equal(t, "ok", tp.SanitizeUTF8("ok"))
}

func TestDecodeCharset(t *testing.T) {
	tp := NewTextProcessor(nil)

	// "café" in ISO-8859-1
	latin1 := []byte{'c', 'a', 'f', 0xe9}
	assert.Equal(t, "café", tp.DecodeCharset(latin1, "ISO-8859-1"))
	assert.Equal(t, "plain", tp.DecodeCharset([]byte("plain"), "utf-8"))
	assert.Equal(t, "raw", tp.DecodeCharset([]byte("raw"), "x-unknown-charset"))
}

func TestHTMLToText(t *testing.T) {
	tp := NewTextProcessor(nil)
	html := `<html><head><title>t</title><style>p{}</style></head>
<body><p>Hello   <b>there</b></p><script>var x;</script><div>bye</div></body></html>`
	assert.Equal(t, "Hello there bye", tp.HTMLToText(html))
}
