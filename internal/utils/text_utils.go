package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateRunes keeps at most maxRunes characters, without a marker
func (tp *TextProcessor) TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	n := 0
	for i := range text {
		if n == maxRunes {
			return text[:i]
		}
		n++
	}
	return text
}

// SanitizeUTF8 drops invalid UTF-8 sequences
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		b.WriteRune(r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", b.Len()))

	return b.String()
}

// Excerpt sanitizes text and keeps the first maxRunes characters
func (tp *TextProcessor) Excerpt(text string, maxRunes int) string {
	return tp.TruncateRunes(tp.SanitizeUTF8(text), maxRunes)
}

// DecodeCharset converts body bytes in the named charset to UTF-8.
// Unknown or UTF-8 charsets are returned unchanged.
func (tp *TextProcessor) DecodeCharset(body []byte, charset string) string {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "utf8" || charset == "us-ascii" {
		return string(body)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		tp.logger.Debug("Unknown charset, keeping raw bytes", zap.String("charset", charset))
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		tp.logger.Debug("Failed to decode charset", zap.String("charset", charset), zap.Error(err))
		return string(body)
	}
	return string(decoded)
}

// HTMLToText returns the visible text of an HTML document with whitespace collapsed
func (tp *TextProcessor) HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		tp.logger.Debug("Failed to parse HTML body", zap.Error(err))
		return html
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br, p, div, li, tr, td, h1, h2, h3, h4, h5, h6").AppendHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}
