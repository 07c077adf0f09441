package core

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/mikey/inbox-sweeper/internal/utils"
)

const (
	// MaxExcerptRunes bounds the body excerpt handed to classifiers
	MaxExcerptRunes = 1000
	// DefaultSubject is used when a message carries no Subject header
	DefaultSubject = "No Subject"
)

// ExtractSummary turns a fetched message into a MessageSummary.
// Any malformed input yields ErrExtractionFailed.
func ExtractSummary(msg *RawMessage, tp *utils.TextProcessor) (summary *MessageSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			summary = nil
			err = fmt.Errorf("%w: %v", ErrExtractionFailed, r)
		}
	}()

	if msg == nil || msg.Payload == nil {
		return nil, fmt.Errorf("%w: message has no payload", ErrExtractionFailed)
	}

	sender := firstHeader(msg.Payload.Headers, "From")
	subject := firstHeader(msg.Payload.Headers, "Subject")
	if subject == "" {
		subject = DefaultSubject
	}

	// The first plain-text part wins; HTML is only read when there is none.
	body, err := findPart(msg.Payload, "text/plain", tp)
	if err != nil {
		return nil, err
	}
	if body == "" {
		html, err := findPart(msg.Payload, "text/html", tp)
		if err != nil {
			return nil, err
		}
		if html != "" {
			body = tp.HTMLToText(html)
		}
	}

	return &MessageSummary{
		ID:          msg.ID,
		Sender:      sender,
		CleanSender: CleanSender(sender),
		Subject:     subject,
		BodyExcerpt: tp.Excerpt(body, MaxExcerptRunes),
		Labels:      append([]string(nil), msg.LabelIDs...),
	}, nil
}

// MessageBodies returns the first text/plain and text/html bodies of msg,
// decoded to UTF-8. The plain-text scan stops at the first match. An
// undecodable HTML part is dropped when plain text was found.
func MessageBodies(msg *RawMessage, tp *utils.TextProcessor) (plain, html string, err error) {
	if msg == nil || msg.Payload == nil {
		return "", "", fmt.Errorf("%w: message has no payload", ErrExtractionFailed)
	}
	plain, err = findPart(msg.Payload, "text/plain", tp)
	if err != nil {
		return "", "", err
	}
	html, err = findPart(msg.Payload, "text/html", tp)
	if err != nil {
		if plain != "" {
			return plain, "", nil
		}
		return "", "", err
	}
	return plain, html, nil
}

// HeaderValue returns the first header named name, compared case-insensitively
func HeaderValue(msg *RawMessage, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// CleanSender returns the address inside angle brackets, or the raw value
func CleanSender(sender string) string {
	sender = strings.TrimSpace(sender)
	start := strings.LastIndex(sender, "<")
	if start >= 0 {
		if end := strings.Index(sender[start:], ">"); end > 1 {
			return strings.TrimSpace(sender[start+1 : start+end])
		}
	}
	return sender
}

// firstHeader matches header names exactly
func firstHeader(headers []Header, name string) string {
	for _, h := range headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// findPart walks the MIME tree depth-first and returns the first body of mimeType
func findPart(part *MessagePart, mimeType string, tp *utils.TextProcessor) (string, error) {
	if part == nil {
		return "", nil
	}
	if strings.EqualFold(part.MimeType, mimeType) && part.Data != "" {
		raw, err := decodeBase64URL(part.Data)
		if err != nil {
			return "", fmt.Errorf("%w: %s part: %v", ErrExtractionFailed, mimeType, err)
		}
		return tp.DecodeCharset(raw, partCharset(part)), nil
	}
	for _, sub := range part.Parts {
		body, err := findPart(sub, mimeType, tp)
		if err != nil {
			return "", err
		}
		if body != "" {
			return body, nil
		}
	}
	return "", nil
}

func partCharset(part *MessagePart) string {
	for _, h := range part.Headers {
		if !strings.EqualFold(h.Name, "Content-Type") {
			continue
		}
		_, params, err := mime.ParseMediaType(h.Value)
		if err != nil {
			return ""
		}
		return params["charset"]
	}
	return ""
}

// decodeBase64URL accepts padded and unpadded base64url
func decodeBase64URL(data string) ([]byte, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}
