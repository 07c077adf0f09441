package eml

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/mikey/inbox-sweeper/internal/core"
)

// maxPartBytes bounds a single decoded body part
const maxPartBytes = 10 << 20

// ReadFile parses an RFC 5322 file into the payload tree the Gmail adapter produces
func ReadFile(path string) (*core.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// Read parses one message. fallbackID is used when the message has no Message-Id.
// Charsets are left undecoded; the extractor converts them from the part headers.
func Read(r io.Reader, fallbackID string) (*core.RawMessage, error) {
	entity, err := message.Read(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	payload, err := toPart(entity)
	if err != nil {
		return nil, err
	}

	h := mail.Header{Header: entity.Header}
	id, err := h.MessageID()
	if err != nil || id == "" {
		id = fallbackID
	}
	subject, _ := h.Subject()

	return &core.RawMessage{
		ID:       id,
		LabelIDs: gmailLabels(h.Get("X-Gmail-Labels")),
		Snippet:  subject,
		Payload:  payload,
	}, nil
}

func toPart(e *message.Entity) (*core.MessagePart, error) {
	mediaType, _, err := e.Header.ContentType()
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}
	part := &core.MessagePart{MimeType: mediaType}

	fields := e.Header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		part.Headers = append(part.Headers, core.Header{
			Name:  textproto.CanonicalMIMEHeaderKey(fields.Key()),
			Value: value,
		})
	}

	if mr := e.MultipartReader(); mr != nil {
		for {
			child, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil && !message.IsUnknownCharset(err) {
				return nil, fmt.Errorf("failed to read %s part: %w", mediaType, err)
			}
			sub, err := toPart(child)
			if err != nil {
				return nil, err
			}
			part.Parts = append(part.Parts, sub)
		}
		return part, nil
	}

	body, err := io.ReadAll(io.LimitReader(e.Body, maxPartBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s body: %w", mediaType, err)
	}
	if len(body) > 0 {
		part.Data = base64.URLEncoding.EncodeToString(body)
	}
	return part, nil
}

// gmailLabels maps a Takeout X-Gmail-Labels value onto Gmail label ids
func gmailLabels(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	var labels []string
	for _, name := range strings.Split(header, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		labels = append(labels, strings.ToUpper(strings.ReplaceAll(name, " ", "_")))
	}
	return labels
}
