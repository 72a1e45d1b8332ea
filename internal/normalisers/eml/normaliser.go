// Package eml extracts contracts sent by email.
// An attached document the registry can read wins over the message body.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/dpa-check/internal/core/domain"
	"github.com/custodia-labs/dpa-check/internal/core/ports/driven"
	"github.com/custodia-labs/dpa-check/internal/logger"
	"github.com/custodia-labs/dpa-check/internal/normalisers/html"
)

// Ensure Normaliser implements the interface.
var _ driven.TextExtractor = (*Normaliser)(nil)

// maxDepth bounds nested multipart recursion.
const maxDepth = 8

// AttachmentExtractor reads an attached document.
// driven.ExtractorRegistry satisfies it.
type AttachmentExtractor interface {
	Extract(ctx context.Context, content []byte, mimeHint, name string) (*domain.Document, error)
}

// Normaliser handles EML (email) documents.
type Normaliser struct {
	attachments AttachmentExtractor
	html        *html.Normaliser
}

// New creates a new EML normaliser. attachments may be nil, in which case
// only the message body is read.
func New(attachments AttachmentExtractor) *Normaliser {
	return &Normaliser{attachments: attachments, html: html.New()}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

type attachment struct {
	name     string
	mimeType string
	data     []byte
}

// parts collects the readable pieces of a message.
type parts struct {
	text        []string
	html        []string
	attachments []attachment
}

// Extract reads the first attachment with usable text, or else the message body.
func (n *Normaliser) Extract(ctx context.Context, content []byte) (*domain.Document, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse email: %w", domain.ErrExtractionFailed, err)
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	date := msg.Header.Get("Date")

	var p parts
	if err := collect(&p, msg.Header, msg.Body, 0); err != nil {
		return nil, fmt.Errorf("%w: read email: %w", domain.ErrExtractionFailed, err)
	}

	if doc := n.fromAttachments(ctx, p.attachments); doc != nil {
		if doc.Title == "" {
			doc.Title = subject
		}
		addMessageMetadata(doc, subject, from, date)
		return doc, nil
	}

	body, err := n.body(ctx, p)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: email has no text body or readable attachment", domain.ErrExtractionFailed)
	}

	doc := &domain.Document{
		Title:    subject,
		Content:  strings.TrimSpace(body),
		Metadata: map[string]any{"format": "eml"},
	}
	addMessageMetadata(doc, subject, from, date)
	return doc, nil
}

func (n *Normaliser) fromAttachments(ctx context.Context, attachments []attachment) *domain.Document {
	if n.attachments == nil {
		return nil
	}
	for _, a := range attachments {
		doc, err := n.attachments.Extract(ctx, a.data, a.mimeType, a.name)
		if err != nil {
			logger.Debug("Skipping attachment %q: %v", a.name, err)
			continue
		}
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any)
		}
		doc.Metadata["format"] = "eml"
		doc.Metadata["attachment"] = a.name
		doc.Metadata["attachment_mime_type"] = doc.MIMEType
		return doc
	}
	return nil
}

// body prefers plain text parts over HTML ones.
func (n *Normaliser) body(ctx context.Context, p parts) (string, error) {
	if len(p.text) > 0 {
		return strings.Join(p.text, "\n\n"), nil
	}
	var out []string
	for _, h := range p.html {
		doc, err := n.html.Extract(ctx, []byte(h))
		if err != nil {
			return "", err
		}
		out = append(out, doc.Content)
	}
	return strings.Join(out, "\n\n"), nil
}

func addMessageMetadata(doc *domain.Document, subject, from, date string) {
	if subject != "" {
		doc.Metadata["subject"] = subject
	}
	if from != "" {
		doc.Metadata["from"] = from
	}
	if date != "" {
		doc.Metadata["date"] = date
	}
}

// header is the subset of MIME headers collect needs.
type header interface {
	Get(key string) string
}

// collect walks a MIME entity and sorts its leaves into p.
func collect(p *parts, h header, body io.Reader, depth int) error {
	if depth > maxDepth {
		return nil
	}

	contentType := h.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if params["boundary"] == "" {
			return nil
		}
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := collect(p, part.Header, part, depth+1); err != nil {
				return err
			}
		}
	}

	data, err := io.ReadAll(decodeTransfer(h.Get("Content-Transfer-Encoding"), body))
	if err != nil {
		return err
	}

	disposition, dparams, _ := mime.ParseMediaType(h.Get("Content-Disposition"))
	name := decodeHeader(dparams["filename"])
	if name == "" {
		name = decodeHeader(params["name"])
	}

	switch {
	case disposition == "attachment" || (name != "" && !strings.HasPrefix(mediaType, "text/")):
		p.attachments = append(p.attachments, attachment{name: name, mimeType: mediaType, data: data})
	case mediaType == "text/plain":
		p.text = append(p.text, string(data))
	case mediaType == "text/html":
		p.html = append(p.html, string(data))
	}
	return nil
}

// decodeTransfer undoes base64 and quoted-printable encodings.
// multipart.Reader already decodes quoted-printable parts and drops the header.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, &newlineStripper{r: r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// newlineStripper drops CR and LF so wrapped base64 decodes cleanly.
type newlineStripper struct {
	r io.Reader
}

func (s *newlineStripper) Read(p []byte) (int, error) {
	for {
		n, err := s.r.Read(p)
		j := 0
		for _, b := range p[:n] {
			if b != '\r' && b != '\n' {
				p[j] = b
				j++
			}
		}
		if j > 0 || err != nil {
			return j, err
		}
	}
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
