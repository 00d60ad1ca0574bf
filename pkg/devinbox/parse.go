package devinbox

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

type parsedMessage struct {
	subject string
	html    string
	text    string
}

var headerDecoder = new(mime.WordDecoder)

func parseMessage(r io.Reader) (parsedMessage, error) {
	m, err := mail.ReadMessage(r)
	if err != nil {
		return parsedMessage{}, fmt.Errorf("failed to read message: %w", err)
	}

	var out parsedMessage
	out.subject = m.Header.Get("Subject")
	if decoded, err := headerDecoder.DecodeHeader(out.subject); err == nil {
		out.subject = decoded
	}

	if err := collectParts(&out, m.Header.Get("Content-Type"), m.Header.Get("Content-Transfer-Encoding"), m.Body); err != nil {
		return parsedMessage{}, err
	}
	return out, nil
}

func collectParts(out *parsedMessage, contentType, encoding string, body io.Reader) error {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("invalid content type %q: %w", contentType, err)
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read part: %w", err)
			}
			// NextPart strips quoted-printable transfer encoding itself
			err = collectParts(out, part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			part.Close()
			if err != nil {
				return err
			}
		}
	}

	content, err := io.ReadAll(decodeTransfer(encoding, body))
	if err != nil {
		return fmt.Errorf("failed to decode %s body: %w", mediaType, err)
	}

	switch mediaType {
	case "text/html":
		if out.html == "" {
			out.html = string(content)
		}
	case "text/plain":
		if out.text == "" {
			out.text = string(content)
		}
	}
	return nil
}

func decodeTransfer(encoding string, body io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		return quotedprintable.NewReader(body)
	default:
		return body
	}
}
