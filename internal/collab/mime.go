package collab

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
)

const base64LineLength = 76

// BuildMessage renders e as a multipart/mixed RFC 822 message with an HTML
// body. Attachment paths that no longer exist are skipped and returned. An
// empty boundary lets the writer pick a random one.
func BuildMessage(e Email, boundary string) (raw []byte, skipped []string, err error) {
	if len(e.Recipients) == 0 {
		return nil, nil, errors.New("at least one recipient is required")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if boundary != "" {
		if err := w.SetBoundary(boundary); err != nil {
			return nil, nil, fmt.Errorf("invalid boundary: %w", err)
		}
	}

	htmlPart, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=\"utf-8\""},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, nil, err
	}
	if err := writeBase64(htmlPart, []byte(e.HTMLBody)); err != nil {
		return nil, nil, err
	}

	for _, path := range e.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				skipped = append(skipped, path)
				continue
			}
			return nil, nil, fmt.Errorf("failed to read attachment %s: %w", path, err)
		}

		name := filepath.Base(path)
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {attachmentType(name)},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": name})},
		})
		if err != nil {
			return nil, nil, err
		}
		if err := writeBase64(part, data); err != nil {
			return nil, nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(e.Recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", w.Boundary())
	msg.Write(body.Bytes())

	return msg.Bytes(), skipped, nil
}

func attachmentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > base64LineLength {
		if _, err := io.WriteString(w, enc[:base64LineLength]+"\r\n"); err != nil {
			return err
		}
		enc = enc[base64LineLength:]
	}
	_, err := io.WriteString(w, enc+"\r\n")
	return err
}
