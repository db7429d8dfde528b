package mail

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is an outbound email. At least one of HTML or Text should be set; with both,
// the message is sent as multipart/alternative.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// render produces the RFC 5322 payload handed to the DATA command.
func (m Message) render(from string, to []string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = strings.TrimSuffix(from[at+1:], ">")
	}

	header := []string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + mime.QEncoding.Encode("utf-8", singleLine(m.Subject)),
		"Date: " + now.Format(time.RFC1123Z),
		fmt.Sprintf("Message-ID: <%s@%s>", uuid.NewString(), domain),
		"MIME-Version: 1.0",
	}
	for _, line := range header {
		buf.WriteString(line + "\r\n")
	}

	switch {
	case m.HTML != "" && m.Text != "":
		mw := multipart.NewWriter(&buf)
		fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
		for _, part := range []struct{ mediaType, body string }{
			{"text/plain", m.Text},
			{"text/html", m.HTML},
		} {
			w, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":              {part.mediaType + "; charset=UTF-8"},
				"Content-Transfer-Encoding": {"quoted-printable"},
			})
			if err != nil {
				return nil, err
			}
			if err := writeQuoted(w, part.body); err != nil {
				return nil, err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
	case m.HTML != "":
		if err := writeSinglePart(&buf, "text/html", m.HTML); err != nil {
			return nil, err
		}
	default:
		if err := writeSinglePart(&buf, "text/plain", m.Text); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func writeSinglePart(buf *bytes.Buffer, mediaType, body string) error {
	buf.WriteString("Content-Type: " + mediaType + "; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	return writeQuoted(buf, body)
}

func writeQuoted(w io.Writer, body string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(body)); err != nil {
		return err
	}
	return qp.Close()
}

// singleLine strips CR and LF so a subject can never inject extra headers.
func singleLine(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

// uniqueAddresses trims, drops blanks and de-duplicates case-insensitively, keeping first-seen order.
func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, addr)
	}
	return result
}
