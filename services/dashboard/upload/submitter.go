package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	formField       = "file"
	maxErrorPreview = 100
)

// ErrNoFile is returned before any network call when there is nothing to send.
var ErrNoFile = &Error{Message: "Please select a CSV file to upload"}

// File is a CSV file picked for upload.
type File struct {
	Name    string
	Content io.Reader
}

// Ack is the backend's answer to a successful upload. Parsed is false when the
// body was not JSON.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
	Parsed  bool   `json:"-"`
}

// Error is an upload failure with the text meant for the user.
// StatusCode is zero for local validation and transport failures.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }

// Validate checks that f can be sent.
func Validate(f *File) error {
	if f == nil || strings.TrimSpace(f.Name) == "" || f.Content == nil {
		return ErrNoFile
	}
	return nil
}

// Submitter posts CSV files to the ingestion endpoint.
type Submitter struct {
	endpoint string
	http     *http.Client
}

// New builds a Submitter posting to baseURL + /api/upload.
func New(baseURL string, timeout time.Duration) *Submitter {
	return &Submitter{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/upload",
		http:     &http.Client{Timeout: timeout},
	}
}

// Upload sends f as a multipart form. Failures are always *Error.
func (s *Submitter) Upload(ctx context.Context, f *File) (Ack, error) {
	if err := Validate(f); err != nil {
		return Ack{}, err
	}

	body, contentType, err := encode(f)
	if err != nil {
		return Ack{}, &Error{Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return Ack{}, &Error{Message: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.http.Do(req)
	if err != nil {
		log.Printf("upload: post %s: %v", f.Name, err)
		return Ack{}, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ack{}, &Error{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(text)
		if msg == "" {
			msg = resp.Status
		}
		log.Printf("upload: %s rejected with status %d: %s", f.Name, resp.StatusCode, msg)
		return Ack{}, &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	var ack Ack
	if err := json.Unmarshal(text, &ack); err != nil {
		log.Printf("upload: %s accepted with non-JSON body", f.Name)
		return Ack{Success: true}, nil
	}
	ack.Parsed = true
	return ack, nil
}

func encode(f *File) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, formField, quoteEscaper.Replace(f.Name)))
	header.Set("Content-Type", "text/csv")
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", f.Name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// errorMessage picks the user-facing text out of an error body.
func errorMessage(text []byte) string {
	var decoded any
	if err := json.Unmarshal(text, &decoded); err == nil && decoded != nil {
		if obj, ok := decoded.(map[string]any); ok {
			if msg, ok := obj["message"].(string); ok && msg != "" {
				return msg
			}
		}
		return "Unknown server error"
	}
	return truncate(string(text), maxErrorPreview)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
