package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"

	"critiqal/internal/logging"

	"github.com/google/uuid"
)

// ProgressFunc receives upload progress as a percentage in [0, 100].
type ProgressFunc func(percent float64)

// FormFile is one file part of a multipart form.
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Form is a multipart form: plain fields plus files.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// encode renders the form once. Files are consumed.
func (f Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range f.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	for _, file := range f.Files {
		part, err := w.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part %s: %w", file.Field, err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", file.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// progressReader reports how much of the body the HTTP client has consumed.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	onProgress ProgressFunc
	mu         sync.Mutex
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		pct := float64(p.read) / float64(p.total) * 100
		p.mu.Unlock()
		if pct > 100 {
			pct = 100
		}
		p.onProgress(pct)
	}
	return n, err
}

// Upload POSTs a multipart form to path, reporting progress through
// onProgress when it is non-nil. Credential attachment, error classification
// and the 401 refresh-and-retry-once flow match Do; a retried upload
// restarts progress at 0.
func (c *Client) Upload(ctx context.Context, path string, form Form, onProgress ProgressFunc) (json.RawMessage, error) {
	payload, contentType, err := form.encode()
	if err != nil {
		return nil, err
	}
	total := int64(len(payload))
	logging.UploadDebug("Uploading %d bytes to %s", total, path)

	req := request{
		method: http.MethodPost,
		path:   path,
		id:     uuid.NewString(),
		body: func() (io.Reader, int64, string) {
			var r io.Reader = bytes.NewReader(payload)
			if onProgress != nil {
				onProgress(0)
				if total > 0 {
					r = &progressReader{r: r, total: total, onProgress: onProgress}
				}
			}
			return r, total, contentType
		},
	}

	raw, err := c.execute(ctx, req)
	if err != nil {
		logging.Get(logging.CategoryUpload).Warn("Upload to %s failed: %v", path, err)
		return nil, err
	}
	if onProgress != nil && total == 0 {
		onProgress(100)
	}
	return raw, nil
}
