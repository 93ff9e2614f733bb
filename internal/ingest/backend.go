// Package ingest holds the per-camera streaming pipeline (C8) and the
// external system contracts it and the dispatch worker pool consume:
// the inference engine binding, the face-recognition backend client,
// and the camera registry client (spec.md §4.7, §6.1-6.3).
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"time"
)

// descRegex extracts the human-readable portion of a backend error body
// (spec.md §4.8 step 7, §6.2): "desc: <text>, param: <field>".
var descRegex = regexp.MustCompile(`desc:\s*(.+?)(?:,\s*param:|\n|$)`)

// BackendSubmitError wraps a failed add_face_event call with the
// extracted desc text when available (spec.md §7 BackendSubmitError).
type BackendSubmitError struct {
	StatusCode int
	Desc       string
	Raw        error
}

func (e *BackendSubmitError) Error() string {
	if e.Desc != "" {
		return fmt.Sprintf("backend submit failed (status %d): %s", e.StatusCode, e.Desc)
	}
	if e.Raw != nil {
		return fmt.Sprintf("backend submit failed: %v", e.Raw)
	}
	return fmt.Sprintf("backend submit failed (status %d)", e.StatusCode)
}

func (e *BackendSubmitError) Unwrap() error { return e.Raw }

// ROI is the bounding region submitted to the backend: integer pixels,
// allowed to fall outside the image bounds on the right/bottom
// (spec.md §6.2), so it is sent as-is without reclamping.
type ROI struct {
	X1, Y1, X2, Y2 int
}

// BackendClient is the face-recognition backend contract (spec.md
// §6.2), grounded on internal/discovery/onvif_client.go's
// http.Client-plus-NewRequestWithContext shape.
type BackendClient struct {
	baseURL string
	http    *http.Client
}

// NewBackendClient constructs a BackendClient against baseURL.
func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BackendClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// AddFaceEvent submits one best event to the backend synchronously
// (spec.md §4.8 step 6, §6.2).
func (c *BackendClient) AddFaceEvent(ctx context.Context, token string, jpeg []byte, cameraID int64, roi ROI, timestampISO string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	_ = w.WriteField("mf_selector", "all")
	_ = w.WriteField("camera_id", fmt.Sprintf("%d", cameraID))
	_ = w.WriteField("roi", fmt.Sprintf("%d,%d,%d,%d", roi.X1, roi.Y1, roi.X2, roi.Y2))
	_ = w.WriteField("timestamp_iso", timestampISO)

	part, err := w.CreateFormFile("fullframe", "frame.jpg")
	if err != nil {
		return &BackendSubmitError{Raw: err}
	}
	if _, err := part.Write(jpeg); err != nil {
		return &BackendSubmitError{Raw: err}
	}
	if err := w.Close(); err != nil {
		return &BackendSubmitError{Raw: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/add_face_event", &body)
	if err != nil {
		return &BackendSubmitError{Raw: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &BackendSubmitError{Raw: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errBody, _ := io.ReadAll(resp.Body)
	return &BackendSubmitError{
		StatusCode: resp.StatusCode,
		Desc:       extractDesc(string(errBody)),
	}
}

// extractDesc pulls the human-readable desc out of a backend error
// body, falling back to the raw body when the pattern doesn't match
// (spec.md §4.8 step 7).
func extractDesc(body string) string {
	m := descRegex.FindStringSubmatch(body)
	if len(m) == 2 {
		return m[1]
	}
	return body
}
