package ingest_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/technosupport/trackerd/internal/ingest"
)

func TestBackendClient_AddFaceEvent_Success(t *testing.T) {
	var gotToken, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		assert.Equal(t, "/add_face_event", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := ingest.NewBackendClient(srv.URL, time.Second)
	err := c.AddFaceEvent(context.Background(), "tok123", []byte{0xFF, 0xD8}, 7, ingest.ROI{X1: 1, Y1: 2, X2: 3, Y2: 4}, "2026-07-31T00:00:00+00:00")

	assert.NoError(t, err)
	assert.Equal(t, "Token tok123", gotToken)
	assert.Contains(t, gotContentType, "multipart/form-data")
}

func TestBackendClient_AddFaceEvent_ExtractsDescOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "desc: camera is offline, param: camera_id")
	}))
	defer srv.Close()

	c := ingest.NewBackendClient(srv.URL, time.Second)
	err := c.AddFaceEvent(context.Background(), "tok", nil, 1, ingest.ROI{}, "2026-07-31T00:00:00+00:00")

	assert.Error(t, err)
	var submitErr *ingest.BackendSubmitError
	assert.ErrorAs(t, err, &submitErr)
	assert.Equal(t, http.StatusBadRequest, submitErr.StatusCode)
	assert.Equal(t, "camera is offline", submitErr.Desc)
}

func TestBackendClient_AddFaceEvent_FallsBackToRawBodyWhenNoDescPattern(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "internal server error")
	}))
	defer srv.Close()

	c := ingest.NewBackendClient(srv.URL, time.Second)
	err := c.AddFaceEvent(context.Background(), "tok", nil, 1, ingest.ROI{}, "2026-07-31T00:00:00+00:00")

	assert.Error(t, err)
	var submitErr *ingest.BackendSubmitError
	assert.ErrorAs(t, err, &submitErr)
	assert.Equal(t, "internal server error", submitErr.Desc)
}
