package reportclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dailyreport/pkg/domain"
)

func TestReportCRUD(t *testing.T) {
	var created domain.Report
	var deleted string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/reports":
			_ = json.NewEncoder(w).Encode([]domain.Report{{ID: "r-1", UserID: "u-1", Content: "<p>x</p>", Tags: []domain.Tag{{Name: "dev"}}}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/reports/tags":
			_ = json.NewEncoder(w).Encode([]string{"dev", "ops"})
		case r.Method == http.MethodPost && r.URL.Path == "/api/reports":
			_ = json.NewDecoder(r.Body).Decode(&created)
			_, _ = io.WriteString(w, "Report saved")
		case r.Method == http.MethodPut && r.URL.Path == "/api/reports/r-1":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, "Not your report")
		case r.Method == http.MethodDelete:
			deleted = strings.TrimPrefix(r.URL.Path, "/api/reports/")
		default:
			http.NotFound(w, r)
		}
	}))
	defer backend.Close()
	client := NewClient(backend.URL, nil, time.Second)
	ctx := context.Background()

	reports, err := client.List(ctx)
	if err != nil || len(reports) != 1 || reports[0].Tags[0].Name != "dev" {
		t.Fatalf("unexpected list: %+v %v", reports, err)
	}
	tags, err := client.Tags(ctx)
	if err != nil || len(tags) != 2 {
		t.Fatalf("unexpected tags: %v %v", tags, err)
	}
	msg, err := client.Create(ctx, domain.Report{ID: "c-1", Content: "<p>Implemented API yesterday.</p>", Tags: []domain.Tag{{Name: "dev"}}})
	if err != nil || msg != "Report saved" {
		t.Fatalf("unexpected create: %q %v", msg, err)
	}
	if created.Content != "<p>Implemented API yesterday.</p>" || created.Tags[0].Name != "dev" {
		t.Fatalf("unexpected created body: %+v", created)
	}
	err = client.Update(ctx, domain.Report{ID: "r-1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden || apiErr.Message != "Not your report" {
		t.Fatalf("expected verbatim update error, got %v", err)
	}
	if err := client.Delete(ctx, "r-1"); err != nil || deleted != "r-1" {
		t.Fatalf("unexpected delete: %q %v", deleted, err)
	}
}

func TestUploadSendsMultipartFile(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload" {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "file is required"})
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "png-bytes" {
			t.Errorf("unexpected file content: %q", data)
		}
		_ = json.NewEncoder(w).Encode(domain.UploadResult{URL: "/uploads/" + header.Filename, Filename: header.Filename})
	}))
	defer backend.Close()
	client := NewClient(backend.URL, nil, time.Second)

	res, err := client.Upload(context.Background(), "a.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.URL != "/uploads/a.png" || res.Filename != "a.png" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUploadErrorsCarryJSONMessage(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "File too large"})
	}))
	defer backend.Close()

	_, err := NewClient(backend.URL, nil, time.Second).Upload(context.Background(), "a.png", strings.NewReader("x"))
	if err == nil || err.Error() != "File too large" {
		t.Fatalf("expected JSON message, got %v", err)
	}
}

func TestUploadWithoutURLIsUnexpected(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"filename":"a.png"}`)
	}))
	defer backend.Close()

	_, err := NewClient(backend.URL, nil, time.Second).Upload(context.Background(), "a.png", strings.NewReader("x"))
	if !errors.Is(err, ErrUnexpectedResponse) {
		t.Fatalf("expected ErrUnexpectedResponse, got %v", err)
	}
}
