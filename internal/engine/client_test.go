package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediaforge/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{BaseURL: server.URL, APIKey: "test"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func submitPayload() JobRequest {
	return BuildJobRequest(domain.CreativeSpec{Prompt: "p", Mode: "text-to-video"}, domain.EngineConfig{Provider: "veo", Model: "veo-3"}, "proj")
}

func TestSubmitAcceptsBooleanConvention(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/video-jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("authorization = %q", got)
		}
		w.Write([]byte(`{"success": true, "data": {"status": "pending", "jobId": "job-1"}}`))
	})

	jobID, err := client.Submit(context.Background(), submitPayload())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID != "job-1" {
		t.Fatalf("jobID = %q, want job-1", jobID)
	}
}

func TestSubmitAcceptsStatusStringConvention(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "SUCCESS", "data": {"status": "queued", "jobId": "job-2"}}`))
	})

	jobID, err := client.Submit(context.Background(), submitPayload())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID != "job-2" {
		t.Fatalf("jobID = %q, want job-2", jobID)
	}
}

func TestSubmitRejections(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{name: "explicit non-success", code: http.StatusOK, body: `{"success": false, "message": "quota exhausted"}`},
		{name: "missing job id", code: http.StatusOK, body: `{"success": true, "data": {"status": "pending", "jobId": ""}}`},
		{name: "http error status", code: http.StatusBadGateway, body: `{"success": true, "data": {"jobId": "job-3"}}`},
		{name: "no success signal at all", code: http.StatusOK, body: `{"data": {"jobId": "job-4"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			})
			if _, err := client.Submit(context.Background(), submitPayload()); err == nil {
				t.Fatalf("expected rejection")
			}
		})
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	if _, err := client.Submit(context.Background(), submitPayload()); err == nil {
		t.Fatalf("expected parse failure to reject")
	}
}

func TestStatusReportsCompletion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video-jobs/job-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"success": true, "data": {"status": "DONE", "jobId": "job-1", "result": {"videoUrl": "https://cdn.example.com/out.mp4", "thumbnailUrl": "https://cdn.example.com/out.jpg"}}}`))
	})

	report, err := client.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !report.Completed() {
		t.Fatalf("report not completed: %+v", report)
	}
	if report.ResultURL != "https://cdn.example.com/out.mp4" {
		t.Fatalf("result url = %q", report.ResultURL)
	}
}

func TestStatusAudioFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "data": {"status": "done", "jobId": "job-9", "result": {"audioUrl": "https://cdn.example.com/track.mp3"}}}`))
	})

	report, err := client.Status(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.ResultURL != "https://cdn.example.com/track.mp3" {
		t.Fatalf("result url = %q, want audio url", report.ResultURL)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantCompleted bool
		wantFailed    bool
	}{
		{
			name: "failed state",
			body: `{"success": true, "data": {"status": "failed", "jobId": "j"}}`,

			wantFailed: true,
		},
		{
			name:       "error state",
			body:       `{"success": true, "data": {"status": "error", "jobId": "j"}}`,
			wantFailed: true,
		},
		{
			name:       "non-success outside in-flight set",
			body:       `{"success": false, "data": {"status": "cancelled", "jobId": "j"}}`,
			wantFailed: true,
		},
		{
			name: "non-success while pending keeps polling",
			body: `{"success": false, "data": {"status": "pending", "jobId": "j"}}`,
		},
		{
			name: "processing keeps polling",
			body: `{"success": true, "data": {"status": "processing", "jobId": "j"}}`,
		},
		{
			name: "done without url keeps polling",
			body: `{"success": true, "data": {"status": "done", "jobId": "j"}}`,
		},
		{
			name:          "done with url completes",
			body:          `{"success": true, "data": {"status": "done", "jobId": "j", "result": {"videoUrl": "https://x/v.mp4"}}}`,
			wantCompleted: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			report, err := client.Status(context.Background(), "j")
			if err != nil {
				t.Fatalf("Status: %v", err)
			}
			if got := report.Completed(); got != tt.wantCompleted {
				t.Fatalf("Completed() = %v, want %v (%+v)", got, tt.wantCompleted, report)
			}
			if got := report.Failed(); got != tt.wantFailed {
				t.Fatalf("Failed() = %v, want %v (%+v)", got, tt.wantFailed, report)
			}
		})
	}
}

func TestStatusTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := NewClient(Options{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	server.Close()

	if _, err := client.Status(context.Background(), "job-1"); err == nil {
		t.Fatalf("expected transport error")
	}
}
