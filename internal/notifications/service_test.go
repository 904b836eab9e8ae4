package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mediavault/internal/config"
	"mediavault/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventDownloadCompleted, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "download completed",
			event: notifications.EventDownloadCompleted,
			payload: notifications.Payload{
				"title": "Big Buck Bunny",
				"kind":  "video",
				"size":  "151 MiB",
			},
			expectTitle:   "MediaVault - Download Complete",
			expectMessage: "✅ Downloaded: Big Buck Bunny (video)\nSize: 151 MiB",
			expectTags:    "mediavault,download,completed",
		},
		{
			name:  "download failed",
			event: notifications.EventDownloadFailed,
			payload: notifications.Payload{
				"title": "Sintel",
				"error": errors.New("Download File Fail ! server error: 404, Not Found"),
			},
			expectTitle:    "MediaVault - Download Failed",
			expectMessage:  "❌ Download failed: Sintel\nDownload File Fail ! server error: 404, Not Found",
			expectTags:     "mediavault,download,failed",
			expectPriority: "high",
		},
		{
			name:  "batch completed",
			event: notifications.EventBatchCompleted,
			payload: notifications.Payload{
				"succeeded": 4,
				"failed":    0,
				"duration":  90 * time.Second,
			},
			expectTitle:   "MediaVault - Batch Complete",
			expectMessage: "Batch download complete: 4 items in 1m30s",
			expectTags:    "mediavault,batch,completed",
		},
		{
			name:  "batch with failures",
			event: notifications.EventBatchCompleted,
			payload: notifications.Payload{
				"succeeded": 3,
				"failed":    1,
			},
			expectTitle:   "MediaVault - Batch Complete (with errors)",
			expectMessage: "Batch download complete: 3 succeeded, 1 failed in 0s",
			expectTags:    "mediavault,batch,completed",
		},
		{
			name:          "import completed",
			event:         notifications.EventImportCompleted,
			payload:       notifications.Payload{"title": "42.pdf"},
			expectTitle:   "MediaVault - Imported",
			expectMessage: "📥 Imported: 42.pdf",
			expectTags:    "mediavault,import,completed",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "catalog sync",
				"error":   "Your token is expired",
			},
			expectTitle:    "MediaVault - Error",
			expectMessage:  "❌ Error with catalog sync: Your token is expired",
			expectTags:     "mediavault,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "MediaVault - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "mediavault,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				body, _ := io.ReadAll(r.Body)
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventSwitches(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Download = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventDownloadCompleted,
		notifications.EventBatchCompleted,
		notifications.EventImportCompleted,
		notifications.EventDownloadFailed,
		notifications.EventError,
		notifications.Event("unknown"),
	}
	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"title": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
	if calls != 0 {
		t.Fatalf("expected suppressed events to skip ntfy, got %d calls", calls)
	}

	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("test event: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected test event to be delivered, got %d calls", calls)
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not allowed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if got := err.Error(); got != "ntfy returned 403: topic not allowed" {
		t.Fatalf("unexpected error %q", got)
	}
}
