package integration

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/runtime"
)

// TestHarnessSkipsWhenDisabled verifies that the harness skips tests
// when FORAGE_INTEGRATION_TESTS is not set.
func TestHarnessSkipsWhenDisabled(t *testing.T) {
	if os.Getenv("FORAGE_INTEGRATION_TESTS") != "" {
		// If we're in integration test mode, verify the harness works
		h := NewHarness(t)
		if h == nil {
			t.Error("NewHarness returned nil")
		}
	}
	// If env var is not set, this test just passes (can't test skip from within)
}

func TestDefaultTemplate(t *testing.T) {
	files := DefaultTemplate()

	for _, name := range []string{"package.json", "server.js", "public/index.html"} {
		if _, ok := files[name]; !ok {
			t.Errorf("template should contain %s", name)
		}
	}
	if !strings.Contains(files["package.json"], `"start": "node server.js"`) {
		t.Error("package.json should start server.js")
	}
	if !strings.Contains(files["server.js"], "http://localhost:") {
		t.Error("server.js should print a URL the ready detector recognizes")
	}
}

func TestLocalSandbox_ServesAndSyncsEdits(t *testing.T) {
	h := NewHarness(t) // Skips if integration tests disabled

	session := h.OpenSession("integration")
	ctrl := h.Boot(session)
	st := h.WaitReady(ctrl, 2*time.Minute)

	body := get(t, st.ServerURL)
	if !strings.Contains(body, "<h1>integration</h1>") {
		t.Fatalf("GET %s = %q", st.ServerURL, body)
	}

	buf, err := session.OpenPath("public/index.html")
	if err != nil {
		t.Fatalf("OpenPath() error: %v", err)
	}
	if err := session.Update(buf.ID, "<h1>edited</h1>\n"); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if err := session.Save(context.Background(), buf.ID); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// the server reads the file per request
	if body := get(t, st.ServerURL); !strings.Contains(body, "<h1>edited</h1>") {
		t.Errorf("GET after save = %q", body)
	}

	data, err := os.ReadFile(filepath.Join(runtime.Dir(ctrl.Handle()), "public", "index.html"))
	if err != nil || string(data) != "<h1>edited</h1>\n" {
		t.Errorf("sandbox file = %q, %v", data, err)
	}
}

func get(t *testing.T, url string) string {
	t.Helper()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading %s: %v", url, err)
	}
	return string(data)
}
