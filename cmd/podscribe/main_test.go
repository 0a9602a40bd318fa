package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, base string, extra ...string) string {
	t.Helper()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[logging]
format = "json"
level = "error"

[llm]
api_key = "test-key"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	for _, section := range extra {
		content += "\n" + section + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, output)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("output does not mention target path:\n%s", output)
	}

	// Second run must refuse to overwrite.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigValidateWithFile(t *testing.T) {
	base := t.TempDir()
	path := writeTestConfig(t, base)
	output, err := runCommand(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, output)
	}
	if !strings.Contains(output, "is valid") {
		t.Fatalf("unexpected output:\n%s", output)
	}
	if !strings.Contains(output, "captions, innertube, videoinfo, speech") {
		t.Fatalf("default provider order missing:\n%s", output)
	}
}

func TestValidateCommand(t *testing.T) {
	lengthSeconds := "1800"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"playabilityStatus":{"status":"OK"},"videoDetails":{"title":"Episode","lengthSeconds":%q}}`, lengthSeconds)
	}))
	defer server.Close()

	base := t.TempDir()
	path := writeTestConfig(t, base, fmt.Sprintf("[providers]\ninnertube_base_url = %q", server.URL))

	output, err := runCommand(t, "--config", path, "validate", "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, output)
	}
	if !strings.Contains(output, "dQw4w9WgXcQ") {
		t.Fatalf("video id missing from output:\n%s", output)
	}
	if !strings.Contains(output, "1800s") {
		t.Fatalf("duration missing from output:\n%s", output)
	}

	// The unlimited default budget caps input at twelve hours.
	lengthSeconds = "90000"
	output, err = runCommand(t, "--config", path, "validate", "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("validate over-length: %v\n%s", err, output)
	}
	if !strings.Contains(output, "not suitable") {
		t.Fatalf("over-length video must be unsuitable:\n%s", output)
	}

	if _, err := runCommand(t, "--config", path, "validate", "https://vimeo.com/123"); err == nil {
		t.Fatal("expected error for unsupported host")
	}
}

func TestJobsCommandEmpty(t *testing.T) {
	base := t.TempDir()
	path := writeTestConfig(t, base)

	output, err := runCommand(t, "--config", path, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v\n%s", err, output)
	}
	if !strings.Contains(output, "no jobs") {
		t.Fatalf("unexpected output:\n%s", output)
	}
}

func TestQuotaCommandListsServices(t *testing.T) {
	base := t.TempDir()
	path := writeTestConfig(t, base)

	output, err := runCommand(t, "--config", path, "quota")
	if err != nil {
		t.Fatalf("quota: %v\n%s", err, output)
	}
	if !strings.Contains(output, "videoinfo") || !strings.Contains(output, "speech") {
		t.Fatalf("metered services missing:\n%s", output)
	}
}
