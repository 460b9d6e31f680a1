package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mgpai22/scribe/internal/pipeline"
	"github.com/mgpai22/scribe/internal/store"
	"github.com/mgpai22/scribe/internal/subtitle"
)

// execute runs the root command with fresh flag values and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SCRIBE_PROVIDER", "")
	t.Setenv("LOG_LEVEL", "error")

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func seedStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := store.New(dir).Save("talk.mp3", []subtitle.Segment{
		{Index: 1, Start: 0, End: 1.25, Text: "hello"},
		{Index: 2, Start: 1.25, End: 2, Text: "world"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestTimingCommand(t *testing.T) {
	dir := seedStore(t)

	out, err := execute(t, "timing", "talk.mp3", "--subtitle-dir", dir)
	if err != nil {
		t.Fatalf("timing: %v", err)
	}

	var data pipeline.TimingData
	if err := json.Unmarshal([]byte(out), &data); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if data.Filename != "talk.mp3" || len(data.Segments) != 2 {
		t.Fatalf("data = %+v", data)
	}
	if data.Segments[0] != (pipeline.TimingSegment{Start: 0, End: 1.25, Text: "hello"}) {
		t.Errorf("first segment = %+v", data.Segments[0])
	}
}

func TestTimingCommandNotFound(t *testing.T) {
	_, err := execute(t, "timing", "missing.wav", "--subtitle-dir", t.TempDir())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUnsupportedProvider(t *testing.T) {
	_, err := execute(t, "timing", "talk.mp3", "--provider", "whisperx")
	if err == nil || !strings.Contains(err.Error(), "unsupported provider") {
		t.Errorf("error = %v", err)
	}
}

func TestTranscribeRejectsInput(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name, path, want string
	}{
		{"missing", filepath.Join(dir, "gone.mp3"), "file not found"},
		{"unsupported", notes, "unsupported file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "transcribe", tt.path, "--subtitle-dir", dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestTranscribeWithoutCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	dir := t.TempDir()
	input := filepath.Join(dir, "talk.wav")
	if err := os.WriteFile(input, []byte("RIFF"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "transcribe", input, "--subtitle-dir", dir, "--no-prepare")
	if err == nil || !strings.Contains(err.Error(), "API key is required") {
		t.Errorf("error = %v", err)
	}
	if _, statErr := os.Stat(input); statErr != nil {
		t.Error("input must be left in place")
	}
}

// whisperServer answers transcription requests the way an OpenAI-compatible
// endpoint does and points the CLI configuration at it.
func whisperServer(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" hello world","language":"en","duration":2.5,"segments":[{"id":0,"start":0,"end":1,"text":" hello"},{"id":1,"start":1,"end":2.5,"text":" world"}]}`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", srv.URL+"/v1")
	t.Setenv("SCRIBE_MODEL", "")
	t.Setenv("SCRIBE_LANGUAGE", "")
	t.Setenv("RECOGNIZE_TIMEOUT", "")
}

func TestTranscribeSourceHandling(t *testing.T) {
	tests := []struct {
		name     string
		flags    []string
		wantKept bool
	}{
		{"source consumed by default", nil, false},
		{"keep-audio leaves source", []string{"--keep-audio"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			whisperServer(t)
			dir := t.TempDir()
			subDir := filepath.Join(dir, "subs")
			input := filepath.Join(dir, "talk.wav")
			if err := os.WriteFile(input, []byte("RIFF"), 0644); err != nil {
				t.Fatal(err)
			}

			args := append([]string{"transcribe", input, "--subtitle-dir", subDir, "--no-prepare"}, tt.flags...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("transcribe: %v", err)
			}
			if !strings.Contains(out, "hello world") {
				t.Errorf("output = %q", out)
			}

			doc, err := os.ReadFile(filepath.Join(subDir, "talk.srt"))
			if err != nil {
				t.Fatalf("subtitle document: %v", err)
			}
			want := "1\n00:00:00,000 --> 00:00:01,000\nhello\n\n2\n00:00:01,000 --> 00:00:02,500\nworld\n\n"
			if string(doc) != want {
				t.Errorf("document = %q, want %q", doc, want)
			}

			_, statErr := os.Stat(input)
			if kept := statErr == nil; kept != tt.wantKept {
				t.Errorf("source kept = %v, want %v", kept, tt.wantKept)
			}
		})
	}
}

func TestTranslateValidation(t *testing.T) {
	dir := seedStore(t)
	t.Setenv("GEMINI_API_KEY", "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"same language", []string{"-l", "en", "-t", "EN"}, "cannot be the same"},
		{"bad batch size", []string{"-t", "es", "--batch-size", "0"}, "batch-size must be positive"},
		{"bad concurrency", []string{"-t", "es", "--concurrency", "-1"}, "concurrency must be positive"},
		{"missing key", []string{"-t", "es"}, "GEMINI_API_KEY"},
		{"missing target", nil, "target-language"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"translate", "talk.mp3", "--subtitle-dir", dir}, tt.args...)
			_, err := execute(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestTranslateMissingDocument(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	_, err := execute(t, "translate", "nope.mp3", "-t", "fr", "--translate-provider", "anthropic", "--subtitle-dir", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "subtitle file not found") {
		t.Errorf("error = %v", err)
	}
}

func TestPrepareRejectsFormat(t *testing.T) {
	_, err := execute(t, "prepare", "talk.mp3", "--format", "flac")
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("error = %v", err)
	}
}
