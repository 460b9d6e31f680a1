package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgpai22/scribe/internal/logging"
	"github.com/mgpai22/scribe/internal/pipeline"
	"github.com/mgpai22/scribe/internal/store"
	"github.com/mgpai22/scribe/internal/subtitle"
	"github.com/mgpai22/scribe/internal/transcribe"
)

type stubRecognizer struct {
	err     error
	pingErr error
	seen    []string
}

func (s *stubRecognizer) Recognize(ctx context.Context, audioPath string) (*transcribe.Result, error) {
	s.seen = append(s.seen, audioPath)
	if s.err != nil {
		return nil, s.err
	}
	return &transcribe.Result{
		Text: "hello world",
		Segments: []subtitle.Segment{
			{Index: 0, Start: 0, End: 1, Text: "hello"},
			{Index: 1, Start: 1, End: 2.5, Text: "world"},
		},
	}, nil
}

func (s *stubRecognizer) Ping(ctx context.Context) error { return s.pingErr }
func (s *stubRecognizer) Name() string                   { return "stub" }

type testEnv struct {
	handler   http.Handler
	uploadDir string
	subDir    string
	rec       *stubRecognizer
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		uploadDir: filepath.Join(root, "uploads"),
		subDir:    filepath.Join(root, "subtitles"),
		rec:       &stubRecognizer{},
	}
	opts.UploadDir = env.uploadDir
	if opts.MaxUploadBytes == 0 {
		opts.MaxUploadBytes = 1 << 20
	}
	p := pipeline.New(env.rec, nil, store.New(env.subDir), logging.Nop(), pipeline.Options{})
	env.handler = New(p, opts, logging.Nop()).Routes()
	return env
}

func buildMultipartForm(t *testing.T, fileField string, fileData []byte, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(fileData)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, field, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := buildMultipartForm(t, field, data, name)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	return e.do(req)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestUploadSuccess(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.upload(t, "file", "My Talk.mp3", []byte("ID3-fake-audio"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Transcript != "hello world" {
		t.Errorf("transcript = %q", resp.Transcript)
	}
	if resp.Filename != "My_Talk.mp3" {
		t.Errorf("filename = %q", resp.Filename)
	}
	if resp.SubtitleFile != "/subtitles/My_Talk.srt" {
		t.Errorf("subtitle_file = %q", resp.SubtitleFile)
	}
	if len(resp.Segments) != 2 || resp.Segments[0].ID != 1 || resp.Segments[1].End != 2.5 {
		t.Errorf("segments = %+v", resp.Segments)
	}

	if _, err := os.Stat(filepath.Join(env.subDir, "My_Talk.srt")); err != nil {
		t.Errorf("subtitle file missing: %v", err)
	}
	if len(env.rec.seen) != 1 || filepath.Base(env.rec.seen[0]) != "My_Talk.mp3" {
		t.Fatalf("recognizer saw %v", env.rec.seen)
	}
	if _, err := os.Stat(env.rec.seen[0]); !os.IsNotExist(err) {
		t.Error("upload should be removed after a successful job")
	}
	if entries, _ := os.ReadDir(env.uploadDir); len(entries) != 0 {
		t.Errorf("upload dir should be empty, found %d entries", len(entries))
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestUploadRejected(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		file   string
		status int
		errMsg string
	}{
		{"no file part", "", "", http.StatusBadRequest, "No file part"},
		{"wrong field", "audio", "a.mp3", http.StatusBadRequest, "No file part"},
		{"extension not allowed", "file", "notes.txt", http.StatusBadRequest, "File type not allowed"},
		{"name sanitised away", "file", "../../.mp3", http.StatusBadRequest, "File type not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			rec := env.upload(t, tt.field, tt.file, []byte("data"))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decodeError(t, rec).Error; got != tt.errMsg {
				t.Errorf("error = %q, want %q", got, tt.errMsg)
			}
			if len(env.rec.seen) != 0 {
				t.Error("recognizer must not run for rejected uploads")
			}
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, Options{MaxUploadBytes: 1024})
	rec := env.upload(t, "file", "big.wav", bytes.Repeat([]byte("x"), 64*1024))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestUploadRecognitionFailure(t *testing.T) {
	tests := []struct {
		kind   transcribe.Kind
		status int
	}{
		{transcribe.KindBadInput, http.StatusBadRequest},
		{transcribe.KindUnavailable, http.StatusServiceUnavailable},
		{transcribe.KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			env := newTestEnv(t, Options{})
			env.rec.err = &transcribe.RecognitionError{Provider: "stub", Kind: tt.kind, Err: errors.New("boom")}

			rec := env.upload(t, "file", "clip.ogg", []byte("OggS"))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decodeError(t, rec).Kind; got != tt.kind.String() {
				t.Errorf("kind = %q, want %q", got, tt.kind.String())
			}
			if len(env.rec.seen) != 1 {
				t.Fatalf("recognizer saw %v", env.rec.seen)
			}
			if _, err := os.Stat(env.rec.seen[0]); err != nil {
				t.Error("upload should be kept when recognition fails")
			}
		})
	}
}

func TestUploadSameNameKeptApart(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.rec.err = &transcribe.RecognitionError{Provider: "stub", Kind: transcribe.KindInternal, Err: errors.New("boom")}

	env.upload(t, "file", "clip.ogg", []byte("first"))
	env.upload(t, "file", "clip.ogg", []byte("second"))

	if len(env.rec.seen) != 2 || env.rec.seen[0] == env.rec.seen[1] {
		t.Fatalf("uploads share a path: %v", env.rec.seen)
	}
	for i, want := range []string{"first", "second"} {
		if filepath.Base(env.rec.seen[i]) != "clip.ogg" {
			t.Errorf("upload %d saved as %q", i, env.rec.seen[i])
		}
		data, err := os.ReadFile(env.rec.seen[i])
		if err != nil || string(data) != want {
			t.Errorf("upload %d content = %q, err %v", i, data, err)
		}
	}
}

func TestUploadRecognizerNotLoaded(t *testing.T) {
	loadErr := &transcribe.RecognitionError{Provider: "openai", Kind: transcribe.KindUnavailable, Err: transcribe.ErrRecognizerUnavailable}
	env := newTestEnv(t, Options{LoadErr: loadErr})

	rec := env.upload(t, "file", "clip.wav", []byte("RIFF"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if _, err := os.Stat(env.uploadDir); !os.IsNotExist(err) {
		t.Error("nothing should be saved while the recognizer is unavailable")
	}
}

func TestWaveformData(t *testing.T) {
	env := newTestEnv(t, Options{})
	if rec := env.upload(t, "file", "talk.mp3", []byte("ID3")); rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d", rec.Code)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/waveform-data/talk.mp3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var data pipeline.TimingData
	if err := json.NewDecoder(rec.Body).Decode(&data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Filename != "talk.mp3" || len(data.Segments) != 2 {
		t.Errorf("data = %+v", data)
	}
	if data.Segments[0] != (pipeline.TimingSegment{Start: 0, End: 1, Text: "hello"}) {
		t.Errorf("segment 0 = %+v", data.Segments[0])
	}
}

func TestWaveformDataNotFound(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/waveform-data/missing.mp3", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decodeError(t, rec).Error; got != "Subtitle file not found" {
		t.Errorf("error = %q", got)
	}
}

func TestWaveformDataMalformed(t *testing.T) {
	env := newTestEnv(t, Options{})
	if err := os.MkdirAll(env.subDir, 0755); err != nil {
		t.Fatal(err)
	}
	doc := "1\n00:00:aa,000 --> 00:00:01,000\nbad\n\n"
	if err := os.WriteFile(filepath.Join(env.subDir, "bad.srt"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/waveform-data/bad.wav", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestSubtitleDownload(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.upload(t, "file", "talk.mp3", []byte("ID3"))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/subtitles/talk.srt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "1\n00:00:00,000 --> 00:00:01,000\nhello\n\n") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/x-subrip") {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/subtitles/nope.srt", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing subtitle status = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Options{})
	if rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	env.rec.pingErr = errors.New("connection refused")
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "scribe_http_requests_total") {
		t.Error("metrics output missing scribe_http_requests_total")
	}
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{"i contain cool \xfcml\xe4uts.txt", "i_contain_cool_mluts.txt"},
		{"i contain cool ümläuts.txt", "i_contain_cool_umlauts.txt"},
		{"  .hidden.mp3", "hidden.mp3"},
		{"CON.mp3", "_CON.mp3"},
		{"日本語", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SecureFilename(tt.in); got != tt.want {
				t.Errorf("SecureFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
