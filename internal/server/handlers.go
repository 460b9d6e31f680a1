package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mgpai22/scribe/internal/audio"
	"github.com/mgpai22/scribe/internal/pipeline"
	"github.com/mgpai22/scribe/internal/store"
)

type segmentResponse struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type uploadResponse struct {
	Transcript   string            `json:"transcript"`
	Filename     string            `json:"filename"`
	SubtitleFile string            `json:"subtitle_file"`
	Segments     []segmentResponse `json:"segments"`
}

// multipart parts above this size spill to disk
const multipartMemory = 8 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.opts.LoadErr != nil {
		status, kind := statusFor(s.opts.LoadErr)
		WriteJSON(w, status, ErrorResponse{Error: s.opts.LoadErr.Error(), Kind: kind})
		return
	}

	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		WriteError(w, http.StatusBadRequest, "No selected file")
		return
	}
	filename := SecureFilename(header.Filename)
	if filename == "" || !audio.Allowed(filename) {
		WriteError(w, http.StatusBadRequest, "File type not allowed")
		return
	}

	dst, err := s.saveUpload(file, filename)
	if err != nil {
		s.log.Errorw("failed to save upload", "file", filename, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	ctx := r.Context()
	if s.opts.RecognizeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RecognizeTimeout)
		defer cancel()
	}

	s.recognizeMu.Lock()
	result, err := s.pipeline.Transcribe(ctx, dst)
	s.recognizeMu.Unlock()
	// only succeeds once the job has consumed the audio
	os.Remove(filepath.Dir(dst))
	if err != nil {
		status, kind := statusFor(err)
		WriteJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
		return
	}

	name, _ := store.Name(filename)
	resp := uploadResponse{
		Transcript:   result.Transcript,
		Filename:     filename,
		SubtitleFile: "/subtitles/" + name,
		Segments:     make([]segmentResponse, len(result.Segments)),
	}
	for i, seg := range result.Segments {
		resp.Segments[i] = segmentResponse{ID: seg.Index, Start: seg.Start, End: seg.End, Text: seg.Text}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// saveUpload stores the upload as UploadDir/<uuid>/<filename>. The base name
// is kept because the subtitle document is named after it.
func (s *Server) saveUpload(src io.Reader, filename string) (string, error) {
	dir := filepath.Join(s.opts.UploadDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dst := filepath.Join(dir, filename)
	out, err := os.Create(dst)
	if err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.RemoveAll(dir)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dst, nil
}

func (s *Server) handleWaveformData(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	data, err := s.pipeline.TimingData(filename)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "Subtitle file not found")
		return
	}
	if err != nil {
		s.log.Warnw("timing data failed", "file", filename, "error", err)
		status, kind := statusFor(err)
		WriteJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
		return
	}
	if data.Segments == nil {
		data.Segments = []pipeline.TimingSegment{}
	}
	WriteJSON(w, http.StatusOK, data)
}

func (s *Server) handleSubtitle(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	doc, err := s.pipeline.Store().Read(filename)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "Subtitle file not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to read subtitle file")
		return
	}

	w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	err := s.opts.LoadErr
	if err == nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		err = s.pipeline.Ready(ctx)
	}
	if err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
