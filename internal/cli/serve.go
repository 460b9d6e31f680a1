package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mgpai22/scribe/internal/pipeline"
	"github.com/mgpai22/scribe/internal/server"
	"github.com/mgpai22/scribe/internal/transcribe"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the transcription pipeline over HTTP",
	Long: `Start the HTTP server:

  POST /upload                    multipart field "file", runs a transcription
  GET  /waveform-data/{filename}  timing data of a stored document
  GET  /subtitles/{filename}      the stored .srt document
  GET  /healthz                   recognizer readiness
  GET  /metrics                   Prometheus metrics

The recognizer is loaded once at start-up. If loading fails the server
still starts, reports the failure on /healthz and refuses uploads.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default from HTTP_ADDR, :5000)")
	serveCmd.Flags().String("upload-dir", "", "Directory for uploaded files (default from UPLOAD_DIR)")
	serveCmd.Flags().Bool("keep-audio", false, "Keep uploaded files after a successful job")
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if dir, _ := cmd.Flags().GetString("upload-dir"); dir != "" {
		cfg.UploadDir = dir
	}
	keepAudio, _ := cmd.Flags().GetBool("keep-audio")

	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return fmt.Errorf("create upload directory: %w", err)
	}
	if err := os.MkdirAll(cfg.SubtitleDir, 0755); err != nil {
		return fmt.Errorf("create subtitle directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recognizer, loadErr := loadRecognizer(ctx, "")
	if loadErr != nil {
		logger.Errorw("recognizer failed to load; uploads will be refused",
			"provider", cfg.Provider,
			"error", loadErr,
		)
		recognizer = &transcribe.Unavailable{Provider: cfg.Provider, Err: loadErr}
	} else {
		logger.Infow("recognizer loaded", "provider", recognizer.Name(), "model", cfg.Model)
	}

	p := pipeline.New(recognizer, preparer(false), subtitleStore(), logger,
		pipeline.Options{KeepAudio: keepAudio})

	srv := server.New(p, server.Options{
		Addr:             cfg.HTTPAddr,
		UploadDir:        cfg.UploadDir,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		RecognizeTimeout: cfg.Timeout,
		ReadTimeout:      cfg.ReadTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		LoadErr:          loadErr,
	}, logger)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
