package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lineage-cli/internal/config"
	"github.com/sells-group/lineage-cli/internal/lineage"
	"github.com/sells-group/lineage-cli/pkg/datalineage"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve lineage recording and tracing over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		router := buildRouter(newLineageClient(cfg), cfg.Lineage)
		return startServer(ctx, router, resolvePort(servePort, cfg.Server.Port))
	},
}

type recordRequest struct {
	Process string    `json:"process"`
	Origin  string    `json:"origin"`
	JobID   string    `json:"job_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Source  string    `json:"source"`
	Target  string    `json:"target"`
}

// buildRouter wires the HTTP routes over client.
func buildRouter(client datalineage.Client, lc config.LineageConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/lineage", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var body recordRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.Start.IsZero() {
				body.Start = time.Now().UTC()
			}

			m := lineage.Movement{
				Location:    lc.Location(),
				ProcessName: body.Process,
				Origin:      body.Origin,
				JobID:       body.JobID,
				Start:       body.Start,
				End:         body.End,
				Source:      body.Source,
				Target:      body.Target,
			}
			if err := m.Validate(); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}

			rec, err := lineage.NewRecorder(client, m, recorderOptions(lc)...).CreateLineage(req.Context())
			if err != nil {
				zap.L().Error("record lineage failed",
					zap.String("request_id", middleware.GetReqID(req.Context())),
					zap.Error(err),
				)
				writeError(w, upstreamStatus(err), err.Error())
				return
			}
			writeJSON(w, http.StatusCreated, rec)
		})

		r.Get("/trace", func(w http.ResponseWriter, req *http.Request) {
			source := req.URL.Query().Get("source")
			target := req.URL.Query().Get("target")
			if source == "" || target == "" {
				writeError(w, http.StatusBadRequest, "source and target are required")
				return
			}

			rec := lineage.NewRecorder(client, lineage.Movement{
				Location: lc.Location(),
				Source:   source,
				Target:   target,
			}, recorderOptions(lc)...)

			lin, err := rec.RetrieveLineage(req.Context())
			if err != nil {
				zap.L().Error("trace lineage failed",
					zap.String("request_id", middleware.GetReqID(req.Context())),
					zap.Error(err),
				)
				writeError(w, upstreamStatus(err), err.Error())
				return
			}
			writeJSON(w, http.StatusOK, lin)
		})
	})

	return r
}

// upstreamStatus maps a lineage API failure to the status returned to callers.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, datalineage.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, lineage.ErrTraversalLimit):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func resolvePort(flag, fallback int) int {
	if flag != 0 {
		return flag
	}
	return fallback
}

// startServer serves handler on port until ctx is done, then shuts down.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
