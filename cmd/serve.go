package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/viability-cli/internal/model"
	"github.com/sells-group/viability-cli/internal/resilience"
	"github.com/sells-group/viability-cli/internal/store"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 15 * time.Second
	requestIDHeader = "x-request-id"
)

// Error codes that are not failure kinds.
const (
	codeValidation     = "VALIDATION_ERROR"
	codeReportNotFound = "REPORT_NOT_FOUND"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	ErrorCode string         `json:"errorCode"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		breakers := map[string]string{}
		if env.Breakers != nil {
			for name, st := range env.Breakers.States() {
				breakers[name] = st.String()
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "breakers": breakers})
	})
	r.Handle("/metrics", promhttp.HandlerFor(env.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/analyze", analyzeHandler(env))
		api.Get("/report/{requestId}", reportHandler(env))
	})

	return r
}

func analyzeHandler(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.AnalyzeRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{
				ErrorCode: codeValidation,
				Message:   "request body must be a JSON object: " + err.Error(),
			})
			return
		}

		resp, err := env.Analyzer.Analyze(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set(requestIDHeader, resp.RequestID)
		writeJSON(w, http.StatusCreated, resp)
	}
}

func reportHandler(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "requestId")
		resp, err := env.Analyzer.Report(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{
				ErrorCode: codeReportNotFound,
				Message:   fmt.Sprintf("report %s not found", id),
			})
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// writeError maps a classified failure to its status and error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := resilience.KindOf(err)
	status := resilience.HTTPStatus(kind)
	body := errorBody{ErrorCode: string(kind), Message: err.Error()}

	if e, ok := resilience.As(err); ok {
		body.Message = e.Message
		body.Details = e.Details()
		if kind == resilience.KindInvalidInput {
			body.ErrorCode = codeValidation
			if e.Status != "" {
				body.ErrorCode = e.Status
			}
			body.Details = nil
		}
	} else {
		body.ErrorCode = string(resilience.KindInternal)
		body.Message = "unexpected error"
	}

	log := zap.L().With(zap.String("request_id", chimw.GetReqID(r.Context())), zap.String("error_code", body.ErrorCode))
	if status >= http.StatusInternalServerError {
		log.Error("analysis request failed", zap.Error(err))
	} else {
		log.Info("analysis request rejected", zap.String("message", body.Message))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

// requestLogger echoes the request id header and logs each request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set(requestIDHeader, chimw.GetReqID(r.Context()))
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", ww.Header().Get(requestIDHeader)),
		)
	})
}
