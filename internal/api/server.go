// Package api exposes the reconstruction engine over HTTP: project CRUD,
// measurement-table rebuilds, the interactive drag surface, and chart
// rendering.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/motion.profile/internal/config"
	"github.com/banshee-data/motion.profile/internal/db"
	"github.com/banshee-data/motion.profile/internal/httputil"
	"github.com/banshee-data/motion.profile/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db       *db.DB
	defaults *config.TuningConfig // fallback when a project has no settings

	sessions sessionPool
}

func NewServer(database *db.DB, defaults *config.TuningConfig) *Server {
	if defaults == nil {
		defaults = config.EmptyTuningConfig()
	}
	return &Server{
		db:       database,
		defaults: defaults,
	}
}

// ServeMux returns the API routes. Method matching is handled by the mux
// patterns; handlers only see requests for their verb.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /config", s.showConfig)
	mux.HandleFunc("GET /version", s.showVersion)

	mux.HandleFunc("POST /projects", s.createProject)
	mux.HandleFunc("GET /projects", s.listProjects)
	mux.HandleFunc("GET /projects/{id}", s.getProject)
	mux.HandleFunc("PUT /projects/{id}/settings", s.updateSettings)

	mux.HandleFunc("GET /projects/{id}/segments", s.getSegments)
	mux.HandleFunc("PUT /projects/{id}/segments", s.replaceSegments)

	mux.HandleFunc("GET /projects/{id}/profile", s.getProfile)
	mux.HandleFunc("GET /projects/{id}/chart", s.renderChart)

	mux.HandleFunc("POST /projects/{id}/drag/begin", s.dragBegin)
	mux.HandleFunc("POST /projects/{id}/drag/update", s.dragUpdate)
	mux.HandleFunc("POST /projects/{id}/drag/release", s.dragRelease)

	mux.HandleFunc("POST /projects/{id}/groundtruth", s.uploadGroundTruth)

	return mux
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"fps":              s.defaults.GetFPS(),
		"units":            s.defaults.GetUnits(),
		"anchor_policy":    s.defaults.GetAnchorPolicy(),
		"max_acceleration": s.defaults.GetMaxAcceleration(),
		"max_deceleration": s.defaults.GetMaxDeceleration(),
	})
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
