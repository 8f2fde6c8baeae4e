// Package api exposes the engine over HTTP and websockets.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-ledcloud/internal/app"
	"github.com/coreman2200/funtimes-ledcloud/internal/config"
	diag "github.com/coreman2200/funtimes-ledcloud/internal/diagnostics"
	"github.com/coreman2200/funtimes-ledcloud/internal/render"
	"github.com/coreman2200/funtimes-ledcloud/internal/weather"
)

type Server struct {
	ctx    context.Context
	core   *app.Core
	hub    *Hub
	logger zerolog.Logger
	start  time.Time

	selfTesting atomic.Bool

	mu      sync.Mutex
	cfg     *config.Config
	cfgPath string // settings are not persisted when empty
}

// NewServer routes diagnostics from core to the websocket hub. Background
// work started by requests stops when ctx ends.
func NewServer(ctx context.Context, core *app.Core, cfg *config.Config, cfgPath string, logger zerolog.Logger) *Server {
	s := &Server{
		ctx:     ctx,
		core:    core,
		hub:     NewHub(core.Eng, logger.With().Str("component", "hub").Logger()),
		logger:  logger,
		start:   time.Now(),
		cfg:     cfg,
		cfgPath: cfgPath,
	}
	core.Diag = s.hub
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pixels", s.handleSetAll).Methods("POST")
	r.HandleFunc("/api/pixel", s.handleSetPixel).Methods("POST")
	r.HandleFunc("/api/pattern", s.handleSetPattern).Methods("POST")
	r.HandleFunc("/api/brightness", s.handleSetBrightness).Methods("POST")
	r.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/api/patterns", s.handlePatterns).Methods("GET")

	r.HandleFunc("/api/weather", s.handleWeather).Methods("GET")
	r.HandleFunc("/api/weather/show", s.handleShowWeather).Methods("POST")

	r.HandleFunc("/api/settings", s.handleGetSettings).Methods("GET")
	r.HandleFunc("/api/settings", s.handlePutSettings).Methods("PUT")

	r.HandleFunc("/api/selftest", s.handleSelfTest).Methods("POST")

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/system-info", s.handleSystemInfo).Methods("GET")
	r.HandleFunc("/ws", s.hub.HandleStatusWS)
	r.HandleFunc("/diag", s.hub.HandleDiagWS)

	if s.cfg.WebRoot != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.WebRoot)))
	}
	return withCORS(r)
}

// HTTPServer wraps Handler with the daemon's timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type rgbRequest struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

func (c rgbRequest) validate() error {
	for _, v := range [...]int{c.R, c.G, c.B} {
		if v < 0 || v > 255 {
			return errors.Errorf("color component %d outside 0..255", v)
		}
	}
	return nil
}

func (c rgbRequest) color() render.Color {
	return render.RGB(uint8(c.R), uint8(c.G), uint8(c.B))
}

func (s *Server) handleSetAll(w http.ResponseWriter, r *http.Request) {
	var req rgbRequest
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.core.Eng.SetAllPixels(req.color())
	s.writeStatus(w)
}

func (s *Server) handleSetPixel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
		rgbRequest
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing pixel index"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	index := *req.Index
	if err := s.core.Eng.SetPixel(index, uint8(req.R), uint8(req.G), uint8(req.B)); err != nil {
		if errors.Is(err, render.ErrIndexOutOfRange) {
			s.hub.Push(diag.IndexOutOfRange(index, s.core.Eng.Len()))
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeStatus(w)
}

func (s *Server) handleSetPattern(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pattern int `json:"pattern"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, err := render.ParsePattern(req.Pattern)
	if err == nil {
		err = s.core.Eng.SetPattern(p)
	}
	if err != nil {
		s.hub.Push(diag.UnknownPattern(req.Pattern))
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.hub.Push(diag.Diagnostic{Severity: diag.Info, Code: diag.PatternChanged, Summary: "Pattern changed", Detail: p.String()})
	s.writeStatus(w)
}

func (s *Server) handleSetBrightness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Brightness int `json:"brightness"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.core.Eng.SetBrightness(req.Brightness)
	s.writeStatus(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w)
}

type patternInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Animated bool   `json:"animated"`
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	var out []patternInfo
	for _, p := range render.Patterns() {
		out = append(out, patternInfo{ID: int(p), Name: p.String(), Animated: p.Animated()})
	}
	writeJSON(w, http.StatusOK, out)
}

type weatherResponse struct {
	weather.Report
	Ambient string `json:"ambient"`
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if s.core.Weather == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("weather disabled"))
		return
	}
	rep, ok := s.core.Weather.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errors.New("no weather report yet"))
		return
	}
	writeJSON(w, http.StatusOK, weatherResponse{Report: rep, Ambient: weather.AmbientColor(rep).String()})
}

func (s *Server) handleShowWeather(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.core.ShowWeather(); !ok {
		writeError(w, http.StatusServiceUnavailable, errors.New("no weather report yet"))
		return
	}
	s.writeStatus(w)
}

// selfTestStep is how long each self-test frame stays on the strip.
const selfTestStep = 250 * time.Millisecond

// handleSelfTest starts a wiring self-test in the background. Progress is
// reported on /diag. Only one test runs at a time.
func (s *Server) handleSelfTest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind app.TestKind `json:"kind"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Kind != app.IndexSweep && req.Kind != app.RGBChannels {
		writeError(w, http.StatusBadRequest, errors.Wrapf(app.ErrUnknownTest, "%q", req.Kind))
		return
	}
	if !s.selfTesting.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, errors.New("a self-test is already running"))
		return
	}
	go func() {
		defer s.selfTesting.Store(false)
		if err := s.core.SelfTest(s.ctx, req.Kind, selfTestStep); err != nil {
			s.logger.Warn().Err(err).Msg("self-test")
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"started": string(req.Kind)})
}

// settingsView is the settings document served to clients. The weather API
// key is write-only.
type settingsView struct {
	*config.Config
	APIKeySet bool `json:"api_key_set"`
}

func redacted(c config.Config) settingsView {
	set := c.Weather.APIKey != ""
	c.Weather.APIKey = ""
	return settingsView{Config: &c, APIKeySet: set}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c := *s.cfg
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, redacted(c))
}

// handlePutSettings merges a partial document into the current settings.
// Engine-facing fields take effect on restart; the weather location applies
// immediately.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.cfg
	if !decode(w, r, &next) {
		return
	}
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if s.cfgPath != "" {
		if err := config.Save(s.cfgPath, &next); err != nil {
			s.logger.Error().Err(err).Str("path", s.cfgPath).Msg("save settings")
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	*s.cfg = next

	if s.core.Weather != nil {
		s.core.Weather.SetLocation(app.LocationOf(&next))
	}
	s.logger.Info().Str("path", s.cfgPath).Msg("settings updated")
	s.hub.Push(diag.Diagnostic{Severity: diag.Info, Code: diag.SettingsSaved, Summary: "Settings saved"})
	writeJSON(w, http.StatusOK, redacted(next))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("Server is running"))
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st := s.core.Eng.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"heapAlloc":   ms.HeapAlloc,
		"brightness":  s.core.Eng.Brightness(),
		"pattern":     s.core.Eng.Pattern().String(),
		"frames":      st.Frames,
		"commitErrs":  st.CommitErrors,
		"advanceMs":   st.AdvanceMS,
		"estimatedMA": st.EstimatedMA,
		"uptime":      time.Since(s.start).Seconds(),
	})
}

func (s *Server) writeStatus(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.core.Eng.Snapshot())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid JSON"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
