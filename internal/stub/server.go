// Package stub serves a local stand-in for the smile-detection service. It
// speaks the same HTTP contract as the real camera backend, renders synthetic
// frames instead of reading a webcam, and reports a smile on a fixed cadence.
package stub

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iksnae/smile-viewer/internal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config tunes the stub
type Config struct {
	// CaptureInterval is the time between synthetic frames
	CaptureInterval time.Duration
	// SmileEvery makes every n-th detection a smile. 0 never smiles.
	SmileEvery int
	// FailStart makes start-camera answer 500
	FailStart bool
	// SmileBox is the reported smile rectangle
	SmileBox image.Rectangle
	Clock    func() time.Time
}

// DefaultConfig mirrors the real backend's one-second capture loop
func DefaultConfig() Config {
	return Config{
		CaptureInterval: time.Second,
		SmileEvery:      3,
		SmileBox:        image.Rect(120, 80, 180, 110),
	}
}

// Server implements the remote contract
type Server struct {
	cfg    Config
	store  *Store
	router chi.Router

	mu         sync.Mutex
	active     bool
	stop       chan struct{}
	wg         sync.WaitGroup
	frameSeq   int
	latest     *image.RGBA
	latestJPEG []byte
	detections int
	lastStamp  time.Time

	registry      *prometheus.Registry
	framesTotal   prometheus.Counter
	smilesTotal   prometheus.Counter
	requestsTotal *prometheus.CounterVec
	cameraActive  prometheus.Gauge
}

// New creates a stub backed by store
func New(store *Store, cfg Config) *Server {
	if cfg.CaptureInterval <= 0 {
		cfg.CaptureInterval = DefaultConfig().CaptureInterval
	}
	if cfg.SmileBox.Empty() {
		cfg.SmileBox = DefaultConfig().SmileBox
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		registry: prometheus.NewRegistry(),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smile_stub_frames_captured_total",
			Help: "Synthetic frames captured",
		}),
		smilesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smile_stub_smiles_saved_total",
			Help: "Snapshots saved after a detected smile",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smile_stub_requests_total",
			Help: "HTTP requests by route pattern and status",
		}, []string{"route", "status"}),
		cameraActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smile_stub_camera_active",
			Help: "1 while the capture loop runs",
		}),
	}
	s.registry.MustRegister(s.framesTotal, s.smilesTotal, s.requestsTotal, s.cameraActive)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(allowAnyOrigin)

	r.Get("/", s.handleHome)
	r.Post(internal.PathStartCamera, s.handleStart)
	r.Post(internal.PathStopCamera, s.handleStop)
	r.Get(internal.PathGetFrame, s.handleFrame)
	r.Get(internal.PathDetectSmile, s.handleDetect)
	r.Get(internal.PathGetSmiles, s.handleSmiles)
	r.Get(internal.PathGetImage+"{filename}", s.handleImage)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Registry exposes the stub's metrics
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Close stops the capture loop
func (s *Server) Close() {
	s.stopCapture()
}

// Active reports whether the capture loop runs
func (s *Server) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"OK": "HOME"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if s.cfg.FailStart {
		internal.LogWarn("stub: refusing to open camera")
		writeError(w, http.StatusInternalServerError, "Failed to open camera")
		return
	}
	if err := s.startCapture(); err != nil {
		internal.LogError("stub: capture failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to open camera")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Camera started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.stopCapture()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Camera stopped"})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	frame := s.latestJPEG
	s.mu.Unlock()

	if frame == nil {
		writeError(w, http.StatusInternalServerError, "No frame captured yet")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(frame)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	result, snap, err := s.detect()
	if err != nil {
		internal.LogError("stub: detection failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Detection failed")
		return
	}
	if snap != nil {
		if err := s.store.Insert(r.Context(), *snap); err != nil {
			internal.LogError("stub: could not save smile: %v", err)
			writeError(w, http.StatusInternalServerError, "Could not save smile")
			return
		}
		s.smilesTotal.Inc()
		internal.LogInfo("stub: smile saved as %s", snap.Filename)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSmiles(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		internal.LogError("stub: listing smiles failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Could not list smiles")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	data, err := s.store.Image(r.Context(), filename)
	if errors.Is(err, ErrImageNotFound) {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		internal.LogError("stub: loading %s failed: %v", filename, err)
		writeError(w, http.StatusInternalServerError, "Could not load image")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(data)
}

// startCapture grabs the first frame synchronously, then keeps capturing on
// CaptureInterval until stopCapture. Starting twice is a no-op.
func (s *Server) startCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil
	}
	if err := s.captureLocked(); err != nil {
		return err
	}

	s.active = true
	s.stop = make(chan struct{})
	s.cameraActive.Set(1)
	internal.LogInfo("stub: camera opened")

	s.wg.Add(1)
	go s.captureLoop(s.stop)
	return nil
}

func (s *Server) stopCapture() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stop)
	s.cameraActive.Set(0)
	s.mu.Unlock()

	s.wg.Wait()
	internal.LogInfo("stub: camera released")
}

func (s *Server) captureLoop(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.CaptureInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			err := s.captureLocked()
			s.mu.Unlock()
			if err != nil {
				internal.LogWarn("stub: frame capture failed: %v", err)
			}
		}
	}
}

func (s *Server) captureLocked() error {
	s.frameSeq++
	img := drawFrame(s.frameSeq, s.cfg.Clock())
	data, err := encodeJPEG(img)
	if err != nil {
		return err
	}
	s.latest = img
	s.latestJPEG = data
	s.framesTotal.Inc()
	return nil
}

// detect examines the latest frame. A smile yields the snapshot to persist.
func (s *Server) detect() (internal.DetectionResult, *Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == nil {
		return internal.DetectionResult{}, nil, nil
	}
	s.detections++
	if s.cfg.SmileEvery <= 0 || s.detections%s.cfg.SmileEvery != 0 {
		return internal.DetectionResult{}, nil, nil
	}

	box := s.cfg.SmileBox
	data, err := encodeJPEG(markSmile(s.latest, box))
	if err != nil {
		return internal.DetectionResult{}, nil, err
	}

	timestamp, filename := snapshotNames(s.nextStampLocked())
	snap := &Snapshot{
		Timestamp: timestamp,
		Filename:  filename,
		X:         box.Min.X,
		Y:         box.Min.Y,
		W:         box.Dx(),
		H:         box.Dy(),
		Image:     data,
	}
	result := internal.DetectionResult{
		SmileDetected: true,
		Coordinates:   fmt.Sprintf("%d,%d", box.Min.X, box.Min.Y),
	}
	return result, snap, nil
}

// snapshotNames derives the timestamp identity and image filename of a
// snapshot taken at stamp. Both carry milliseconds.
func snapshotNames(stamp time.Time) (timestamp, filename string) {
	timestamp = stamp.Format("2006-01-02 15:04:05.000")
	filename = fmt.Sprintf("smile_%s_%03d.jpg", stamp.Format("20060102_150405"), stamp.Nanosecond()/int(time.Millisecond))
	return timestamp, filename
}

// nextStampLocked returns a millisecond time strictly after the previous one
// so timestamps and filenames stay unique.
func (s *Server) nextStampLocked() time.Time {
	now := s.cfg.Clock().Truncate(time.Millisecond)
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Millisecond)
	}
	s.lastStamp = now
	return now
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.requestsTotal.WithLabelValues(route, fmt.Sprint(ww.Status())).Inc()
		internal.Logger().Debug("stub request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
