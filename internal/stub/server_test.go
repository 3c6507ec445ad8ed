package stub

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/smile-viewer/internal"
	"github.com/iksnae/smile-viewer/testutil"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

type harness struct {
	stub   *Server
	store  *Store
	client *internal.Client
	url    string
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	store, err := NewStore(testutil.CreateInMemoryDB(t))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if cfg.CaptureInterval == 0 {
		cfg.CaptureInterval = time.Hour
	}
	stub := New(store, cfg)
	srv := httptest.NewServer(stub)
	t.Cleanup(func() {
		stub.Close()
		srv.Close()
	})

	client, err := internal.NewClient(srv.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return &harness{stub: stub, store: store, client: client, url: srv.URL}
}

func TestServer_Home(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	resp, err := http.Get(h.url + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	var body map[string]string
	testutil.JSONUnmarshal(t, testutil.ReadBody(t, resp), &body)
	if body["OK"] != "HOME" {
		t.Errorf("GET / body = %v", body)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	if err := h.client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestServer_BeforeStart(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	ctx := context.Background()

	result, err := h.client.DetectSmile(ctx)
	if err != nil {
		t.Fatalf("DetectSmile() error = %v", err)
	}
	if result.SmileDetected || result.Coordinates != "" {
		t.Errorf("DetectSmile() without a frame = %+v", result)
	}

	resp, err := http.Get(h.client.FrameURL("1"))
	if err != nil {
		t.Fatalf("GET frame error = %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("frame status = %d, want 500", resp.StatusCode)
	}
	if body := string(testutil.ReadBody(t, resp)); !strings.Contains(body, "No frame captured yet") {
		t.Errorf("frame body = %s", body)
	}

	records, err := h.client.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("ListSnapshots() = %+v, want empty", records)
	}
}

func TestServer_FailStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailStart = true
	h := newHarness(t, cfg)

	err := h.client.StartCamera(context.Background())
	var remoteErr *internal.RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("StartCamera() error = %v, want 500 RemoteError", err)
	}
	if h.stub.Active() {
		t.Error("camera should not be active after a refused start")
	}

	resp, err := http.Post(h.url+internal.PathStartCamera, "application/json", nil)
	if err != nil {
		t.Fatalf("POST start error = %v", err)
	}
	if body := string(testutil.ReadBody(t, resp)); !strings.Contains(body, "Failed to open camera") {
		t.Errorf("start body = %s", body)
	}
}

func TestServer_SessionSavesSmiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmileEvery = 3
	h := newHarness(t, cfg)
	ctx := context.Background()

	if err := h.client.StartCamera(ctx); err != nil {
		t.Fatalf("StartCamera() error = %v", err)
	}
	if !h.stub.Active() {
		t.Fatal("camera should be active")
	}

	frame, contentType, err := h.client.FetchImage(ctx, h.client.FrameURL("42"))
	if err != nil {
		t.Fatalf("FetchImage(frame) error = %v", err)
	}
	if contentType != "image/jpeg" {
		t.Errorf("frame content type = %q", contentType)
	}
	if _, err := jpeg.Decode(bytes.NewReader(frame)); err != nil {
		t.Errorf("frame is not a JPEG: %v", err)
	}

	var results []internal.DetectionResult
	for i := 0; i < 3; i++ {
		r, err := h.client.DetectSmile(ctx)
		if err != nil {
			t.Fatalf("DetectSmile() #%d error = %v", i+1, err)
		}
		results = append(results, r)
	}
	if results[0].SmileDetected || results[1].SmileDetected {
		t.Errorf("first two detections should be neutral: %+v", results[:2])
	}
	if !results[2].SmileDetected || results[2].Coordinates != "120,80" {
		t.Errorf("third detection = %+v, want smile at 120,80", results[2])
	}

	if err := h.client.StopCamera(ctx); err != nil {
		t.Fatalf("StopCamera() error = %v", err)
	}
	if h.stub.Active() {
		t.Error("camera should be released after stop")
	}

	records, err := h.client.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ListSnapshots() = %+v, want one record", records)
	}

	img, _, err := h.client.FetchImage(ctx, h.client.SnapshotURL(records[0].Filename))
	if err != nil {
		t.Fatalf("FetchImage(snapshot) error = %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(img)); err != nil {
		t.Errorf("snapshot is not a JPEG: %v", err)
	}

	if got := promtestutil.ToFloat64(h.stub.smilesTotal); got != 1 {
		t.Errorf("smiles saved = %v, want 1", got)
	}
}

func TestServer_UniqueTimestampsUnderFrozenClock(t *testing.T) {
	frozen := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()
	cfg.SmileEvery = 1
	cfg.Clock = func() time.Time { return frozen }
	h := newHarness(t, cfg)
	ctx := context.Background()

	if err := h.client.StartCamera(ctx); err != nil {
		t.Fatalf("StartCamera() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := h.client.DetectSmile(ctx); err != nil {
			t.Fatalf("DetectSmile() error = %v", err)
		}
	}

	records, err := h.client.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("ListSnapshots() returned %d records, want 3", len(records))
	}
	if records[0].Timestamp != "2024-05-01 10:00:00.002" || records[2].Timestamp != "2024-05-01 10:00:00.000" {
		t.Errorf("timestamps = %s .. %s, want newest first", records[0].Timestamp, records[2].Timestamp)
	}
	seen := map[string]bool{}
	for _, rec := range records {
		if seen[rec.Filename] {
			t.Errorf("filename %s saved twice", rec.Filename)
		}
		seen[rec.Filename] = true
	}
	if records[0].Filename != "smile_20240501_100000_002.jpg" {
		t.Errorf("newest filename = %s, want smile_20240501_100000_002.jpg", records[0].Filename)
	}
}

func TestSnapshotNames(t *testing.T) {
	tests := []struct {
		name         string
		stamp        time.Time
		wantStamp    string
		wantFilename string
	}{
		{
			name:         "whole second",
			stamp:        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			wantStamp:    "2024-05-01 10:00:00.000",
			wantFilename: "smile_20240501_100000_000.jpg",
		},
		{
			name:         "one millisecond later",
			stamp:        time.Date(2024, 5, 1, 10, 0, 0, int(time.Millisecond), time.UTC),
			wantStamp:    "2024-05-01 10:00:00.001",
			wantFilename: "smile_20240501_100000_001.jpg",
		},
		{
			name:         "sub-millisecond truncated",
			stamp:        time.Date(2024, 5, 1, 10, 5, 0, 125*int(time.Millisecond)+999, time.UTC),
			wantStamp:    "2024-05-01 10:05:00.125",
			wantFilename: "smile_20240501_100500_125.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStamp, gotFilename := snapshotNames(tt.stamp)
			if gotStamp != tt.wantStamp {
				t.Errorf("timestamp = %q, want %q", gotStamp, tt.wantStamp)
			}
			if gotFilename != tt.wantFilename {
				t.Errorf("filename = %q, want %q", gotFilename, tt.wantFilename)
			}
		})
	}
}

func TestServer_UnknownImage(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	_, _, err := h.client.FetchImage(context.Background(), h.client.SnapshotURL("nope.jpg"))
	var remoteErr *internal.RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.StatusCode != http.StatusNotFound {
		t.Errorf("FetchImage(unknown) error = %v, want 404", err)
	}
}

func TestServer_CaptureLoop(t *testing.T) {
	h := newHarness(t, Config{CaptureInterval: 5 * time.Millisecond})
	if err := h.client.StartCamera(context.Background()); err != nil {
		t.Fatalf("StartCamera() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for promtestutil.ToFloat64(h.stub.framesTotal) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("capture loop produced %v frames", promtestutil.ToFloat64(h.stub.framesTotal))
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.stub.Close()
	captured := promtestutil.ToFloat64(h.stub.framesTotal)
	time.Sleep(20 * time.Millisecond)
	if got := promtestutil.ToFloat64(h.stub.framesTotal); got != captured {
		t.Errorf("frames kept arriving after stop: %v -> %v", captured, got)
	}
}

func TestServer_Metrics(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	rec := httptest.NewRecorder()
	h.stub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.stub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"smile_stub_camera_active 0", `smile_stub_requests_total{route="/",status="200"} 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServer_Preflight(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	req := httptest.NewRequest(http.MethodOptions, internal.PathDetectSmile, nil)
	rec := httptest.NewRecorder()
	h.stub.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("preflight missing CORS header")
	}
}
