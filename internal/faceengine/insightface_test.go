package faceengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/doorlock/internal/camera"
	"github.com/kozaktomas/doorlock/internal/config"
)

func testFrame(t *testing.T, w, h int) *camera.Frame {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		img.Set(w/2, y, color.RGBA{G: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &camera.Frame{Data: buf.Bytes(), Width: w, Height: h, ContentType: "image/jpeg"}
}

// fakeEmbedServer answers /embed/face with the given faces and records the
// size of every uploaded image.
func fakeEmbedServer(t *testing.T, faces []faceDetection) (*httptest.Server, *[]image.Point) {
	t.Helper()
	var uploads []image.Point
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/embed/face" {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		cfg, _, err := image.DecodeConfig(file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if header.Header.Get("Content-Type") == "" {
			http.Error(w, "missing part content type", http.StatusBadRequest)
			return
		}
		uploads = append(uploads, image.Pt(cfg.Width, cfg.Height))

		json.NewEncoder(w).Encode(faceResponse{FacesCount: len(faces), Faces: faces, Model: "buffalo_l"})
	}))
	t.Cleanup(server.Close)
	return server, &uploads
}

func testEngine(url string) *InsightFace {
	return NewInsightFace(config.EngineConfig{
		URL:            url + "/",
		Model:          "buffalo_l",
		MatchThreshold: 0.5,
		MinDetScore:    0.5,
		MinFaceSize:    40,
		Timeout:        time.Second,
	})
}

func TestInsightFaceDetect(t *testing.T) {
	server, _ := fakeEmbedServer(t, []faceDetection{
		{FaceIndex: 0, Dim: 3, Embedding: []float32{1, 0, 0}, BBox: []float64{10, 20, 110, 140}, DetScore: 0.9},
		{FaceIndex: 1, BBox: []float64{1, 2}, DetScore: 0.8},
		{FaceIndex: 2, BBox: []float64{200, 20, 260, 90}, DetScore: 0.7},
	})
	engine := testEngine(server.URL)

	regions, err := engine.Detect(context.Background(), testFrame(t, 320, 240))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2 (malformed bbox skipped)", len(regions))
	}
	if regions[0].Box != image.Rect(10, 20, 110, 140) {
		t.Errorf("box = %v", regions[0].Box)
	}
	if regions[0].Score != 0.9 || len(regions[0].Embedding) != 3 {
		t.Errorf("region 0 = %+v", regions[0])
	}
	if regions[1].Index != 2 {
		t.Errorf("region 1 index = %d, want detector index 2", regions[1].Index)
	}
	if engine.Model() != "buffalo_l" {
		t.Errorf("Model() = %q", engine.Model())
	}
}

func TestInsightFaceDetectNoFaces(t *testing.T) {
	server, _ := fakeEmbedServer(t, nil)

	regions, err := testEngine(server.URL).Detect(context.Background(), testFrame(t, 64, 64))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("got %d regions, want 0", len(regions))
	}
}

func TestInsightFaceServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testEngine(server.URL).Detect(context.Background(), testFrame(t, 64, 64))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestInsightFaceExtractEmbedding(t *testing.T) {
	frame := testFrame(t, 320, 240)

	t.Run("carried embedding is copied", func(t *testing.T) {
		engine := testEngine("http://127.0.0.1:1")
		region := Region{Box: image.Rect(0, 0, 100, 100), Score: 0.9, Embedding: []float32{0.1, 0.2}}

		emb, err := engine.ExtractEmbedding(context.Background(), frame, region)
		if err != nil {
			t.Fatalf("ExtractEmbedding: %v", err)
		}
		emb[0] = 9
		if region.Embedding[0] != 0.1 {
			t.Error("returned embedding aliases the region")
		}
	})

	t.Run("small face fails alignment", func(t *testing.T) {
		engine := testEngine("http://127.0.0.1:1")
		region := Region{Box: image.Rect(0, 0, 30, 100), Score: 0.9, Embedding: []float32{1}}

		if _, err := engine.ExtractEmbedding(context.Background(), frame, region); !errors.Is(err, ErrAlignmentFailed) {
			t.Errorf("error = %v, want ErrAlignmentFailed", err)
		}
	})

	t.Run("low score fails alignment", func(t *testing.T) {
		engine := testEngine("http://127.0.0.1:1")
		region := Region{Box: image.Rect(0, 0, 100, 100), Score: 0.2, Embedding: []float32{1}}

		if _, err := engine.ExtractEmbedding(context.Background(), frame, region); !errors.Is(err, ErrAlignmentFailed) {
			t.Errorf("error = %v, want ErrAlignmentFailed", err)
		}
	})

	t.Run("missing embedding is re-embedded from a crop", func(t *testing.T) {
		server, uploads := fakeEmbedServer(t, []faceDetection{
			{Embedding: []float32{0, 1}, BBox: []float64{0, 0, 50, 50}, DetScore: 0.6},
			{Embedding: []float32{1, 0}, BBox: []float64{0, 0, 60, 60}, DetScore: 0.95},
		})
		engine := testEngine(server.URL)
		region := Region{Box: image.Rect(100, 50, 200, 150), Score: 0.9}

		emb, err := engine.ExtractEmbedding(context.Background(), frame, region)
		if err != nil {
			t.Fatalf("ExtractEmbedding: %v", err)
		}
		if emb[0] != 1 {
			t.Errorf("embedding = %v, want the highest scoring face", emb)
		}
		// 100x100 box grown by 20% on each side
		if got := (*uploads)[0]; got != image.Pt(140, 140) {
			t.Errorf("crop size = %v, want (140,140)", got)
		}
	})

	t.Run("crop without a face fails alignment", func(t *testing.T) {
		server, _ := fakeEmbedServer(t, nil)
		engine := testEngine(server.URL)
		region := Region{Box: image.Rect(100, 50, 200, 150), Score: 0.9}

		if _, err := engine.ExtractEmbedding(context.Background(), frame, region); !errors.Is(err, ErrAlignmentFailed) {
			t.Errorf("error = %v, want ErrAlignmentFailed", err)
		}
	})
}

func TestCropRegionClampsToFrame(t *testing.T) {
	frame := testFrame(t, 100, 80)

	crop, err := cropRegion(frame.Data, image.Rect(60, 40, 120, 100), 0.5)
	if err != nil {
		t.Fatalf("cropRegion: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(crop))
	if err != nil {
		t.Fatalf("decode crop: %v", err)
	}
	// grown to (30,10)-(150,130), clamped to (30,10)-(100,80)
	if cfg.Width != 70 || cfg.Height != 70 {
		t.Errorf("crop = %dx%d, want 70x70", cfg.Width, cfg.Height)
	}

	if _, err := cropRegion(frame.Data, image.Rect(500, 500, 600, 600), 0); err == nil {
		t.Error("expected error for region outside the frame")
	}
}

func TestInsightFaceFindMatch(t *testing.T) {
	engine := testEngine("http://127.0.0.1:1")
	templates := templatesFrom([]float32{1, 0}, []float32{0, 1})

	if id, ok := engine.FindMatch([]float32{0, 1}, templates); !ok || id != 1 {
		t.Errorf("FindMatch() = (%d, %v), want (1, true)", id, ok)
	}
}
