package faceengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"slices"
	"strings"

	"github.com/kozaktomas/doorlock/internal/camera"
	"github.com/kozaktomas/doorlock/internal/config"
	"github.com/kozaktomas/doorlock/internal/constants"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

const defaultEngineURL = "http://localhost:8000"

// faceDetection is a single face returned by the embedding server.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse is the body of POST /embed/face.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// InsightFace is an Engine backed by an InsightFace embedding server.
type InsightFace struct {
	baseURL     string
	model       string
	minDetScore float64
	minFaceSize int
	client      *http.Client

	*Matcher
}

// NewInsightFace creates an engine client from configuration.
func NewInsightFace(cfg config.EngineConfig) *InsightFace {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultEngineURL
	}
	if cfg.MinDetScore <= 0 {
		cfg.MinDetScore = constants.DefaultMinDetScore
	}
	if cfg.MinFaceSize <= 0 {
		cfg.MinFaceSize = constants.DefaultMinFaceSize
	}
	return &InsightFace{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       cfg.Model,
		minDetScore: cfg.MinDetScore,
		minFaceSize: cfg.MinFaceSize,
		client:      &http.Client{Timeout: cfg.Timeout},
		Matcher:     NewMatcher(cfg.MatchThreshold, cfg.HNSWMinTemplates),
	}
}

// Model returns the configured model name.
func (e *InsightFace) Model() string {
	return e.model
}

// Detect implements Engine.
func (e *InsightFace) Detect(ctx context.Context, frame *camera.Frame) ([]Region, error) {
	resp, err := e.embedFaces(ctx, frame.Data, frame.ContentType)
	if err != nil {
		return nil, err
	}

	regions := make([]Region, 0, len(resp.Faces))
	for i, f := range resp.Faces {
		if len(f.BBox) != 4 {
			continue
		}
		regions = append(regions, Region{
			Index:     i,
			Box:       image.Rect(int(f.BBox[0]), int(f.BBox[1]), int(f.BBox[2]), int(f.BBox[3])),
			Score:     f.DetScore,
			Embedding: f.Embedding,
		})
	}
	return regions, nil
}

// ExtractEmbedding implements Engine. Regions that are too small or too
// uncertain fail alignment. A region without a carried embedding is cropped
// out of the frame and embedded on its own.
func (e *InsightFace) ExtractEmbedding(ctx context.Context, frame *camera.Frame, region Region) (gallery.Embedding, error) {
	if region.Box.Dx() < e.minFaceSize || region.Box.Dy() < e.minFaceSize {
		return nil, fmt.Errorf("%w: face %dx%d below minimum size %d",
			ErrAlignmentFailed, region.Box.Dx(), region.Box.Dy(), e.minFaceSize)
	}
	if region.Score < e.minDetScore {
		return nil, fmt.Errorf("%w: detection score %.2f below %.2f", ErrAlignmentFailed, region.Score, e.minDetScore)
	}

	if len(region.Embedding) > 0 {
		return slices.Clone(region.Embedding), nil
	}

	crop, err := cropRegion(frame.Data, region.Box, constants.CropMargin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlignmentFailed, err)
	}

	resp, err := e.embedFaces(ctx, crop, "image/jpeg")
	if err != nil {
		return nil, err
	}

	var best *faceDetection
	for i := range resp.Faces {
		f := &resp.Faces[i]
		if len(f.Embedding) == 0 {
			continue
		}
		if best == nil || f.DetScore > best.DetScore {
			best = f
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no face in cropped region", ErrAlignmentFailed)
	}
	return gallery.Embedding(best.Embedding), nil
}

// embedFaces posts an image to the face endpoint.
func (e *InsightFace) embedFaces(ctx context.Context, imageData []byte, contentType string) (*faceResponse, error) {
	body, err := e.postMultipartImage(ctx, "/embed/face", imageData, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrUnavailable, err)
	}
	return &resp, nil
}

func (e *InsightFace) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, contentType string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	if len(body) == 0 {
		return nil, errors.New("empty response")
	}

	return body, nil
}
