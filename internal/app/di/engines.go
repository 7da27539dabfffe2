// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"parking_backend/internal/feature/platedetection/adapters/gemini"
	"parking_backend/internal/feature/platedetection/adapters/inference"
	"parking_backend/internal/feature/platedetection/adapters/onnx"
	"parking_backend/internal/feature/platedetection/adapters/rekognition"
	"parking_backend/internal/feature/platedetection/adapters/tesseract"
	"parking_backend/internal/feature/platedetection/adapters/vision"
	"parking_backend/internal/feature/platedetection/usecase"
	"parking_backend/internal/platform/env"
	platformhttp "parking_backend/internal/platform/http"
	"parking_backend/internal/platform/http/handler"
	"parking_backend/internal/shared/ratelimiter"
)

// Detector backends selectable with DETECTOR_BACKEND.
const (
	DetectorONNX   = "onnx"
	DetectorRemote = "remote"
	DetectorVision = "vision"
)

// Recognizer backends selectable with RECOGNIZER_BACKEND.
const (
	RecognizerTesseract   = "tesseract"
	RecognizerVision      = "vision"
	RecognizerGemini      = "gemini"
	RecognizerRekognition = "rekognition"
)

// Engines holds the detector and recognizer the pipeline runs with, plus what
// must be released at shutdown and probed by the readiness endpoint.
type Engines struct {
	Detector   usecase.Detector
	Recognizer usecase.Recognizer
	Checks     map[string]handler.Check

	closers []func() error
}

// Close releases every engine that holds native or network resources.
func (e *Engines) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	return errors.Join(errs...)
}

// NewEngines builds the detector and recognizer selected by DETECTOR_BACKEND
// (onnx, remote, vision) and RECOGNIZER_BACKEND (tesseract, vision, gemini, rekognition).
// The detector model is loaded exactly once here and shared by every request.
func NewEngines(ctx context.Context) (*Engines, error) {
	e := &Engines{Checks: map[string]handler.Check{}}

	det, err := e.newDetector(ctx, strings.ToLower(env.String("DETECTOR_BACKEND", DetectorONNX)))
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.Detector = det

	rec, err := e.newRecognizer(ctx, strings.ToLower(env.String("RECOGNIZER_BACKEND", RecognizerTesseract)))
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.Recognizer = rec
	return e, nil
}

func (e *Engines) newDetector(ctx context.Context, backend string) (usecase.Detector, error) {
	slog.Info("initializing detector", "backend", backend)
	switch backend {
	case DetectorONNX:
		cfg := onnx.LoadConfig()
		client := platformhttp.NewHTTPClient(env.Duration("MODEL_DOWNLOAD_TIMEOUT", 10*time.Minute))
		if err := onnx.EnsureModel(ctx, client, cfg.ModelPath, cfg.ModelURL); err != nil {
			return nil, err
		}
		d, err := onnx.NewDetector(cfg)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, d.Close)
		return d, nil
	case DetectorRemote:
		baseURL := env.String("INFERENCE_URL", "")
		if baseURL == "" {
			return nil, errors.New("INFERENCE_URL is required for the remote detector")
		}
		d := inference.NewRemoteDetector(baseURL, platformhttp.NewHTTPClient(env.Duration("INFERENCE_TIMEOUT", 30*time.Second)))
		e.Checks["inference"] = d.CheckHealth
		return d, nil
	case DetectorVision:
		c, err := vision.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, c.Close)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown DETECTOR_BACKEND %q", backend)
	}
}

func (e *Engines) newRecognizer(ctx context.Context, backend string) (usecase.Recognizer, error) {
	slog.Info("initializing recognizer", "backend", backend)
	switch backend {
	case RecognizerTesseract:
		r, err := tesseract.NewRecognizer(env.String("TESSERACT_LANG", "eng"))
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, r.Close)
		return r, nil
	case RecognizerVision:
		// Reuse the detector's client when both stages run on Vision.
		if c, ok := e.Detector.(*vision.Client); ok {
			return c, nil
		}
		c, err := vision.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, c.Close)
		return c, nil
	case RecognizerGemini:
		limiter := ratelimiter.NewRateLimiter(env.Int("GEMINI_RPM", 60), time.Minute)
		return gemini.NewPlateReader(ctx, env.String("GEMINI_MODEL", gemini.DefaultModel), limiter)
	case RecognizerRekognition:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(env.String("AWS_REGION", "us-east-1")))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return rekognition.NewRecognizer(awsCfg), nil
	default:
		return nil, fmt.Errorf("unknown RECOGNIZER_BACKEND %q", backend)
	}
}
