// Package domain defines domain-level errors for the platedetection feature.
package domain

import "errors"

// Pipeline errors. Only ErrDecode aborts a request; the others are absorbed by the
// pipeline, logged, and degrade the result for a single stage or box.
var (
	// ErrDecode indicates that the uploaded bytes are empty or not a recognizable image.
	ErrDecode = errors.New("image could not be decoded")

	// ErrDetection indicates that the detector failed; the image is treated as having no detections.
	ErrDetection = errors.New("plate detection failed")

	// ErrDegenerateCrop indicates a box with zero or negative area after clipping.
	ErrDegenerateCrop = errors.New("degenerate plate crop")

	// ErrRecognition indicates that the OCR engine failed; the plate text is treated as absent.
	ErrRecognition = errors.New("plate text recognition failed")
)
