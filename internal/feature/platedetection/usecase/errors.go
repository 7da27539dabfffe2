package usecase

import "errors"

var (
	// ErrImageTooLarge is returned when an upload exceeds MaxImageSize.
	ErrImageTooLarge = errors.New("image exceeds maximum size")

	// ErrJobNotFound is returned when a job ID is unknown or expired.
	ErrJobNotFound = errors.New("job not found")

	// ErrQueueFull is returned when the async queue cannot accept more work.
	ErrQueueFull = errors.New("job queue is full")

	// ErrQueueClosed is returned after the queue has been shut down.
	ErrQueueClosed = errors.New("job queue is closed")

	// ErrInvalidLimit is returned when a listing limit is out of range.
	ErrInvalidLimit = errors.New("limit must be between 1 and 500")
)
