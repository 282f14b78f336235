package router

import (
	"context"
	"errors"

	"github.com/lehigh-university-libraries/stitcher/internal/compositor"
	"github.com/lehigh-university-libraries/stitcher/internal/images"
	"github.com/lehigh-university-libraries/stitcher/internal/layout"
	"github.com/lehigh-university-libraries/stitcher/internal/messaging"
)

// Describe renders err as a short status message. fallback is used when
// err carries no text of its own.
func Describe(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var (
		userErr   *UserInputError
		fetchErr  *images.FetchError
		decodeErr *images.DecodeError
		encodeErr *compositor.EncodeError
		remoteErr *messaging.RemoteError
	)
	switch {
	case errors.As(err, &userErr):
		return userErr.Message
	case layout.IsEmptyInput(err):
		return "No images selected to stitch"
	case errors.As(err, &fetchErr):
		return fetchErr.Error()
	case errors.As(err, &decodeErr):
		return decodeErr.Error()
	case errors.As(err, &encodeErr):
		return "Unable to create the stitched image"
	case errors.As(err, &remoteErr):
		if remoteErr.Message != "" {
			return remoteErr.Message
		}
	case errors.Is(err, context.DeadlineExceeded):
		return fallback + ": timed out"
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
