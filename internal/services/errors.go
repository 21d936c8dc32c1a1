package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFetchFailed          = errors.New("fetch failed")
	ErrUploadFailed         = errors.New("upload failed")
	ErrNoFileSelected       = errors.New("no file selected")
	ErrDeleteFailed         = errors.New("delete failed")
	ErrMetadataFetchFailed  = errors.New("metadata fetch failed")
	ErrJobStatusFetchFailed = errors.New("job status fetch failed")
	ErrConfiguration        = errors.New("configuration error")
	ErrInvalidInput         = errors.New("invalid input")
)

// Wrap builds an error message that includes operation context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, operation, subject, message string, err error) error {
	detail := buildDetail(operation, subject, message)
	if marker == nil {
		marker = ErrFetchFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserMessage maps a classified error to the short alert text shown to users.
// Unclassified errors fall back to their own message.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoFileSelected):
		return "No file selected!"
	case errors.Is(err, ErrUploadFailed):
		return "Failed to upload video."
	case errors.Is(err, ErrDeleteFailed):
		return "Failed to delete video."
	case errors.Is(err, ErrMetadataFetchFailed):
		return "Failed to fetch metadata."
	case errors.Is(err, ErrJobStatusFetchFailed):
		return "Failed to fetch job status."
	case errors.Is(err, ErrFetchFailed):
		return "Failed to fetch videos."
	default:
		return strings.TrimSpace(err.Error())
	}
}

// Kind returns the name of the marker attached to err, or "unclassified".
func Kind(err error) string {
	for _, marker := range []error{
		ErrNoFileSelected,
		ErrUploadFailed,
		ErrDeleteFailed,
		ErrMetadataFetchFailed,
		ErrJobStatusFetchFailed,
		ErrFetchFailed,
		ErrConfiguration,
		ErrInvalidInput,
	} {
		if errors.Is(err, marker) {
			return marker.Error()
		}
	}
	return "unclassified"
}

func buildDetail(operation, subject, message string) string {
	parts := make([]string, 0, 3)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if subject = strings.TrimSpace(subject); subject != "" {
		parts = append(parts, subject)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "request failure"
	}
	return strings.Join(parts, ": ")
}
