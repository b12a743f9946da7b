// Package entity defines the entities and errors used in the application.
// It includes the Mapping struct, which associates a short code with its
// target URL, along with the sentinel values shared by the registry layers.
package entity

import "errors"

var (
	// ErrShortCodeExists is returned when attempting to create a mapping with a short code that is already in use.
	ErrShortCodeExists = errors.New("short code already in use")
	// ErrMappingNotFound is returned when no mapping exists for the specified short code.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrUnauthorized is returned when the caller cannot prove control of the claimed creator identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidShortCode is returned for short codes that can never name a real mapping.
	ErrInvalidShortCode = errors.New("invalid short code")
	// ErrEntryNotFound is returned by stores when a key is missing or its lifetime has expired.
	ErrEntryNotFound = errors.New("entry not found")
)

const (
	// NotFoundURL is the value resolution yields for unknown short codes.
	NotFoundURL = "NOT_FOUND"
	// PlaceholderCreator is the creator of the absent mapping.
	PlaceholderCreator = "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAD2KM"
)

// Mapping represents a short code registered in the registry.
type Mapping struct {
	ShortCode   string `json:"short_code"`   // ShortCode is the caller-chosen lookup key.
	OriginalURL string `json:"original_url"` // OriginalURL is the target the short code resolves to.
	Creator     string `json:"creator"`      // Creator is the identity that registered the mapping.
	CreatedAt   uint64 `json:"created_at"`   // CreatedAt is the host timestamp of creation, 0 if absent.
	ClickCount  uint64 `json:"click_count"`  // ClickCount is the number of successful resolutions.
}

// AbsentMapping returns the record that stands for a short code with no mapping.
func AbsentMapping() Mapping {
	return Mapping{
		ShortCode:   "",
		OriginalURL: NotFoundURL,
		Creator:     PlaceholderCreator,
		CreatedAt:   0,
		ClickCount:  0,
	}
}

// Exists reports whether m is a stored mapping rather than the absent record.
// ClickCount is checked as well although a non-zero count implies CreatedAt is set.
func (m Mapping) Exists() bool {
	return m.CreatedAt != 0 || m.ClickCount > 0
}
