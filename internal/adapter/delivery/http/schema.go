package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/url-registry/internal/entity"
)

const statusError = "error"

// mappingRequest represents a request to register a URL. An empty short code asks for a generated one.
type mappingRequest struct {
	ShortCode   string `json:"short_code" validate:"omitempty,max=64,excludesall=/?#%"`
	OriginalURL string `json:"original_url" validate:"required"`
	Creator     string `json:"creator" validate:"required"`
}

type createMappingResponse struct {
	ShortCode string `json:"short_code"`
}

type resolveResponse struct {
	OriginalURL string `json:"original_url"`
}

// mappingResponse represents a stored mapping, or the absent record for unknown short codes.
type mappingResponse struct {
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
	Creator     string `json:"creator"`
	CreatedAt   uint64 `json:"created_at"`
	ClickCount  uint64 `json:"click_count"`
}

func toMappingResponse(m entity.Mapping) mappingResponse {
	return mappingResponse{
		ShortCode:   m.ShortCode,
		OriginalURL: m.OriginalURL,
		Creator:     m.Creator,
		CreatedAt:   m.CreatedAt,
		ClickCount:  m.ClickCount,
	}
}

type statsResponse struct {
	TotalMappings uint64 `json:"total_mappings"`
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	invalidShortCodeResponse = errorResponse{
		Status:  statusError,
		Message: "invalid short code",
	}

	unauthorizedResponse = errorResponse{
		Status:  statusError,
		Message: "caller is not authorized to act as creator",
	}

	shortCodeExistsResponse = errorResponse{
		Status:  statusError,
		Message: "short code already in use",
	}

	mappingNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "mapping not found",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "max":
		return "value is too long"
	case "excludesall":
		return "value contains reserved characters"
	default:
		return "invalid value"
	}
}

func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
