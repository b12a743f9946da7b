package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/url-registry/internal/entity"
)

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type registry interface {
	CreateMapping(ctx context.Context, shortCode, originalURL, creator string) (string, error)
	ShortenURL(ctx context.Context, originalURL, creator string) (string, error)
	Resolve(ctx context.Context, shortCode string) (string, error)
	GetMapping(ctx context.Context, shortCode string) (*entity.Mapping, error)
	GetTotalMappings(ctx context.Context) (uint64, error)
}

type mappingHandler struct {
	registry registry
	validate *validator.Validate
}

func newMappingHandler(registry registry, validate *validator.Validate) *mappingHandler {
	return &mappingHandler{
		registry: registry,
		validate: validate,
	}
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, serverErrorResponse)
}

func (h *mappingHandler) createMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return
	}

	var (
		shortCode string
		err       error
	)

	if req.ShortCode == "" {
		shortCode, err = h.registry.ShortenURL(r.Context(), req.OriginalURL, req.Creator)
	} else {
		shortCode, err = h.registry.CreateMapping(r.Context(), req.ShortCode, req.OriginalURL, req.Creator)
	}

	if err != nil {
		switch {
		case errors.Is(err, entity.ErrUnauthorized):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, unauthorizedResponse)
		case errors.Is(err, entity.ErrShortCodeExists):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, shortCodeExistsResponse)
		case errors.Is(err, entity.ErrInvalidShortCode):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, invalidShortCodeResponse)
		default:
			serverError(w, r, err)
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, createMappingResponse{ShortCode: shortCode})
}

func (h *mappingHandler) resolve(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.registry.Resolve(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrMappingNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resolveResponse{OriginalURL: entity.NotFoundURL})
			return
		}

		serverError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resolveResponse{OriginalURL: url})
}

func (h *mappingHandler) redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	url, err := h.registry.Resolve(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrMappingNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, mappingNotFoundResponse)
			return
		}

		serverError(w, r, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (h *mappingHandler) getMapping(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	m, err := h.registry.GetMapping(r.Context(), shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrMappingNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, toMappingResponse(entity.AbsentMapping()))
			return
		}

		serverError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toMappingResponse(*m))
}

func (h *mappingHandler) getTotalMappings(w http.ResponseWriter, r *http.Request) {
	total, err := h.registry.GetTotalMappings(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, statsResponse{TotalMappings: total})
}
