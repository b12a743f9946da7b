// Package usecase implements the mapping registry: creation with duplicate
// rejection, resolution with click counting, and the aggregate counter, all
// kept alive in the store by a lifetime renewal policy.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/vadimbarashkov/url-registry/internal/entity"
	"github.com/vadimbarashkov/url-registry/internal/metrics"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

const (
	mappingKeyPrefix = "mapping:"
	totalKey         = "registry:total"

	defaultShortCodeLength = 7
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	ExtendTTL(ctx context.Context, key string, threshold, extendTo time.Duration) error
}

type verifier interface {
	RequireAuth(ctx context.Context, identity string) error
}

type clock interface {
	Now() uint64
}

// Registry owns the mapping state machine. Operations run one at a time:
// every read-modify-write sequence holds mu for its whole duration.
type Registry struct {
	mu              sync.Mutex
	store           store
	verifier        verifier
	clock           clock
	lifetime        Lifetime
	shortCodeLength int
	logger          *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLifetime sets the lifetime renewal policy applied after each mutation.
func WithLifetime(l Lifetime) Option {
	return func(r *Registry) {
		r.lifetime = l
	}
}

// WithShortCodeLength sets the length of generated short codes.
func WithShortCodeLength(n int) Option {
	return func(r *Registry) {
		r.shortCodeLength = n
	}
}

// WithLogger sets the logger used for registry events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a Registry on top of the given store, identity verifier and clock.
func New(store store, verifier verifier, clock clock, opts ...Option) *Registry {
	r := &Registry{
		store:           store,
		verifier:        verifier,
		clock:           clock,
		lifetime:        DefaultLifetime(),
		shortCodeLength: defaultShortCodeLength,
		logger:          slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func mappingKey(shortCode string) string {
	return mappingKeyPrefix + shortCode
}

// CreateMapping registers originalURL under shortCode on behalf of creator.
// The caller must control the creator identity. Creation fails without
// touching the store if the short code is already in use.
func (r *Registry) CreateMapping(ctx context.Context, shortCode, originalURL, creator string) (string, error) {
	const op = "usecase.Registry.CreateMapping"

	if err := r.verifier.RequireAuth(ctx, creator); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if shortCode == "" {
		return "", fmt.Errorf("%s: %w", op, entity.ErrInvalidShortCode)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.lookup(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if existing.Exists() {
		r.logger.Warn("short code already exists", slog.String("short_code", shortCode))
		return "", fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	total, err := r.total(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	m := entity.Mapping{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		Creator:     creator,
		CreatedAt:   r.clock.Now(),
		ClickCount:  0,
	}

	if err := r.save(ctx, m); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := r.store.Set(ctx, totalKey, []byte(strconv.FormatUint(total+1, 10))); err != nil {
		return "", fmt.Errorf("%s: failed to update total: %w", op, err)
	}

	if err := r.renew(ctx, mappingKey(shortCode)); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	metrics.MappingsCreated.Inc()
	r.logger.Info("short url created", slog.String("short_code", shortCode), slog.String("creator", creator))

	return shortCode, nil
}

// ShortenURL registers originalURL under a generated short code.
// On collision it retries with a longer code.
func (r *Registry) ShortenURL(ctx context.Context, originalURL, creator string) (string, error) {
	const op = "usecase.Registry.ShortenURL"
	const maxRetries = 5

	length := r.shortCodeLength

	for i := 0; i < maxRetries; i++ {
		shortCode, err := gonanoid.New(length)
		if err != nil {
			return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		code, err := r.CreateMapping(ctx, shortCode, originalURL, creator)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				length++
				continue
			}

			return "", fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return code, nil
	}

	return "", fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// Resolve returns the target of shortCode and counts the access.
// Unknown short codes yield entity.ErrMappingNotFound and change nothing.
func (r *Registry) Resolve(ctx context.Context, shortCode string) (string, error) {
	const op = "usecase.Registry.Resolve"

	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.lookup(ctx, shortCode)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if m.CreatedAt == 0 {
		metrics.Resolutions.WithLabelValues(metrics.ResultNotFound).Inc()
		r.logger.Debug("url not found", slog.String("short_code", shortCode))
		return "", fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
	}

	m.ClickCount++

	if err := r.save(ctx, m); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := r.renew(ctx, mappingKey(shortCode)); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	metrics.Resolutions.WithLabelValues(metrics.ResultFound).Inc()
	r.logger.Debug("url resolved", slog.String("short_code", shortCode), slog.Uint64("clicks", m.ClickCount))

	return m.OriginalURL, nil
}

// ResolveOrSentinel behaves like Resolve but reports unknown short codes
// as entity.NotFoundURL instead of an error.
func (r *Registry) ResolveOrSentinel(ctx context.Context, shortCode string) (string, error) {
	url, err := r.Resolve(ctx, shortCode)
	if errors.Is(err, entity.ErrMappingNotFound) {
		return entity.NotFoundURL, nil
	}

	return url, err
}

// GetMapping returns the mapping stored under shortCode without counting an access.
func (r *Registry) GetMapping(ctx context.Context, shortCode string) (*entity.Mapping, error) {
	const op = "usecase.Registry.GetMapping"

	m, err := r.LookupMapping(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if m.CreatedAt == 0 {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
	}

	return &m, nil
}

// LookupMapping returns the mapping stored under shortCode, or entity.AbsentMapping if there is none.
func (r *Registry) LookupMapping(ctx context.Context, shortCode string) (entity.Mapping, error) {
	const op = "usecase.Registry.LookupMapping"

	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.lookup(ctx, shortCode)
	if err != nil {
		return entity.Mapping{}, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

// GetTotalMappings returns how many mappings have ever been created.
func (r *Registry) GetTotalMappings(ctx context.Context) (uint64, error) {
	const op = "usecase.Registry.GetTotalMappings"

	r.mu.Lock()
	defer r.mu.Unlock()

	total, err := r.total(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return total, nil
}

func (r *Registry) lookup(ctx context.Context, shortCode string) (entity.Mapping, error) {
	data, err := r.store.Get(ctx, mappingKey(shortCode))
	if err != nil {
		if errors.Is(err, entity.ErrEntryNotFound) {
			return entity.AbsentMapping(), nil
		}

		return entity.Mapping{}, fmt.Errorf("failed to get mapping: %w", err)
	}

	var m entity.Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return entity.Mapping{}, fmt.Errorf("failed to decode mapping: %w", err)
	}

	return m, nil
}

func (r *Registry) save(ctx context.Context, m entity.Mapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}

	if err := r.store.Set(ctx, mappingKey(m.ShortCode), data); err != nil {
		return fmt.Errorf("failed to set mapping: %w", err)
	}

	return nil
}

func (r *Registry) total(ctx context.Context) (uint64, error) {
	data, err := r.store.Get(ctx, totalKey)
	if err != nil {
		if errors.Is(err, entity.ErrEntryNotFound) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to get total: %w", err)
	}

	total, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to decode total: %w", err)
	}

	return total, nil
}
