package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"khadamat/internal/database"
	"khadamat/internal/domain"
	"khadamat/internal/models"

	"github.com/rs/zerolog"
)

var ErrInvalidProvider = errors.New("invalid provider definition")

type ProviderService struct {
	store  domain.ProviderStore
	logger *zerolog.Logger
}

func NewProviderService(store domain.ProviderStore, logger *zerolog.Logger) *ProviderService {
	return &ProviderService{store: store, logger: logger}
}

func (s *ProviderService) Create(ctx context.Context, p *models.Provider) error {
	if err := validateProvider(p); err != nil {
		return err
	}
	if err := s.store.CreateProvider(ctx, p); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *ProviderService) Update(ctx context.Context, p *models.Provider) error {
	if err := validateProvider(p); err != nil {
		return err
	}
	if err := s.store.UpdateProvider(ctx, p); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *ProviderService) Get(ctx context.Context, id int64) (*models.Provider, error) {
	p, err := s.store.GetProvider(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return p, nil
}

// List returns providers ordered by rating, optionally filtered by
// category.
func (s *ProviderService) List(ctx context.Context, category string) ([]*models.Provider, error) {
	providers, err := s.store.ListProviders(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return providers, nil
}

func validateProvider(p *models.Provider) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProvider)
	}
	if !models.KnownCategory(p.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProvider, p.Category)
	}
	if strings.TrimSpace(p.Phone) == "" && strings.TrimSpace(p.WhatsApp) == "" {
		return fmt.Errorf("%w: phone or whatsapp contact is required", ErrInvalidProvider)
	}
	return nil
}
