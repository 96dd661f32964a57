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

var ErrInvalidService = errors.New("invalid service definition")

// CatalogService manages the service and category catalog the booking
// form is rendered from.
type CatalogService struct {
	store  domain.CatalogStore
	logger *zerolog.Logger
}

func NewCatalogService(store domain.CatalogStore, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

func (s *CatalogService) CreateService(ctx context.Context, svc *models.Service) error {
	if err := validateService(svc); err != nil {
		return err
	}
	if err := s.store.CreateService(ctx, svc); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *CatalogService) UpdateService(ctx context.Context, svc *models.Service) error {
	if err := validateService(svc); err != nil {
		return err
	}
	if err := s.store.UpdateService(ctx, svc); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *CatalogService) DeleteService(ctx context.Context, id int64) error {
	if err := s.store.DeleteService(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *CatalogService) GetService(ctx context.Context, id int64) (*models.Service, error) {
	svc, err := s.store.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return svc, nil
}

// ListServices returns active services, optionally filtered by
// category, in catalog sort order.
func (s *CatalogService) ListServices(ctx context.Context, category string) ([]*models.Service, error) {
	services, err := s.store.ListServices(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return services, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return categories, nil
}

// SeedCategories upserts the configured category set at startup so the
// catalog survives an empty database.
func (s *CatalogService) SeedCategories(ctx context.Context, categories []models.Category) error {
	for i := range categories {
		if err := s.store.UpsertCategory(ctx, &categories[i]); err != nil {
			return fmt.Errorf("seed category %s: %w", categories[i].Code, err)
		}
	}
	return nil
}

func validateService(svc *models.Service) error {
	if strings.TrimSpace(svc.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidService)
	}
	if !models.KnownCategory(svc.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidService, svc.Category)
	}
	seen := make(map[string]bool, len(svc.Questions))
	for _, q := range svc.Questions {
		if strings.TrimSpace(q.ID) == "" {
			return fmt.Errorf("%w: question id is required", ErrInvalidService)
		}
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidService, q.ID)
		}
		seen[q.ID] = true
		switch q.Type {
		case models.QuestionText, models.QuestionNumber, models.QuestionChoice, models.QuestionMultiChoice, models.QuestionDate:
		default:
			return fmt.Errorf("%w: unknown question type %q", ErrInvalidService, q.Type)
		}
		if (q.Type == models.QuestionChoice || q.Type == models.QuestionMultiChoice) && len(q.Options) == 0 {
			return fmt.Errorf("%w: question %q needs options", ErrInvalidService, q.ID)
		}
	}
	return nil
}
