package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/pkg/apperror"
	"github.com/jerryawoyele/markezon-backend/internal/repository"
	"github.com/jerryawoyele/markezon-backend/internal/validation"
)

// CatalogRepository описывает хранилище каталога услуг.
type CatalogRepository interface {
	Create(ctx context.Context, service *models.ServiceListing) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error)
	Update(ctx context.Context, service *models.ServiceListing) error
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.ServiceListing, error)
	ListActive(ctx context.Context, category string, limit, offset int) ([]models.ServiceListing, error)
}

// CatalogService управляет каталогом услуг исполнителей.
type CatalogService struct {
	repo CatalogRepository
}

// ServiceListingInput — данные создания или обновления услуги.
type ServiceListingInput struct {
	Title       string
	Description *string
	Category    *string
	Price       float64
	PhotoID     *uuid.UUID
	IsActive    *bool
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// CreateService публикует услугу. Доступно бизнес-аккаунтам и администраторам.
func (s *CatalogService) CreateService(ctx context.Context, providerID uuid.UUID, providerRole string, in ServiceListingInput) (*models.ServiceListing, error) {
	if providerRole != models.RoleBusiness && providerRole != models.RoleAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "публиковать услуги могут только бизнес-аккаунты")
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	listing := &models.ServiceListing{
		ProviderID:  providerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Price:       in.Price,
		PhotoID:     in.PhotoID,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// GetService возвращает услугу по идентификатору.
func (s *CatalogService) GetService(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error) {
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, err
	}
	return listing, nil
}

// UpdateService обновляет услугу. Доступно только её владельцу.
func (s *CatalogService) UpdateService(ctx context.Context, actorID, serviceID uuid.UUID, in ServiceListingInput) (*models.ServiceListing, error) {
	listing, err := s.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if listing.ProviderID != actorID {
		return nil, apperror.ErrForbidden
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	listing.Title = in.Title
	listing.Description = in.Description
	listing.Category = in.Category
	listing.Price = in.Price
	listing.PhotoID = in.PhotoID
	if in.IsActive != nil {
		listing.IsActive = *in.IsActive
	}

	if err := s.repo.Update(ctx, listing); err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, err
	}
	return listing, nil
}

// ListByProvider возвращает услуги исполнителя.
func (s *CatalogService) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.ServiceListing, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByProvider(ctx, providerID, limit, offset)
}

// ListActive возвращает активные услуги, опционально по категории.
func (s *CatalogService) ListActive(ctx context.Context, category string, limit, offset int) ([]models.ServiceListing, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListActive(ctx, category, limit, offset)
}

func (s *CatalogService) validateInput(in ServiceListingInput) error {
	if err := validation.ValidateServiceTitle(in.Title); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.Description != nil && *in.Description != "" {
		if err := validation.ValidateServiceDescription(*in.Description); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if err := validation.ValidateAmount(in.Price); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
