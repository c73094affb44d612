package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jerryawoyele/markezon-backend/internal/models"
	"github.com/jerryawoyele/markezon-backend/internal/repository/common"
)

// ErrServiceNotFound возвращается, когда услуга не найдена.
var ErrServiceNotFound = errors.New("service not found")

// ServiceRepository отвечает за каталог услуг исполнителей.
type ServiceRepository struct {
	db *sqlx.DB
}

// NewServiceRepository создаёт экземпляр репозитория.
func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// Create создаёт услугу.
func (r *ServiceRepository) Create(ctx context.Context, service *models.ServiceListing) error {
	query := `
		INSERT INTO services (provider_id, title, description, category, price, photo_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		service.ProviderID, service.Title, service.Description,
		service.Category, service.Price, service.PhotoID,
	).Scan(&service.ID, &service.CreatedAt, &service.UpdatedAt); err != nil {
		return fmt.Errorf("service repository: create %w", err)
	}

	return nil
}

// GetByID возвращает услугу по идентификатору.
func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error) {
	return common.GetByID[models.ServiceListing](ctx, r.db, "services", id, ErrServiceNotFound)
}

// Update обновляет услугу.
func (r *ServiceRepository) Update(ctx context.Context, service *models.ServiceListing) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE services
		SET title = $2, description = $3, category = $4, price = $5, photo_id = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
	`, service.ID, service.Title, service.Description, service.Category,
		service.Price, service.PhotoID, service.IsActive)
	if err != nil {
		return fmt.Errorf("service repository: update %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("service repository: update rows affected %w", err)
	}
	if affected == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// ListByProvider возвращает услуги исполнителя.
func (r *ServiceRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]models.ServiceListing, error) {
	var services []models.ServiceListing
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM services WHERE provider_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, providerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("service repository: list by provider %w", err)
	}
	return services, nil
}

// ListActive возвращает активные услуги, опционально по категории.
func (r *ServiceRepository) ListActive(ctx context.Context, category string, limit, offset int) ([]models.ServiceListing, error) {
	var services []models.ServiceListing
	if category != "" {
		err := r.db.SelectContext(ctx, &services, `
			SELECT * FROM services WHERE is_active = TRUE AND category = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`, category, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("service repository: list active %w", err)
		}
		return services, nil
	}
	err := r.db.SelectContext(ctx, &services, `
		SELECT * FROM services WHERE is_active = TRUE
		ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("service repository: list active %w", err)
	}
	return services, nil
}
