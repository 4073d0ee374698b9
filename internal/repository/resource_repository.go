package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ResourceRepository struct {
	base.Repository
}

func NewResourceRepository(db base.DBTX) *ResourceRepository {
	return &ResourceRepository{Repository: base.NewRepository(db)}
}

const resourceColumns = `id, org_id, bot_id, resource_type, resource_name, resource_code, description,
		capacity_per_slot, metadata, is_active, created_at, updated_at`

func scanResource(row pgx.Row) (*model.Resource, error) {
	var r model.Resource
	err := row.Scan(
		&r.ID,
		&r.OrgID,
		&r.BotID,
		&r.ResourceType,
		&r.Name,
		&r.Code,
		&r.Description,
		&r.CapacityPerSlot,
		&r.Metadata,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create создаёт ресурс
func (r *ResourceRepository) Create(ctx context.Context, resource *model.Resource) error {
	query := `
		INSERT INTO booking_resources (id, org_id, bot_id, resource_type, resource_name, resource_code,
			description, capacity_per_slot, metadata, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.DB().QueryRow(
		ctx, query,
		resource.ID,
		resource.OrgID,
		resource.BotID,
		resource.ResourceType,
		resource.Name,
		resource.Code,
		resource.Description,
		resource.CapacityPerSlot,
		resource.Metadata,
		resource.IsActive,
	).Scan(&resource.CreatedAt, &resource.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	return nil
}

// GetByID получает ресурс по ID
func (r *ResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM booking_resources WHERE id = $1`

	resource, err := scanResource(r.DB().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resource by id: %w", err)
	}

	return resource, nil
}

// ListByScope ресурсы области
func (r *ResourceRepository) ListByScope(ctx context.Context, scope model.Scope, activeOnly bool) ([]*model.Resource, error) {
	query := `
		SELECT ` + resourceColumns + `
		FROM booking_resources
		WHERE org_id = $1 AND bot_id = $2 AND (is_active OR NOT $3)
		ORDER BY resource_name, id
	`

	rows, err := r.DB().Query(ctx, query, scope.OrgID, scope.BotID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []*model.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resources = append(resources, resource)
	}

	return resources, rows.Err()
}

// Update сохраняет изменяемые поля ресурса
func (r *ResourceRepository) Update(ctx context.Context, resource *model.Resource) error {
	query := `
		UPDATE booking_resources
		SET resource_name = $2,
		    resource_code = $3,
		    description = $4,
		    capacity_per_slot = $5,
		    metadata = $6,
		    is_active = $7,
		    updated_at = $8
		WHERE id = $1
	`

	_, err := r.DB().Exec(
		ctx, query,
		resource.ID,
		resource.Name,
		resource.Code,
		resource.Description,
		resource.CapacityPerSlot,
		resource.Metadata,
		resource.IsActive,
		resource.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update resource: %w", err)
	}

	return nil
}
