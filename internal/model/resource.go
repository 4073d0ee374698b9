package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Resource бронируемая сущность: сотрудник, кабинет, оборудование
type Resource struct {
	ID              uuid.UUID       `json:"id"`
	OrgID           string          `json:"org_id"`
	BotID           string          `json:"bot_id"`
	ResourceType    string          `json:"resource_type"` // doctor, room, equipment, staff, service
	Name            string          `json:"resource_name"`
	Code            *string         `json:"resource_code,omitempty"`
	Description     *string         `json:"description,omitempty"`
	CapacityPerSlot int             `json:"capacity_per_slot"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Scope возвращает область, которой принадлежит ресурс
func (r *Resource) Scope() Scope {
	return Scope{OrgID: r.OrgID, BotID: r.BotID}
}

// ResourceInput данные для создания ресурса
type ResourceInput struct {
	ResourceType    string
	Name            string
	Code            *string
	Description     *string
	CapacityPerSlot int // 0 — взять из настроек по умолчанию
	Metadata        json.RawMessage
}

// ResourcePatch частичное обновление ресурса; nil поля не меняются
type ResourcePatch struct {
	Name            *string
	Code            *string
	Description     *string
	CapacityPerSlot *int
	Metadata        json.RawMessage
	IsActive        *bool
}
