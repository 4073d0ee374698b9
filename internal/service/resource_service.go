package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResourceService каталог ресурсов и их правил расписания
type ResourceService struct {
	store    Store
	settings SettingsProvider
	rules    *RuleCache
	logger   *zap.Logger
	now      func() time.Time
}

func NewResourceService(store Store, settings SettingsProvider, rules *RuleCache, logger *zap.Logger) *ResourceService {
	return &ResourceService{
		store:    store,
		settings: settings,
		rules:    rules,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateResource создаёт ресурс. Вместимость 0 берётся из настроек.
func (s *ResourceService) CreateResource(ctx context.Context, scope model.Scope, input model.ResourceInput) (*model.Resource, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: resource name is required", model.ErrValidation)
	}
	if strings.TrimSpace(input.ResourceType) == "" {
		return nil, fmt.Errorf("%w: resource type is required", model.ErrValidation)
	}

	capacity := input.CapacityPerSlot
	if capacity == 0 {
		settings, err := s.settings.Settings(ctx, scope)
		if err != nil {
			return nil, err
		}
		capacity = settings.Capacity
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity per slot must be at least 1", model.ErrValidation)
	}

	now := s.now()
	resource := &model.Resource{
		ID:              uuid.New(),
		OrgID:           scope.OrgID,
		BotID:           scope.BotID,
		ResourceType:    input.ResourceType,
		Name:            input.Name,
		Code:            input.Code,
		Description:     input.Description,
		CapacityPerSlot: capacity,
		Metadata:        input.Metadata,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.store.WithinTx(ctx, "", func(ctx context.Context, tx Tx) error {
		if err := tx.InsertResource(ctx, resource); err != nil {
			return fmt.Errorf("insert resource: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Resource created",
		zap.String("resource_id", resource.ID.String()),
		zap.String("scope", scope.String()),
		zap.String("type", resource.ResourceType),
		zap.Int("capacity", resource.CapacityPerSlot),
	)

	return resource, nil
}

// UpdateResource применяет частичное обновление. Деактивация удаляет правила
// расписания ресурса; существующие бронирования не трогаются.
func (s *ResourceService) UpdateResource(ctx context.Context, scope model.Scope, id uuid.UUID, patch model.ResourcePatch) (*model.Resource, error) {
	var (
		resource     *model.Resource
		rulesRemoved int64
	)
	err := s.store.WithinTx(ctx, "", func(ctx context.Context, tx Tx) error {
		var err error
		resource, err = loadResource(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		wasActive := resource.IsActive

		if patch.Name != nil {
			if strings.TrimSpace(*patch.Name) == "" {
				return fmt.Errorf("%w: resource name is required", model.ErrValidation)
			}
			resource.Name = *patch.Name
		}
		if patch.Code != nil {
			resource.Code = patch.Code
		}
		if patch.Description != nil {
			resource.Description = patch.Description
		}
		if patch.CapacityPerSlot != nil {
			if *patch.CapacityPerSlot < 1 {
				return fmt.Errorf("%w: capacity per slot must be at least 1", model.ErrValidation)
			}
			resource.CapacityPerSlot = *patch.CapacityPerSlot
		}
		if patch.Metadata != nil {
			resource.Metadata = patch.Metadata
		}
		if patch.IsActive != nil {
			resource.IsActive = *patch.IsActive
		}
		resource.UpdatedAt = s.now()

		if err := tx.UpdateResource(ctx, resource); err != nil {
			return fmt.Errorf("update resource: %w", err)
		}

		if wasActive && !resource.IsActive {
			rulesRemoved, err = tx.DeleteRulesByResource(ctx, id)
			if err != nil {
				return fmt.Errorf("delete resource rules: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.rules.Invalidate(id)

	s.logger.Info("Resource updated",
		zap.String("resource_id", id.String()),
		zap.Bool("is_active", resource.IsActive),
		zap.Int64("rules_removed", rulesRemoved),
	)

	return resource, nil
}

// DeactivateResource скрывает ресурс из выдачи слотов
func (s *ResourceService) DeactivateResource(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.Resource, error) {
	inactive := false
	return s.UpdateResource(ctx, scope, id, model.ResourcePatch{IsActive: &inactive})
}

func (s *ResourceService) GetResource(ctx context.Context, scope model.Scope, id uuid.UUID) (*model.Resource, error) {
	return loadResource(ctx, s.store, scope, id)
}

func (s *ResourceService) ListResources(ctx context.Context, scope model.Scope, activeOnly bool) ([]*model.Resource, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	resources, err := s.store.ListResources(ctx, scope, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// AddWeeklyRule добавляет недельное правило (0 = воскресенье)
func (s *ResourceService) AddWeeklyRule(ctx context.Context, scope model.Scope, resourceID uuid.UUID, weekday time.Weekday, input model.RuleInput) (model.ScheduleRule, error) {
	if weekday < time.Sunday || weekday > time.Saturday {
		return nil, fmt.Errorf("%w: weekday must be in 0..6, got %d", model.ErrValidation, weekday)
	}
	return s.addRule(ctx, scope, resourceID, input, func(base model.RuleBase) model.ScheduleRule {
		return model.WeeklyRule{RuleBase: base, Weekday: weekday}
	})
}

// AddDateOverride добавляет правило на конкретную дату; на эту дату
// недельные правила ресурса больше не применяются
func (s *ResourceService) AddDateOverride(ctx context.Context, scope model.Scope, resourceID uuid.UUID, date time.Time, input model.RuleInput) (model.ScheduleRule, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: override date is required", model.ErrValidation)
	}
	return s.addRule(ctx, scope, resourceID, input, func(base model.RuleBase) model.ScheduleRule {
		return model.DateOverrideRule{RuleBase: base, Date: model.DateOf(date)}
	})
}

func (s *ResourceService) addRule(
	ctx context.Context,
	scope model.Scope,
	resourceID uuid.UUID,
	input model.RuleInput,
	build func(model.RuleBase) model.ScheduleRule,
) (model.ScheduleRule, error) {
	slotMinutes := input.SlotMinutes
	if slotMinutes == 0 {
		settings, err := s.settings.Settings(ctx, scope)
		if err != nil {
			return nil, err
		}
		slotMinutes = settings.SlotMinutes
	}

	base := model.RuleBase{
		ID:          uuid.New(),
		ResourceID:  resourceID,
		Start:       input.Window.Start,
		End:         input.Window.End,
		SlotMinutes: slotMinutes,
		Available:   !input.Unavailable,
		CreatedAt:   s.now(),
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	rule := build(base)

	var created model.ScheduleRule
	err := s.store.WithinTx(ctx, "rules:"+resourceID.String(), func(ctx context.Context, tx Tx) error {
		if _, err := loadActiveResource(ctx, tx, scope, resourceID); err != nil {
			return err
		}

		existing, err := tx.ListRules(ctx, resourceID)
		if err != nil {
			return fmt.Errorf("list rules: %w", err)
		}
		for _, other := range existing {
			if sameSlot(other, rule) {
				return fmt.Errorf("%w: rule starting at %s already exists", model.ErrValidation, base.Start)
			}
		}

		created, err = tx.InsertRule(ctx, rule)
		if err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.rules.Invalidate(resourceID)

	s.logger.Info("Schedule rule added",
		zap.String("rule_id", created.Base().ID.String()),
		zap.String("resource_id", resourceID.String()),
		zap.String("window", created.Base().Window().String()),
		zap.Bool("available", created.Base().Available),
	)

	return created, nil
}

// sameSlot правила одного вида на тот же день (или дату) с тем же началом
func sameSlot(a, b model.ScheduleRule) bool {
	if a.Base().Start != b.Base().Start {
		return false
	}
	switch ra := a.(type) {
	case model.WeeklyRule:
		rb, ok := b.(model.WeeklyRule)
		return ok && ra.Weekday == rb.Weekday
	case model.DateOverrideRule:
		rb, ok := b.(model.DateOverrideRule)
		return ok && model.DateOf(ra.Date).Equal(model.DateOf(rb.Date))
	}
	return false
}

func (s *ResourceService) ListRules(ctx context.Context, scope model.Scope, resourceID uuid.UUID) ([]model.ScheduleRule, error) {
	if _, err := loadResource(ctx, s.store, scope, resourceID); err != nil {
		return nil, err
	}
	rules, err := s.store.ListRules(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// DeleteRule удаляет правило расписания
func (s *ResourceService) DeleteRule(ctx context.Context, scope model.Scope, ruleID uuid.UUID) error {
	var resourceID uuid.UUID
	err := s.store.WithinTx(ctx, "", func(ctx context.Context, tx Tx) error {
		rule, err := tx.GetRule(ctx, ruleID)
		if err != nil {
			return fmt.Errorf("get rule: %w", err)
		}
		if rule == nil {
			return fmt.Errorf("rule %s: %w", ruleID, model.ErrNotFound)
		}
		resourceID = rule.Base().ResourceID

		if _, err := loadResource(ctx, tx, scope, resourceID); err != nil {
			return err
		}

		deleted, err := tx.DeleteRule(ctx, ruleID)
		if err != nil {
			return fmt.Errorf("delete rule: %w", err)
		}
		if !deleted {
			return fmt.Errorf("rule %s: %w", ruleID, model.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.rules.Invalidate(resourceID)

	s.logger.Info("Schedule rule deleted",
		zap.String("rule_id", ruleID.String()),
		zap.String("resource_id", resourceID.String()),
	)
	return nil
}

// WithClock подменяет источник текущего времени
func (s *ResourceService) WithClock(now func() time.Time) *ResourceService {
	s.now = now
	return s
}
