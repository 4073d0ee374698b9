package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/Freeeeeet/booking_engine/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ScheduleRuleRepository правила расписания (таблица resource_schedules).
// В строке задан ровно один из day_of_week / specific_date, по нему
// выбирается вариант правила.
type ScheduleRuleRepository struct {
	base.Repository
}

func NewScheduleRuleRepository(db base.DBTX) *ScheduleRuleRepository {
	return &ScheduleRuleRepository{Repository: base.NewRepository(db)}
}

const ruleColumns = `id, resource_id, day_of_week, specific_date, start_time, end_time,
		slot_duration_minutes, is_available, created_at`

func scanRule(row pgx.Row) (model.ScheduleRule, error) {
	var (
		b         model.RuleBase
		dayOfWeek *int16
		date      *time.Time
	)
	err := row.Scan(
		&b.ID,
		&b.ResourceID,
		&dayOfWeek,
		&date,
		&b.Start,
		&b.End,
		&b.SlotMinutes,
		&b.Available,
		&b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	switch {
	case dayOfWeek != nil && date == nil:
		return model.WeeklyRule{RuleBase: b, Weekday: time.Weekday(*dayOfWeek)}, nil
	case date != nil && dayOfWeek == nil:
		return model.DateOverrideRule{RuleBase: b, Date: model.DateOf(*date)}, nil
	default:
		return nil, fmt.Errorf("rule %s: exactly one of day_of_week and specific_date must be set", b.ID)
	}
}

// Create сохраняет правило
func (r *ScheduleRuleRepository) Create(ctx context.Context, rule model.ScheduleRule) (model.ScheduleRule, error) {
	var (
		dayOfWeek *int16
		date      *time.Time
	)
	switch v := rule.(type) {
	case model.WeeklyRule:
		d := int16(v.Weekday)
		dayOfWeek = &d
	case model.DateOverrideRule:
		d := model.DateOf(v.Date)
		date = &d
	default:
		return nil, fmt.Errorf("create rule: unsupported rule type %T", rule)
	}

	query := `
		INSERT INTO resource_schedules (id, resource_id, day_of_week, specific_date, start_time, end_time,
			slot_duration_minutes, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + ruleColumns

	b := rule.Base()
	created, err := scanRule(r.DB().QueryRow(
		ctx, query,
		b.ID,
		b.ResourceID,
		dayOfWeek,
		date,
		b.Start,
		b.End,
		b.SlotMinutes,
		b.Available,
	))
	if err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}

	return created, nil
}

// GetByID получает правило по ID
func (r *ScheduleRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (model.ScheduleRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM resource_schedules WHERE id = $1`

	rule, err := scanRule(r.DB().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rule by id: %w", err)
	}

	return rule, nil
}

// ListByResource все правила ресурса
func (r *ScheduleRuleRepository) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]model.ScheduleRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM resource_schedules
		WHERE resource_id = $1
		ORDER BY start_time, id
	`

	rows, err := r.DB().Query(ctx, query, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []model.ScheduleRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// Delete удаляет правило; false — правила не было
func (r *ScheduleRuleRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM resource_schedules WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete rule: %w", err)
	}
	return affected > 0, nil
}

// DeleteByResource удаляет все правила ресурса
func (r *ScheduleRuleRepository) DeleteByResource(ctx context.Context, resourceID uuid.UUID) (int64, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM resource_schedules WHERE resource_id = $1`, resourceID)
	if err != nil {
		return 0, fmt.Errorf("delete rules by resource: %w", err)
	}
	return affected, nil
}
