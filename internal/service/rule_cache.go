package service

import (
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// RuleCache кэш правил расписания ресурса. Используется только при выдаче
// слотов (подсказка для отображения); запись бронирования правила не читает.
// nil-кэш допустим и означает "без кэша".
type RuleCache struct {
	lru *expirable.LRU[uuid.UUID, []model.ScheduleRule]
}

func NewRuleCache(size int, ttl time.Duration) *RuleCache {
	if size <= 0 {
		return nil
	}
	return &RuleCache{
		lru: expirable.NewLRU[uuid.UUID, []model.ScheduleRule](size, nil, ttl),
	}
}

func (c *RuleCache) Get(resourceID uuid.UUID) ([]model.ScheduleRule, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(resourceID)
}

func (c *RuleCache) Add(resourceID uuid.UUID, rules []model.ScheduleRule) {
	if c == nil {
		return
	}
	c.lru.Add(resourceID, rules)
}

func (c *RuleCache) Invalidate(resourceID uuid.UUID) {
	if c == nil {
		return
	}
	c.lru.Remove(resourceID)
}
