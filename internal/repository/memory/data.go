package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Freeeeeet/booking_engine/internal/model"
	"github.com/google/uuid"
)

// data содержимое хранилища. Снаружи отдаются только копии записей,
// чтобы изменения вызывающей стороны не попадали в хранилище мимо Update*.
type data struct {
	resources     map[uuid.UUID]model.Resource
	rules         map[uuid.UUID]model.ScheduleRule
	settings      map[model.Scope]model.BookingSettings
	bookings      map[int64]model.Booking
	audit         []model.AuditLogEntry
	notifications []model.NotificationRecord

	bookingSeq      int64
	auditSeq        int64
	notificationSeq int64
}

func newData() *data {
	return &data{
		resources: make(map[uuid.UUID]model.Resource),
		rules:     make(map[uuid.UUID]model.ScheduleRule),
		settings:  make(map[model.Scope]model.BookingSettings),
		bookings:  make(map[int64]model.Booking),
	}
}

func (d *data) clone() *data {
	c := &data{
		resources:       make(map[uuid.UUID]model.Resource, len(d.resources)),
		rules:           make(map[uuid.UUID]model.ScheduleRule, len(d.rules)),
		settings:        make(map[model.Scope]model.BookingSettings, len(d.settings)),
		bookings:        make(map[int64]model.Booking, len(d.bookings)),
		audit:           append([]model.AuditLogEntry(nil), d.audit...),
		notifications:   append([]model.NotificationRecord(nil), d.notifications...),
		bookingSeq:      d.bookingSeq,
		auditSeq:        d.auditSeq,
		notificationSeq: d.notificationSeq,
	}
	for k, v := range d.resources {
		c.resources[k] = v
	}
	for k, v := range d.rules {
		c.rules[k] = v
	}
	for k, v := range d.settings {
		c.settings[k] = v
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	return c
}

func (d *data) GetResource(_ context.Context, id uuid.UUID) (*model.Resource, error) {
	r, ok := d.resources[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (d *data) ListResources(_ context.Context, scope model.Scope, activeOnly bool) ([]*model.Resource, error) {
	var resources []*model.Resource
	for _, r := range d.resources {
		if !scope.Owns(r.OrgID, r.BotID) || (activeOnly && !r.IsActive) {
			continue
		}
		r := r
		resources = append(resources, &r)
	}
	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Name != resources[j].Name {
			return resources[i].Name < resources[j].Name
		}
		return resources[i].ID.String() < resources[j].ID.String()
	})
	return resources, nil
}

func (d *data) InsertResource(_ context.Context, resource *model.Resource) error {
	d.resources[resource.ID] = *resource
	return nil
}

func (d *data) UpdateResource(_ context.Context, resource *model.Resource) error {
	if _, ok := d.resources[resource.ID]; !ok {
		return nil
	}
	d.resources[resource.ID] = *resource
	return nil
}

func (d *data) GetRule(_ context.Context, id uuid.UUID) (model.ScheduleRule, error) {
	rule, ok := d.rules[id]
	if !ok {
		return nil, nil
	}
	return rule, nil
}

func (d *data) ListRules(_ context.Context, resourceID uuid.UUID) ([]model.ScheduleRule, error) {
	var rules []model.ScheduleRule
	for _, rule := range d.rules {
		if rule.Base().ResourceID == resourceID {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i].Base(), rules[j].Base()
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID.String() < b.ID.String()
	})
	return rules, nil
}

func (d *data) InsertRule(_ context.Context, rule model.ScheduleRule) (model.ScheduleRule, error) {
	d.rules[rule.Base().ID] = rule
	return rule, nil
}

func (d *data) DeleteRule(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := d.rules[id]; !ok {
		return false, nil
	}
	delete(d.rules, id)
	return true, nil
}

func (d *data) DeleteRulesByResource(_ context.Context, resourceID uuid.UUID) (int64, error) {
	var deleted int64
	for id, rule := range d.rules {
		if rule.Base().ResourceID == resourceID {
			delete(d.rules, id)
			deleted++
		}
	}
	return deleted, nil
}

func (d *data) GetSettings(_ context.Context, scope model.Scope) (*model.BookingSettings, error) {
	settings, ok := d.settings[scope]
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

func (d *data) GetBooking(_ context.Context, id int64) (*model.Booking, error) {
	b, ok := d.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (d *data) ListBookings(_ context.Context, scope model.Scope, filter model.BookingFilter) ([]*model.Booking, error) {
	var bookings []*model.Booking
	for _, b := range d.bookings {
		if !scope.Owns(b.OrgID, b.BotID) {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		if filter.FromDate != nil && b.Date.Before(model.DateOf(*filter.FromDate)) {
			continue
		}
		b := b
		bookings = append(bookings, &b)
	}
	sortBookings(bookings)
	return bookings, nil
}

func (d *data) ActiveBookings(_ context.Context, key model.LedgerKey) ([]*model.Booking, error) {
	var bookings []*model.Booking
	for _, b := range d.bookings {
		if !key.Scope.Owns(b.OrgID, b.BotID) || !b.Date.Equal(key.Date) || !b.Status.Occupies() {
			continue
		}
		if !sameResource(b.ResourceID, key.ResourceID) {
			continue
		}
		b := b
		bookings = append(bookings, &b)
	}
	sortBookings(bookings)
	return bookings, nil
}

func (d *data) ListElapsedConfirmed(_ context.Context, before time.Time, limit int) ([]*model.Booking, error) {
	var bookings []*model.Booking
	for _, b := range d.bookings {
		if b.Status != model.BookingStatusConfirmed || !b.Date.Before(before) {
			continue
		}
		b := b
		bookings = append(bookings, &b)
	}
	sortBookings(bookings)
	if limit > 0 && len(bookings) > limit {
		bookings = bookings[:limit]
	}
	return bookings, nil
}

func (d *data) InsertBooking(_ context.Context, booking *model.Booking) error {
	d.bookingSeq++
	booking.ID = d.bookingSeq
	d.bookings[booking.ID] = *booking
	return nil
}

func (d *data) UpdateBookingWindow(_ context.Context, booking *model.Booking, expected model.BookingStatus) (bool, error) {
	stored, ok := d.bookings[booking.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	stored.Date = booking.Date
	stored.Start = booking.Start
	stored.End = booking.End
	stored.FormData = booking.FormData
	stored.UpdatedAt = booking.UpdatedAt
	d.bookings[booking.ID] = stored
	return true, nil
}

func (d *data) UpdateBookingStatus(_ context.Context, booking *model.Booking, expected model.BookingStatus) (bool, error) {
	stored, ok := d.bookings[booking.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	stored.Status = booking.Status
	stored.ConfirmedAt = booking.ConfirmedAt
	stored.CancelledAt = booking.CancelledAt
	stored.UpdatedAt = booking.UpdatedAt
	d.bookings[booking.ID] = stored
	return true, nil
}

func (d *data) AppendAudit(_ context.Context, entry *model.AuditLogEntry) error {
	d.auditSeq++
	entry.ID = d.auditSeq
	d.audit = append(d.audit, *entry)
	return nil
}

func (d *data) ListAudit(_ context.Context, bookingID int64) ([]*model.AuditLogEntry, error) {
	var entries []*model.AuditLogEntry
	for _, e := range d.audit {
		if e.BookingID == bookingID {
			e := e
			entries = append(entries, &e)
		}
	}
	return entries, nil
}

func (d *data) EnqueueNotification(_ context.Context, record *model.NotificationRecord) (bool, error) {
	for _, n := range d.notifications {
		if n.BookingID == record.BookingID && n.Type == record.Type {
			return false, nil
		}
	}
	d.notificationSeq++
	record.ID = d.notificationSeq
	d.notifications = append(d.notifications, *record)
	return true, nil
}

func (d *data) ListNotifications(_ context.Context, bookingID int64) ([]*model.NotificationRecord, error) {
	var records []*model.NotificationRecord
	for _, n := range d.notifications {
		if n.BookingID == bookingID {
			n := n
			records = append(records, &n)
		}
	}
	return records, nil
}

func sameResource(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortBookings(bookings []*model.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID < b.ID
	})
}
