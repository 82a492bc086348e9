package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// memEvents enforces slug uniqueness the way the events_public_slug_key constraint does.
type memEvents struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*models.Event
	owners map[uuid.UUID]bool
	// blindProbe makes SlugExists always report free, forcing every conflict
	// through the insert path.
	blindProbe bool
	failing    error
}

func newMemEvents(owners ...uuid.UUID) *memEvents {
	m := &memEvents{byID: make(map[uuid.UUID]*models.Event), owners: make(map[uuid.UUID]bool)}
	for _, o := range owners {
		m.owners[o] = true
	}
	return m
}

func (m *memEvents) Create(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	if !m.owners[e.OwnerID] {
		return database.ErrForeignKey
	}
	for _, existing := range m.byID {
		if existing.PublicSlug == e.PublicSlug {
			return database.ErrDuplicate
		}
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	if len(e.AdditionalFields) == 0 {
		e.AdditionalFields = models.EmptyFields
	}
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEvents) SlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return false, m.failing
	}
	if m.blindProbe {
		return false, nil
	}
	for _, e := range m.byID {
		if e.PublicSlug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *memEvents) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return nil, m.failing
	}
	e, ok := m.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memEvents) List(_ context.Context, ownerID *uuid.UUID) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return nil, m.failing
	}
	list := []models.Event{}
	for _, e := range m.byID {
		if ownerID == nil || e.OwnerID == *ownerID {
			list = append(list, *e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	return list, nil
}

func (m *memEvents) Update(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	if _, ok := m.byID[e.ID]; !ok {
		return database.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	cp := *e
	m.byID[e.ID] = &cp
	return nil
}

func (m *memEvents) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	if _, ok := m.byID[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memEvents) slugs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.byID))
	for _, e := range m.byID {
		out = append(out, e.PublicSlug)
	}
	return out
}
