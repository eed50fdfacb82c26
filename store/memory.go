package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"rental-platform-api/models"
	"rental-platform-api/predictive"
)

// MemoryStore keeps properties, maintenance history and notifications in
// process. riskctl scores fixtures with it and tests use it as a fake.
type MemoryStore struct {
	mu            sync.RWMutex
	properties    []predictive.PropertySummary
	records       map[uint][]predictive.MaintenanceRecord
	notifications []models.Notification
	nextID        uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uint][]predictive.MaintenanceRecord)}
}

func (s *MemoryStore) AddProperty(p predictive.PropertySummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = append(s.properties, p)
}

func (s *MemoryStore) AddRecord(propertyID uint, r predictive.MaintenanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[propertyID] = append(s.records[propertyID], r)
}

func (s *MemoryStore) Property(_ context.Context, id uint) (predictive.PropertySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.properties {
		if p.ID == id {
			return p, nil
		}
	}
	return predictive.PropertySummary{}, predictive.ErrPropertyNotFound
}

func (s *MemoryStore) PropertiesByOwner(_ context.Context, ownerID uint) ([]predictive.PropertySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []predictive.PropertySummary
	for _, p := range s.properties {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

// OwnersWithProperties returns owner ids in ascending order.
func (s *MemoryStore) OwnersWithProperties(_ context.Context) ([]uint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[uint]bool)
	var owners []uint
	for _, p := range s.properties {
		if !seen[p.OwnerID] {
			seen[p.OwnerID] = true
			owners = append(owners, p.OwnerID)
		}
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

func (s *MemoryStore) MaintenanceHistory(_ context.Context, propertyID uint, category predictive.Category) ([]predictive.MaintenanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []predictive.MaintenanceRecord
	for _, r := range s.records[propertyID] {
		if category == "" || r.Category == category {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) InsertNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n.ID = s.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notifications = append(s.notifications, *n)
	return nil
}

// Notifications returns a copy of every stored notification in insertion order.
func (s *MemoryStore) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

type fixtureProperty struct {
	predictive.PropertySummary
	Maintenance []predictive.MaintenanceRecord `json:"maintenance"`
}

type fixture struct {
	Properties []fixtureProperty `json:"properties"`
}

// ParseFixture builds a store from a JSON document of the form
// {"properties": [{"id": 1, "owner_id": 7, ..., "maintenance": [...]}]}.
func ParseFixture(raw []byte) (*MemoryStore, error) {
	var f fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	s := NewMemoryStore()
	for i, p := range f.Properties {
		if p.ID == 0 {
			return nil, fmt.Errorf("fixture property %d: missing id", i)
		}
		s.AddProperty(p.PropertySummary)
		for _, r := range p.Maintenance {
			if !r.Category.Valid() {
				return nil, fmt.Errorf("fixture property %d: unknown category %q", p.ID, r.Category)
			}
			s.AddRecord(p.ID, r)
		}
	}
	return s, nil
}

func LoadFixture(path string) (*MemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}
