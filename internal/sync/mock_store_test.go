package sync

import (
	"context"
	"errors"
	"sort"
	stdsync "sync"

	"github.com/alfredjeanlab/guildkeeper/internal/model"
)

// mockStore is a minimal in-memory Source and Sink for sync tests.
type mockStore struct {
	mu       stdsync.Mutex
	tenants  map[uint64]*model.TenantConfig
	bindings map[uint64]*model.ReactionBinding
	listErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		tenants:  make(map[uint64]*model.TenantConfig),
		bindings: make(map[uint64]*model.ReactionBinding),
	}
}

func (m *mockStore) ListTenantConfigs(context.Context) ([]*model.TenantConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*model.TenantConfig
	for _, c := range m.tenants {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}

func (m *mockStore) ListBindings(_ context.Context, tenantID uint64) ([]*model.ReactionBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ReactionBinding
	for _, b := range m.bindings {
		if tenantID == 0 || b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out, nil
}

func (m *mockStore) UpsertTenantConfig(_ context.Context, c *model.TenantConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.tenants[c.TenantID] = &cp
	return nil
}

func (m *mockStore) UpsertBinding(_ context.Context, b *model.ReactionBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.RoleID == 0 {
		return errors.New("role id required")
	}
	cp := *b
	m.bindings[b.RoleID] = &cp
	return nil
}
