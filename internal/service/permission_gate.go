package service

import (
	"context"
	"sync"
	"time"

	"fuelops/internal/model"
	"fuelops/internal/repository"

	"github.com/google/uuid"
)

// PermissionGate answers "may actor X perform action Y". Every ledger
// operation calls it with the acting user's id before touching state, so
// authorization is an explicit parameter of the operation rather than ambient
// request context.
type PermissionGate interface {
	HasCapability(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	// Invalidate drops cached codes for a role (all roles when empty), e.g.
	// after a permission assignment change.
	Invalidate(roleName string)
}

type gateCacheEntry struct {
	codes     map[string]bool
	expiresAt time.Time
}

type permissionGate struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	ttl      time.Duration
	cache    sync.Map // role name -> gateCacheEntry
}

func NewPermissionGate(userRepo repository.UserRepository, roleRepo repository.RoleRepository) PermissionGate {
	return &permissionGate{
		userRepo: userRepo,
		roleRepo: roleRepo,
		ttl:      5 * time.Minute,
	}
}

func (g *permissionGate) HasCapability(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	user, err := g.userRepo.GetByID(ctx, userID.String())
	if err != nil {
		return false, nil // Unknown actor holds no capabilities
	}

	// Admin always passes
	if user.Role == model.RoleAdmin {
		return true, nil
	}

	codes, err := g.codesForRole(ctx, user.Role)
	if err != nil {
		return false, err
	}
	return codes[code], nil
}

func (g *permissionGate) codesForRole(ctx context.Context, roleName string) (map[string]bool, error) {
	if entry, ok := g.cache.Load(roleName); ok {
		cached := entry.(gateCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.codes, nil
		}
	}

	codes, err := g.roleRepo.GetPermissionCodesByRoleName(ctx, roleName)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}

	g.cache.Store(roleName, gateCacheEntry{codes: set, expiresAt: time.Now().Add(g.ttl)})
	return set, nil
}

func (g *permissionGate) Invalidate(roleName string) {
	if roleName == "" {
		g.cache.Range(func(key, _ interface{}) bool {
			g.cache.Delete(key)
			return true
		})
		return
	}
	g.cache.Delete(roleName)
}
