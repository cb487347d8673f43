// Package admin decides who may run privileged bot commands. Two sources
// feed the decision: a protected set fixed at startup from configuration,
// and a database-backed set mutated at runtime via Grant and Revoke.
// Protected admins can never be revoked through the bot.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"remindbot/internal/domain"
	"remindbot/internal/store"
	"remindbot/pkg/logx"
)

var (
	// ErrAlreadyAdmin is returned by Grant when the user is already an admin.
	ErrAlreadyAdmin = errors.New("user is already an admin")
	// ErrNotAdmin is returned by Revoke when the user holds no grant.
	ErrNotAdmin = errors.New("user is not an admin")
	// ErrProtected is returned by Revoke for configuration-protected admins.
	ErrProtected = errors.New("admin is protected and cannot be revoked")
)

// Registry answers admin checks against the merged protected + granted set.
// The granted set is cached in memory and kept in sync with the store on
// every successful mutation, so IsAdmin never touches the database.
type Registry struct {
	store store.AdminStore
	log   logx.Logger

	protectedIDs   map[int64]struct{}
	protectedNames map[string]struct{}

	mu      sync.RWMutex
	granted map[int64]struct{}
}

// New loads the granted set from the store and builds the registry.
// Usernames are matched case-insensitively and without a leading "@".
func New(ctx context.Context, st store.AdminStore, ids []int64, usernames []string, log logx.Logger) (*Registry, error) {
	r := &Registry{
		store:          st,
		log:            log,
		protectedIDs:   make(map[int64]struct{}, len(ids)),
		protectedNames: make(map[string]struct{}, len(usernames)),
		granted:        make(map[int64]struct{}),
	}
	for _, id := range ids {
		r.protectedIDs[id] = struct{}{}
	}
	for _, name := range usernames {
		if name = normalizeUsername(name); name != "" {
			r.protectedNames[name] = struct{}{}
		}
	}

	entries, err := st.ListAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("load admins: %w", err)
	}
	for _, e := range entries {
		r.granted[e.UserID] = struct{}{}
	}
	log.Info("admin registry loaded",
		logx.Int("protected", len(r.protectedIDs)+len(r.protectedNames)),
		logx.Int("granted", len(r.granted)))
	return r, nil
}

// IsAdmin reports whether the user may run privileged commands. The username
// check exists so protected operators are recognized before their numeric ID
// is ever known.
func (r *Registry) IsAdmin(userID int64, username string) bool {
	if _, ok := r.protectedIDs[userID]; ok {
		return true
	}
	if _, ok := r.protectedNames[normalizeUsername(username)]; ok {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.granted[userID]
	return ok
}

// IsProtected reports whether the user belongs to the configuration-fixed set.
func (r *Registry) IsProtected(userID int64, username string) bool {
	if _, ok := r.protectedIDs[userID]; ok {
		return true
	}
	_, ok := r.protectedNames[normalizeUsername(username)]
	return ok
}

// Grant makes userID an admin. Granting a protected admin or an existing
// grantee returns ErrAlreadyAdmin.
func (r *Registry) Grant(ctx context.Context, userID, grantedBy int64) error {
	if _, ok := r.protectedIDs[userID]; ok {
		return fmt.Errorf("user %d: %w", userID, ErrAlreadyAdmin)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.granted[userID]; ok {
		return fmt.Errorf("user %d: %w", userID, ErrAlreadyAdmin)
	}
	err := r.store.InsertAdmin(ctx, domain.AdminEntry{
		UserID:  userID,
		AddedBy: grantedBy,
		AddedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("grant admin: %w", err)
	}
	r.granted[userID] = struct{}{}
	r.log.Info("admin granted",
		logx.Int64("user_id", userID), logx.Int64("granted_by", grantedBy))
	return nil
}

// Revoke removes a granted admin. Protected admins return ErrProtected,
// users without a grant return ErrNotAdmin.
func (r *Registry) Revoke(ctx context.Context, userID int64) error {
	if _, ok := r.protectedIDs[userID]; ok {
		return fmt.Errorf("user %d: %w", userID, ErrProtected)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.granted[userID]; !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotAdmin)
	}
	if err := r.store.DeleteAdmin(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Cache said yes, database said no. Heal the cache.
			delete(r.granted, userID)
			return fmt.Errorf("user %d: %w", userID, ErrNotAdmin)
		}
		return fmt.Errorf("revoke admin: %w", err)
	}
	delete(r.granted, userID)
	r.log.Info("admin revoked", logx.Int64("user_id", userID))
	return nil
}

// Granted returns the database-backed entries for listing, freshly read so
// added_by and added_at are accurate.
func (r *Registry) Granted(ctx context.Context) ([]domain.AdminEntry, error) {
	return r.store.ListAdmins(ctx)
}

func normalizeUsername(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
}
