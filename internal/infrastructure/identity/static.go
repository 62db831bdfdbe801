// Package identity adapts the external user directory to the assignment
// manager. This implementation reads a static group map from configuration;
// a real deployment would swap in the organization's directory service
// behind the same port.
package identity

import (
	"context"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// StaticProvider resolves assignees from a configured group directory.
type StaticProvider struct {
	groups map[int64][]int64
	logger *zap.Logger
}

// NewStaticProvider creates a provider from the config group map, whose keys
// are group IDs as strings.
func NewStaticProvider(groups map[string][]int64, logger *zap.Logger) (*StaticProvider, error) {
	parsed := make(map[int64][]int64, len(groups))
	for key, members := range groups {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, apperr.New(apperr.CodeInvalidRequest, "invalid group id %q in configuration", key)
		}
		parsed[id] = members
	}
	return &StaticProvider{groups: parsed, logger: logger}, nil
}

// ResolveAssignees expands user and group IDs into a deduplicated, sorted
// set of user IDs. Only admins may resolve assignees; unknown groups fail
// the whole call.
func (p *StaticProvider) ResolveAssignees(ctx context.Context, actor entity.Actor, userIDs, groupIDs []int64) ([]int64, error) {
	if !actor.IsAdmin() {
		return nil, apperr.New(apperr.CodeForbidden, "user %d may not assign work", actor.ID)
	}

	seen := make(map[int64]bool)
	var resolved []int64
	add := func(id int64) {
		if id > 0 && !seen[id] {
			seen[id] = true
			resolved = append(resolved, id)
		}
	}

	for _, id := range userIDs {
		add(id)
	}
	for _, groupID := range groupIDs {
		members, ok := p.groups[groupID]
		if !ok {
			return nil, apperr.New(apperr.CodeInvalidUser, "group %d not found", groupID)
		}
		for _, id := range members {
			add(id)
		}
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i] < resolved[j] })
	return resolved, nil
}

// Verify interface compliance
var _ port.IdentityProvider = (*StaticProvider)(nil)
