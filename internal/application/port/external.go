package port

import (
	"context"

	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// Notifier delivers notifications best-effort. Implementations must never
// fail the caller: delivery problems are logged and swallowed so they cannot
// roll back the transaction that triggered them.
type Notifier interface {
	Notify(ctx context.Context, n *entity.Notification)
}

// IdentityProvider is the auth collaborator's contract. The core never
// implements user or group management; it only asks which of the referenced
// users the actor is allowed to assign work to.
type IdentityProvider interface {
	// ResolveAssignees expands the selected user and group IDs into the
	// deduplicated set of assignable user IDs. It fails with a FORBIDDEN
	// error when the actor lacks management rights over any referenced
	// user or group.
	ResolveAssignees(ctx context.Context, actor entity.Actor, userIDs, groupIDs []int64) ([]int64, error)
}
