package driven

import "context"

// PresenceSource reads the set of logins currently online in chat.
type PresenceSource interface {
	OnlineLogins(ctx context.Context) ([]string, error)
}
