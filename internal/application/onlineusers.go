package application

import (
	"context"
	"strings"
	"sync"

	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// OnlineUsers caches the set of logins present in chat. It is populated by
// Refresh and read by the summary; a failed refresh keeps the previous set.
type OnlineUsers struct {
	mu     sync.RWMutex
	source driven.PresenceSource
	logins map[string]bool
}

// NewOnlineUsers creates an empty cache reading from source. source may be
// nil, in which case nobody is ever online.
func NewOnlineUsers(source driven.PresenceSource) *OnlineUsers {
	return &OnlineUsers{
		source: source,
		logins: map[string]bool{},
	}
}

// Refresh re-reads the presence list. Logins are stored lower-cased.
func (o *OnlineUsers) Refresh(ctx context.Context) error {
	if o.source == nil {
		return nil
	}

	logins, err := o.source.OnlineLogins(ctx)
	if err != nil {
		return err
	}

	set := make(map[string]bool, len(logins))
	for _, l := range logins {
		set[strings.ToLower(l)] = true
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.logins = set
	return nil
}

// IsOnline reports whether login is currently present, ignoring case.
func (o *OnlineUsers) IsOnline(login string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.logins[strings.ToLower(login)]
}

// Snapshot returns a copy of the current set.
func (o *OnlineUsers) Snapshot() map[string]bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]bool, len(o.logins))
	for l := range o.logins {
		out[l] = true
	}
	return out
}
