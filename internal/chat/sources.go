package chat

import (
	"context"
	"log"
)

// Source is one place "all sessions" can come from.
type Source interface {
	Name() string
	Sessions(ctx context.Context, userID string) ([]Session, error)
}

// SourceChain is an ordered availability fallback: sources are tried in
// order and the first one that succeeds with any sessions wins. There is
// no merge and no conflict resolution between sources; if their contents
// diverge, whichever answers first is used for that call.
type SourceChain []Source

// Sessions returns the first non-empty result. Source failures are
// logged and skipped; an all-empty chain yields no sessions and no error.
func (c SourceChain) Sessions(ctx context.Context, userID string) []Session {
	for _, src := range c {
		sessions, err := src.Sessions(ctx, userID)
		if err != nil {
			log.Printf("chat: %s source: %v", src.Name(), err)
			continue
		}
		if len(sessions) > 0 {
			return sessions
		}
	}
	return nil
}

// remoteSource reads from the backend.
type remoteSource struct {
	remote Remote
}

func (s remoteSource) Name() string { return "backend" }

func (s remoteSource) Sessions(ctx context.Context, userID string) ([]Session, error) {
	return s.remote.Sessions(ctx, userID)
}

// localSource reads from local storage.
type localSource struct {
	local *LocalStore
}

func (s localSource) Name() string { return "local" }

func (s localSource) Sessions(ctx context.Context, userID string) ([]Session, error) {
	return s.local.List(ctx, userID)
}
