package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/08star/my-auth-app/internal/domain/session"
	apperrors "github.com/08star/my-auth-app/pkg/errors"
)

// SessionRegistry stores sessions as JSON values that expire with the
// session, plus a per-user set of session IDs for bulk logout.
type SessionRegistry struct {
	client *Client
	prefix string
}

// NewSessionRegistry creates a registry whose keys start with prefix.
func NewSessionRegistry(client *Client, prefix string) *SessionRegistry {
	if prefix == "" {
		prefix = "session:"
	}
	return &SessionRegistry{client: client, prefix: prefix}
}

func (r *SessionRegistry) sessionKey(id uuid.UUID) string {
	return r.prefix + id.String()
}

func (r *SessionRegistry) userKey(userID uuid.UUID) string {
	return r.prefix + "user:" + userID.String()
}

// Create stores the session with a TTL matching its expiry.
func (r *SessionRegistry) Create(ctx context.Context, s *session.Session) error {
	ttl := s.TTL(time.Now())
	if ttl <= 0 {
		return apperrors.ErrTokenExpired
	}

	data, err := json.Marshal(s)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session")
	}

	userKey := r.userKey(s.UserID)
	err = r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, r.sessionKey(s.ID), data, ttl)
		p.SAdd(ctx, userKey, s.ID.String())
		// sessions share one TTL, so the newest one bounds the index
		p.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to store session")
	}
	return nil
}

// Lookup returns a live session.
func (r *SessionRegistry) Lookup(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session")
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal session")
	}
	if s.IsExpired(time.Now()) {
		return nil, apperrors.ErrSessionNotFound
	}
	return &s, nil
}

// Destroy deletes the session. Unknown sessions are ignored.
func (r *SessionRegistry) Destroy(ctx context.Context, id uuid.UUID) error {
	s, err := r.Lookup(ctx, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	err = r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, r.sessionKey(id))
		p.SRem(ctx, r.userKey(s.UserID), id.String())
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to destroy session")
	}
	return nil
}

// DestroyByUser deletes every session listed for the user.
func (r *SessionRegistry) DestroyByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	userKey := r.userKey(userID)

	ids, err := r.client.SMembers(ctx, userKey)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to list user sessions")
	}

	var dels []*goredis.IntCmd
	err = r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		for _, id := range ids {
			dels = append(dels, p.Del(ctx, r.prefix+id))
		}
		p.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to destroy user sessions")
	}

	n := 0
	for _, cmd := range dels {
		n += int(cmd.Val())
	}
	return n, nil
}

// Close is a no-op; the shared client is closed by its owner.
func (r *SessionRegistry) Close() error {
	return nil
}

var _ session.Registry = (*SessionRegistry)(nil)
