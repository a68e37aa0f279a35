package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const flashKeyPrefix = "flash:"

// FlashMessage is a notice shown once on the next page render.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager issues the anonymous dashboard cookie. The cookie only
// carries a uuid; flashes live in a Redis list per session and are dropped
// when no client is configured.
type SessionManager struct {
	client *redis.Client
	cookie http.Cookie
	ttl    time.Duration
}

// Session is the request-scoped view of a dashboard session.
type Session struct {
	ID      string
	flashes []FlashMessage
	isNew   bool
	dirty   bool
}

func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client: client,
		cookie: http.Cookie{
			Name:     cookieName,
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		},
		ttl: ttl,
	}
}

// Load resolves the session of r. A missing or non-uuid cookie starts a new
// session.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	id := ""
	if c, err := r.Cookie(sm.cookie.Name); err == nil {
		id = strings.TrimSpace(c.Value)
	} else if !errors.Is(err, http.ErrNoCookie) {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return &Session{ID: uuid.NewString(), isNew: true}, nil
	}

	sess := &Session{ID: id}
	if sm.client == nil {
		return sess, nil
	}
	raw, err := sm.client.LRange(ctx, flashKeyPrefix+id, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	for _, item := range raw {
		var msg FlashMessage
		if json.Unmarshal([]byte(item), &msg) == nil {
			sess.flashes = append(sess.flashes, msg)
		}
	}
	return sess, nil
}

// Commit writes changed flashes back and refreshes the cookie expiry.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return nil
	}
	if sess.dirty && sm.client != nil {
		if err := sm.storeFlashes(ctx, sess); err != nil {
			return err
		}
	}
	sess.dirty = false

	cookie := sm.cookie
	cookie.Value = sess.ID
	cookie.Expires = time.Now().Add(sm.ttl)
	http.SetCookie(w, &cookie)
	return nil
}

func (sm *SessionManager) storeFlashes(ctx context.Context, sess *Session) error {
	values := make([]any, 0, len(sess.flashes))
	for _, msg := range sess.flashes {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	key := flashKeyPrefix + sess.ID
	_, err := sm.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			pipe.Expire(ctx, key, sm.ttl)
		}
		return nil
	})
	return err
}

// IsNew reports whether this request minted the session.
func (s *Session) IsNew() bool { return s.isNew }

func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash removes and returns the oldest flash, or nil.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}
