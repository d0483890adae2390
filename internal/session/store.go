package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/database"
	"esign-workflows/internal/common/errors"

	"github.com/google/uuid"
)

type Store struct {
	redis  *database.RedisClient
	config config.SessionConfig
}

func NewStore(redis *database.RedisClient, cfg config.SessionConfig) *Store {
	return &Store{redis: redis, config: cfg}
}

func (s *Store) key(id string) string {
	return s.config.KeyPrefix + id
}

func (s *Store) ttl() time.Duration {
	return time.Duration(s.config.TTL) * time.Minute
}

// Get returns nil when no session is stored under id.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	data, found, err := s.redis.Get(ctx, s.key(id))
	if err != nil {
		return nil, errors.NewSessionStoreError(err)
	}
	if !found {
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.NewSessionStoreError(err)
	}
	return &sess, nil
}

func (s *Store) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.NewSessionStoreError(err)
	}
	if err := s.redis.Set(ctx, s.key(sess.ID), data, s.ttl()); err != nil {
		return errors.NewSessionStoreError(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)); err != nil {
		return errors.NewSessionStoreError(err)
	}
	return nil
}

// Load returns the session named by the request cookie, or a fresh unsaved one.
func (s *Store) Load(r *http.Request) (*Session, error) {
	if cookie, err := r.Cookie(s.config.CookieName); err == nil && cookie.Value != "" {
		sess, err := s.Get(r.Context(), cookie.Value)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	}
	return &Session{ID: uuid.NewString()}, nil
}

// Persist saves the session and (re)issues its cookie.
func (s *Store) Persist(w http.ResponseWriter, r *http.Request, sess *Session) error {
	if err := s.Save(r.Context(), sess); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(s.ttl().Seconds()),
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
