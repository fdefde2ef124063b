package session

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	keyAccessToken = "accessToken"
	keyDIDToken    = "didToken"
	keyUsername    = "username"
)

// Store persists session credentials in a KV. Writes and removals are best
// effort: failures are logged and never returned. Reads report whether the
// value is present, absent or the storage is unavailable, leaving the caller
// to decide whether unavailability is fatal.
type Store struct {
	kv     KV
	sealer Sealer
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore builds a session store.
func NewStore(kv KV, sealer Sealer, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{kv: kv, sealer: sealer, ttl: ttl, logger: logger}
}

func key(sid, name string) string {
	return sid + ":" + name
}

func (s *Store) save(ctx context.Context, sid, name, value string) {
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		s.logger.ErrorContext(ctx, "seal session value", slog.String("key", name), slog.Any("error", err))
		return
	}
	if err := s.kv.Set(ctx, key(sid, name), sealed, s.ttl); err != nil {
		s.logger.ErrorContext(ctx, "save session value", slog.String("key", name), slog.Any("error", err))
	}
}

func (s *Store) load(ctx context.Context, sid, name string) Lookup {
	raw, err := s.kv.Get(ctx, key(sid, name))
	if errors.Is(err, ErrKeyNotFound) {
		return Lookup{Status: StatusAbsent}
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "read session value", slog.String("key", name), slog.Any("error", err))
		return Lookup{Status: StatusUnavailable, Err: err}
	}
	value, err := s.sealer.Open(raw)
	if err != nil {
		// a value sealed with another secret is as good as missing
		s.logger.WarnContext(ctx, "open session value", slog.String("key", name), slog.Any("error", err))
		return Lookup{Status: StatusAbsent}
	}
	return Lookup{Value: value, Status: StatusPresent}
}

func (s *Store) remove(ctx context.Context, sid, name string) {
	if err := s.kv.Del(ctx, key(sid, name)); err != nil {
		s.logger.ErrorContext(ctx, "remove session value", slog.String("key", name), slog.Any("error", err))
	}
}

// SaveAccessToken persists the bearer token.
func (s *Store) SaveAccessToken(ctx context.Context, sid, token string) {
	s.save(ctx, sid, keyAccessToken, token)
}

// AccessToken reads the bearer token.
func (s *Store) AccessToken(ctx context.Context, sid string) Lookup {
	return s.load(ctx, sid, keyAccessToken)
}

// RemoveAccessToken deletes the bearer token.
func (s *Store) RemoveAccessToken(ctx context.Context, sid string) {
	s.remove(ctx, sid, keyAccessToken)
}

// SaveDIDToken persists the holder DID.
func (s *Store) SaveDIDToken(ctx context.Context, sid, did string) {
	s.save(ctx, sid, keyDIDToken, did)
}

// DIDToken reads the holder DID.
func (s *Store) DIDToken(ctx context.Context, sid string) Lookup {
	return s.load(ctx, sid, keyDIDToken)
}

// RemoveDIDToken deletes the holder DID.
func (s *Store) RemoveDIDToken(ctx context.Context, sid string) {
	s.remove(ctx, sid, keyDIDToken)
}

// StoreAccessAndDidTokens persists the full session.
func (s *Store) StoreAccessAndDidTokens(ctx context.Context, sess Session) {
	s.SaveAccessToken(ctx, sess.ID, sess.AccessToken)
	s.SaveDIDToken(ctx, sess.ID, sess.DID)
	s.save(ctx, sess.ID, keyUsername, sess.Username)
}

// RemoveAccessAndDidTokens deletes every value of the session.
func (s *Store) RemoveAccessAndDidTokens(ctx context.Context, sid string) {
	s.RemoveAccessToken(ctx, sid)
	s.RemoveDIDToken(ctx, sid)
	s.remove(ctx, sid, keyUsername)
}

// Load rehydrates a session. The status is StatusPresent only when the access
// token exists; any unavailable read makes the whole load unavailable.
func (s *Store) Load(ctx context.Context, sid string) (Session, Status) {
	if sid == "" {
		return Session{}, StatusAbsent
	}
	token := s.AccessToken(ctx, sid)
	if token.Status != StatusPresent {
		return Session{}, token.Status
	}
	did := s.DIDToken(ctx, sid)
	name := s.load(ctx, sid, keyUsername)
	if did.Status == StatusUnavailable || name.Status == StatusUnavailable {
		return Session{}, StatusUnavailable
	}
	return Session{ID: sid, Username: name.Value, AccessToken: token.Value, DID: did.Value}, StatusPresent
}
