package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dl-issuer/dl_issuer/internal/apiclient"
)

// ErrInvalidCredentials is returned when username or password is missing.
var ErrInvalidCredentials = errors.New("username and password are required")

// Service manages the session lifecycle against the wallet API.
type Service struct {
	api   *apiclient.Client
	store *Store
}

// NewService creates a session service.
func NewService(api *apiclient.Client, store *Store) *Service {
	return &Service{api: api, store: store}
}

// SignUp registers a wallet user and opens a session for them.
func (s *Service) SignUp(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	out, err := s.api.SignUp(ctx, username, password)
	if err != nil {
		return Session{}, fmt.Errorf("sign up: %w", err)
	}
	return s.ClientSideLogIn(ctx, username, out.AccessToken, out.DID), nil
}

// LogIn authenticates against the wallet and opens a session.
func (s *Service) LogIn(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	out, err := s.api.LogIn(ctx, username, password)
	if err != nil {
		return Session{}, fmt.Errorf("log in: %w", err)
	}
	return s.ClientSideLogIn(ctx, username, out.AccessToken, out.DID), nil
}

// ClientSideLogIn opens a session for credentials already obtained from the
// wallet and persists them.
func (s *Service) ClientSideLogIn(ctx context.Context, username, accessToken, did string) Session {
	sess := Session{
		ID:          uuid.NewString(),
		Username:    username,
		AccessToken: accessToken,
		DID:         did,
	}
	s.store.StoreAccessAndDidTokens(ctx, sess)
	return sess
}

// LogOut invalidates the token at the wallet and removes the stored session.
// Local state is removed even when the wallet call fails.
func (s *Service) LogOut(ctx context.Context, sess Session) error {
	err := s.api.WithBearer(sess.AccessToken).Logout(ctx)
	s.store.RemoveAccessAndDidTokens(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("log out: %w", err)
	}
	return nil
}

// Rehydrate loads a session from durable storage.
func (s *Service) Rehydrate(ctx context.Context, sid string) (Session, Status) {
	return s.store.Load(ctx, sid)
}

// Client returns an API client authenticated as the session user.
func (s *Service) Client(sess Session) *apiclient.Client {
	return s.api.WithBearer(sess.AccessToken)
}
