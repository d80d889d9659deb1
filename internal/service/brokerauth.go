package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tradejournal/internal/repository"
	"tradejournal/internal/tradovate"
)

var ErrInvalidEnvironment = errors.New("environment must be demo or live")

// OAuthAPI is the slice of the Tradovate client the connect flow needs.
type OAuthAPI interface {
	AuthorizeURL(env, redirectURI, state string) (string, error)
	ExchangeCode(ctx context.Context, env, code, redirectURI string) (tradovate.TokenResponse, error)
}

// BrokerAuth runs the Tradovate OAuth handshake: it hands out the authorize
// URL, exchanges the callback code, and stores the sealed token bundle on the
// user record per environment.
type BrokerAuth struct {
	Repo         repository.Repository
	API          OAuthAPI
	Cipher       *tradovate.TokenCipher
	RedirectBase string
	Logger       *zap.Logger
}

func (s *BrokerAuth) redirectURI() string {
	return s.RedirectBase + "/api/tradovate/auth/callback"
}

// Start builds the authorize URL carrying the user identity in the state
// parameter.
func (s *BrokerAuth) Start(userID uint64, env string) (string, error) {
	if !tradovate.ValidEnvironment(env) {
		return "", ErrInvalidEnvironment
	}
	state := tradovate.NewAuthState(userID, env).Encode()
	return s.API.AuthorizeURL(env, s.redirectURI(), state)
}

// Complete handles the OAuth callback: validates state, exchanges the code,
// and persists the token bundle. It returns the environment that was
// connected.
func (s *BrokerAuth) Complete(ctx context.Context, code, state string) (string, error) {
	authState, err := tradovate.DecodeAuthState(state, time.Now())
	if err != nil {
		return "", err
	}
	env := authState.Environment

	resp, err := s.API.ExchangeCode(ctx, env, code, s.redirectURI())
	if err != nil {
		return "", err
	}

	blob, err := s.sealTokens(tradovate.Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)

	updates := map[string]any{}
	if env == tradovate.EnvLive {
		updates["tradovate_live_tokens"] = blob
		updates["tradovate_live_expires_at"] = expiresAt
	} else {
		updates["tradovate_demo_tokens"] = blob
		updates["tradovate_demo_expires_at"] = expiresAt
	}
	if err := s.Repo.UpdateUserFields(ctx, authState.UserID, updates); err != nil {
		return "", err
	}

	s.Logger.Info("tradovate connected",
		zap.Uint64("user_id", authState.UserID), zap.String("environment", env))
	return env, nil
}

// Disconnect clears the stored tokens for one environment.
func (s *BrokerAuth) Disconnect(ctx context.Context, userID uint64, env string) error {
	if !tradovate.ValidEnvironment(env) {
		return ErrInvalidEnvironment
	}
	updates := map[string]any{}
	if env == tradovate.EnvLive {
		updates["tradovate_live_tokens"] = nil
		updates["tradovate_live_expires_at"] = nil
	} else {
		updates["tradovate_demo_tokens"] = nil
		updates["tradovate_demo_expires_at"] = nil
	}
	if err := s.Repo.UpdateUserFields(ctx, userID, updates); err != nil {
		return err
	}
	s.Logger.Info("tradovate disconnected",
		zap.Uint64("user_id", userID), zap.String("environment", env))
	return nil
}

// sealTokens encrypts the bundle for storage. Without a configured key the
// bundle is stored as plaintext JSON, matching what loadTokens reads back.
func (s *BrokerAuth) sealTokens(tokens tradovate.Tokens) (string, error) {
	if s.Cipher == nil {
		raw, err := json.Marshal(tokens)
		if err != nil {
			return "", fmt.Errorf("seal tokens: %w", err)
		}
		return string(raw), nil
	}
	blob, err := s.Cipher.Encrypt(tokens)
	if err != nil {
		return "", fmt.Errorf("seal tokens: %w", err)
	}
	return blob, nil
}
