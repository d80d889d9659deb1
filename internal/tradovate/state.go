package tradovate

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// stateTTL bounds how long an OAuth round trip may take before the
// state parameter is rejected.
const stateTTL = 15 * time.Minute

// AuthState carries the journal identity through the OAuth redirect.
// It travels base64-encoded in the state query parameter.
type AuthState struct {
	UserID      uint64 `json:"user_id"`
	Environment string `json:"environment"`
	Timestamp   int64  `json:"timestamp"`
}

func NewAuthState(userID uint64, env string) AuthState {
	return AuthState{UserID: userID, Environment: env, Timestamp: time.Now().UnixMilli()}
}

func (s AuthState) Encode() string {
	raw, _ := json.Marshal(s)
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeAuthState parses and validates a state parameter.
func DecodeAuthState(encoded string, now time.Time) (AuthState, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return AuthState{}, fmt.Errorf("decode state: %w", err)
	}
	var s AuthState
	if err := json.Unmarshal(raw, &s); err != nil {
		return AuthState{}, fmt.Errorf("parse state: %w", err)
	}
	if s.UserID == 0 || !ValidEnvironment(s.Environment) {
		return AuthState{}, errors.New("invalid state payload")
	}
	age := now.Sub(time.UnixMilli(s.Timestamp))
	if age < 0 || age > stateTTL {
		return AuthState{}, errors.New("state expired")
	}
	return s, nil
}
