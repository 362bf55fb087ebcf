// Package session keeps the state of estimation sessions between requests.
// Every session is stored as its own serialized snapshot, so two sessions can
// never observe each other's selection.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Simplici0/buildest/internal/estimate"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Store persists estimate states by session id.
type Store interface {
	Create(ctx context.Context, state estimate.State) (string, error)
	Get(ctx context.Context, id string) (estimate.State, error)
	Put(ctx context.Context, id string, state estimate.State) error
	Delete(ctx context.Context, id string) error
}

func encode(state estimate.State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return data, nil
}

func decode(data []byte) (estimate.State, error) {
	var state estimate.State
	if err := json.Unmarshal(data, &state); err != nil {
		return estimate.State{}, fmt.Errorf("decode session state: %w", err)
	}
	return state, nil
}
