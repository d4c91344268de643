// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/heary-aldy/lpmi40-sub009/internal/config"
	"github.com/heary-aldy/lpmi40-sub009/internal/logging"
	"github.com/heary-aldy/lpmi40-sub009/internal/metrics"
	"github.com/heary-aldy/lpmi40-sub009/internal/models"
)

// BreakerClient wraps Client with a circuit breaker so a dead remote fails
// fast instead of timing out once per collection during bulk refreshes.
//
// The breaker uses real time for its interval and timeout calculations.
// Tests exercise the wrapped client directly, not the breaker timing.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewBreakerClient creates a remote client with circuit breaker protection.
// The breaker opens when the failure ratio over the observation window
// reaches cfg.BreakerFailureRatio with at least cfg.BreakerMinRequests
// observed, and probes again after cfg.BreakerOpenTimeout.
func NewBreakerClient(cfg config.RemoteConfig) *BreakerClient {
	client := NewClient(cfg)
	cbName := "remote-collections"

	metrics.SetBreakerState(cbName, 0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3, // Allow 3 concurrent requests in half-open state
		Interval:    time.Minute,
		Timeout:     cfg.BreakerOpenTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.BreakerFailureRatio

			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening remote circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Remote circuit state transition")

			metrics.SetBreakerState(name, stateToFloat(to))
		},

		// A missing id is a definitive answer, not a remote fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return &BreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps a remote call with circuit breaker protection. Open-circuit
// rejections surface as ErrRemoteUnavailable so the fallback chain fires.
func (bc *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := bc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.Warn().Err(err).Msg("Remote request rejected by open circuit")
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
		return nil, err
	}
	return result, nil
}

// castResult safely type-casts the circuit breaker result with error checking
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ListCollectionIDs lists remote collection ids with breaker protection.
func (bc *BreakerClient) ListCollectionIDs(ctx context.Context) ([]string, error) {
	result, err := bc.execute(func() (interface{}, error) {
		return bc.client.ListCollectionIDs(ctx)
	})
	if err != nil {
		return nil, err
	}
	ids, ok := result.([]string)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return ids, nil
}

// ReadCollection reads one collection with breaker protection.
// ErrNotFound passes through without counting as a breaker failure.
func (bc *BreakerClient) ReadCollection(ctx context.Context, id string) (*models.CollectionExport, error) {
	return castResult[models.CollectionExport](bc.execute(func() (interface{}, error) {
		return bc.client.ReadCollection(ctx, id)
	}))
}

// WriteSongs replaces a collection's songs with breaker protection.
func (bc *BreakerClient) WriteSongs(ctx context.Context, id string, songs []models.Song) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.WriteSongs(ctx, id, songs)
	})
	return err
}

// WriteCollection replaces a whole collection node with breaker protection.
func (bc *BreakerClient) WriteCollection(ctx context.Context, id string, export *models.CollectionExport) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.WriteCollection(ctx, id, export)
	})
	return err
}

// ConnectionStatus reports remote reachability. An open breaker short
// circuits to false without touching the network.
func (bc *BreakerClient) ConnectionStatus(ctx context.Context) bool {
	if bc.cb.State() == gobreaker.StateOpen {
		return false
	}
	return bc.client.ConnectionStatus(ctx)
}
