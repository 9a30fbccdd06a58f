package util

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts, including the first
	InitialWait time.Duration // Initial wait duration (doubled each retry)
	MaxWait     time.Duration // Maximum wait duration between retries
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 5,
		InitialWait: 20 * time.Millisecond,
		MaxWait:     time.Second,
	}
}

// IsRetryableError checks if a storage error is worth retrying.
// Returns true for SQLite busy/locked conditions and bbolt open timeouts,
// which clear once the competing writer finishes.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"sqlite_locked",
		"timeout",
		"resource temporarily unavailable",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

func newBackOff(cfg *RetryConfig) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialWait
	bo.MaxInterval = cfg.MaxWait
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0
	if cfg.MaxAttempts <= 1 {
		return backoff.WithMaxRetries(bo, 0)
	}
	return backoff.WithMaxRetries(bo, uint64(cfg.MaxAttempts-1))
}

// RetryWithBackoff executes a function with exponential backoff retry logic.
// Non-retryable errors are returned immediately.
func RetryWithBackoff[T any](cfg *RetryConfig, operation func() (T, error), operationName string) (T, error) {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}

	var result T
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var opErr error
		result, opErr = operation()
		if opErr == nil {
			if attempt > 1 {
				DebugLog("Retry: %s succeeded on attempt %d/%d", operationName, attempt, cfg.MaxAttempts)
			}
			return nil
		}
		if !IsRetryableError(opErr) {
			return backoff.Permanent(opErr)
		}
		DebugLog("Retry: %s failed (attempt %d/%d): %v", operationName, attempt, cfg.MaxAttempts, opErr)
		return opErr
	}, newBackOff(cfg))

	if err != nil && attempt >= cfg.MaxAttempts && IsRetryableError(err) {
		WarnLog("Retry: %s failed after %d attempts: %v", operationName, attempt, err)
		return result, fmt.Errorf("max retries exceeded (%d attempts): %w", attempt, err)
	}
	return result, err
}

// Retry executes a function with retry logic (no return value)
func Retry(cfg *RetryConfig, operation func() error, operationName string) error {
	_, err := RetryWithBackoff(cfg, func() (struct{}, error) {
		return struct{}{}, operation()
	}, operationName)
	return err
}
