package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/javiertrombetta/capif-back-sub001/config"
)

var validate = validator.New()

// ValidateInput runs struct-tag validation on a facade input and maps
// the first failure to a typed ValidationError.
func ValidateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return &ValidationError{Field: ve.Field(), Reason: ve.Tag()}
	}
	return &ValidationError{Reason: err.Error()}
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	out := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ProductoraLock obtains a cross-instance lock for one productora's
// cashflow and returns the release func. The caller must hold the lock
// for the whole posting transaction, so release is NOT deferred here.
func ProductoraLock(ctx context.Context, productoraId int, lockType string, moduleName string, functionName string) (release func(), err error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Redis is optional; the MySQL advisory posting lock still serializes.
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("%s:%d", lockType, productoraId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for productora", productoraId, err)
		return nil, errors.New("could not obtain lock for productora")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for productora", productoraId, err)
		return nil, err
	}
	return func() {
		_ = lock.Release(ctx)
	}, nil
}
