// Package idgen produces the fixed-length alphanumeric codes that
// identify customers, projects and samples.
package idgen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/atlaslab/labmanager/internal/app/storage"
)

const (
	charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	CustomerCodeLength = 5
	ProjectCodeLength  = 8
	SampleCodeLength   = 10

	// maxAttempts bounds the draw-and-recheck loop. The keyspace is
	// 36^5 at minimum, so hitting this indicates a store problem.
	maxAttempts = 25
)

// Exists reports whether a candidate code is already taken.
type Exists func(ctx context.Context, code string) (bool, error)

// Random returns a random code of the given length.
func Random(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("draw random code: %w", err)
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}

// Unique draws codes until one passes the existence check.
func Unique(ctx context.Context, length int, exists Exists) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := Random(length)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no unique code found after %d attempts", maxAttempts)
}

// CustomerCode draws an unused 5-character customer code.
func CustomerCode(ctx context.Context, store storage.CustomerStore) (string, error) {
	return Unique(ctx, CustomerCodeLength, func(ctx context.Context, code string) (bool, error) {
		return existsIn(store.GetCustomerByCode(ctx, code))
	})
}

// ProjectCode draws an unused 8-character project code.
func ProjectCode(ctx context.Context, store storage.ProjectStore) (string, error) {
	return Unique(ctx, ProjectCodeLength, func(ctx context.Context, code string) (bool, error) {
		return existsIn(store.GetProjectByCode(ctx, code))
	})
}

// SampleCode draws an unused 10-character sample code.
func SampleCode(ctx context.Context, store storage.SampleStore) (string, error) {
	return Unique(ctx, SampleCodeLength, func(ctx context.Context, code string) (bool, error) {
		return existsIn(store.GetSampleByCode(ctx, code))
	})
}

func existsIn(_ interface{}, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, err
}
