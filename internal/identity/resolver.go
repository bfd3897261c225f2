// Package identity resolves the ObjectId of the signed-in administrator.
//
// The dashboard keeps its session in browser localStorage under a handful of
// keys that changed over time (a user object, an admin object, bare id keys,
// a JWT). A Resolver walks an ordered list of Sources and returns the first
// candidate that is a valid 24-hex ObjectId.
//
// Resolution runs on every call; nothing is cached, so a re-login in the
// dashboard is picked up by the next workflow action.
package identity

import (
	"context"
	"fmt"
	"log"

	apperrors "pengaduan/internal/errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Source yields a candidate admin id. An empty string with a nil error
// means the source had nothing to offer.
type Source interface {
	Name() string
	Lookup(ctx context.Context) (string, error)
}

// Resolver tries its sources in order.
type Resolver struct {
	sources []Source
}

// NewResolver creates a resolver over sources (first match wins).
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// AdminID returns the first valid ObjectId offered by a source.
//
// Sources that fail or offer a malformed value are skipped. When no source
// yields a valid id the result is an IdentityError wrapping the last
// source failure, if any.
func (r *Resolver) AdminID(ctx context.Context) (string, error) {
	var lastErr error
	for _, src := range r.sources {
		id, err := src.Lookup(ctx)
		if err != nil {
			log.Printf("  ⚠️  Identity source %s failed: %v", src.Name(), err)
			lastErr = err
			continue
		}
		if id == "" {
			continue
		}
		if !primitive.IsValidObjectID(id) {
			log.Printf("  ⚠️  Identity source %s returned a malformed id %q", src.Name(), id)
			continue
		}
		return id, nil
	}

	return "", apperrors.NewIdentityError(
		fmt.Sprintf("no admin id found in %d session source(s)", len(r.sources)),
		lastErr,
	)
}
