package services

import (
	"context"

	"tandem-backend/internal/repository"
)

// Collection and path roots used across the services.
const (
	matchCollection       = "tandemMatches"
	userCollection        = "user"
	eventCollection       = "event"
	tokenCollection       = "fcmToken"
	geodataCollection     = "geodataCache"
	debugClaimsCollection = "debugClaims"
	metadataRoot          = "metadata"
)

// DocumentStore is the slice of the document store the services consume.
type DocumentStore interface {
	Get(ctx context.Context, path string) (*repository.Document, error)
	Create(ctx context.Context, path string, fields map[string]any) (*repository.WriteResult, error)
	Update(ctx context.Context, path string, fields map[string]any) (*repository.WriteResult, error)
	Upsert(ctx context.Context, path string, fields map[string]any, merge bool) (*repository.WriteResult, error)
	Delete(ctx context.Context, path string) (*repository.WriteResult, error)
	Query(ctx context.Context, collection string, constraints []repository.Constraint, opts repository.QueryOptions) ([]*repository.Document, error)
}

// ReferenceStore is the slice of the key-value tree store the services consume.
type ReferenceStore interface {
	Get(ctx context.Context, path string) (map[string]any, error)
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
}
