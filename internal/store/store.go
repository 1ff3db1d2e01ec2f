// Package store provides the persistent document store the pipeline commits
// subjects and side-effect documents into.
package store

import "context"

// Document is one stored record. Data is an opaque JSON object; the store
// never interprets it beyond merging partial updates field by field.
type Document struct {
	ID              string
	Kind            string
	StableReference string
	Data            map[string]interface{}
}

// DocumentStore is the persistence boundary. Create returns both the store id
// and the stable reference other documents use to point at the new record.
type DocumentStore interface {
	Create(ctx context.Context, kind string, data map[string]interface{}) (id, stableRef string, err error)
	Update(ctx context.Context, id string, partial map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Document, error)
}
