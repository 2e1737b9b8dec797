package storage

import (
	"context"
	"time"
)

type ObjectInfo struct {
	Key          string
	Name         string
	Size         int64
	LastModified *time.Time
	URL          string
}

// PutOptions describes one archived export.
type PutOptions struct {
	Owner       string
	Filename    string
	ContentType string
}

// Archive keeps copies of the exports a user downloads so they can be listed
// on the projects page later.
type Archive interface {
	Put(ctx context.Context, body []byte, opts PutOptions) (ObjectInfo, error)
	List(ctx context.Context, owner string) ([]ObjectInfo, error)
}
