// Package docstore abstracts the external document store. The compliance core
// persists only the reference returned by Put, never the bytes.
package docstore

import "context"

// Store accepts document content and returns an opaque storage reference.
// Remove discards a stored document by its reference; callers use it to clean
// up content whose submission record was never written.
type Store interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (ref string, err error)
	Remove(ctx context.Context, ref string) error
}
