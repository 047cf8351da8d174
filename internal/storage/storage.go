// Package storage holds product image blobs behind a small object-store
// interface. The disk implementation mirrors the hosted bucket the shop used:
// named objects in a "product-images" bucket, public URLs derived from the key.
package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
)

// Bucket is the single bucket all product images live in. It is part of every
// public URL, which is what KeyFromURL anchors on.
const Bucket = "product-images"

type Store interface {
	// Upload stores the blob under key. With upsert=false an existing object
	// is never overwritten and ErrObjectExists is returned instead.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string, upsert bool) error

	// Remove deletes the given keys in one batch. Missing objects are not an
	// error; the first real failure is returned after attempting every key.
	Remove(ctx context.Context, keys []string) error

	// PublicURL returns the public URL for a key. Deterministic, no I/O.
	PublicURL(key string) string
}

// KeyFromURL resolves a public URL produced by PublicURL back to its storage
// key: the percent-decoded path segment after the bucket prefix. Returns ""
// when the URL does not contain the bucket prefix, in which case a removal
// using it would match nothing.
func KeyFromURL(publicURL string) string {
	marker := "/" + Bucket + "/"
	i := strings.Index(publicURL, marker)
	if i < 0 {
		return ""
	}
	key := publicURL[i+len(marker):]
	if dec, err := url.PathUnescape(key); err == nil {
		return dec
	}
	return key
}

// KeysFromURLs maps a URL list to keys, dropping any URL that does not
// resolve. Order is preserved.
func KeysFromURLs(urls []string) []string {
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		if k := KeyFromURL(u); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
