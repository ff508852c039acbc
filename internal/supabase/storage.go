package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// ErrInvalidObjectURL is returned for URLs that do not address a storage object.
var ErrInvalidObjectURL = errors.New("invalid storage object url")

// StorageClient handles Storage operations.
type StorageClient struct {
	client *Client
}

// Storage returns a storage client.
func (c *Client) Storage() *StorageClient {
	return &StorageClient{client: c}
}

// Remove deletes objects from bucket.
func (s *StorageClient) Remove(ctx context.Context, bucket string, paths []string) error {
	u := s.client.baseURL + "/storage/v1/object/" + url.PathEscape(bucket)
	resp, err := s.client.doJSON(ctx, http.MethodDelete, u, map[string][]string{"prefixes": paths}, nil)
	if err != nil {
		return err
	}
	return resp.Err()
}

// ParseObjectURL splits a public or signed object URL into bucket and
// object path, e.g. ".../storage/v1/object/public/images/<uid>/a.png"
// gives ("images", "<uid>/a.png").
func ParseObjectURL(rawURL string) (bucket, path string, err error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", "", ErrInvalidObjectURL
	}

	const marker = "/storage/v1/object/"
	p := u.EscapedPath()
	idx := strings.Index(p, marker)
	if idx < 0 {
		return "", "", ErrInvalidObjectURL
	}
	rest := p[idx+len(marker):]
	for _, prefix := range []string{"public/", "sign/", "authenticated/"} {
		if strings.HasPrefix(rest, prefix) {
			rest = strings.TrimPrefix(rest, prefix)
			break
		}
	}

	bucket, path, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || path == "" {
		return "", "", ErrInvalidObjectURL
	}
	if path, err = url.PathUnescape(path); err != nil {
		return "", "", ErrInvalidObjectURL
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", "", ErrInvalidObjectURL
		}
	}
	return bucket, path, nil
}
