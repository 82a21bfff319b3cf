package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// GenerateKey derives the storage key for a URL: a SHA256 hex digest of
// its normalized form. Hashing keeps keys fixed-length and opaque, and
// normalization lets trivially different spellings of the same endpoint
// share an entry.
func GenerateKey(rawURL string) string {
	normalized := normalizeForKey(rawURL)
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// normalizeForKey canonicalizes a URL before hashing: host case, default
// ports, dot segments, and fragments all collapse. Query strings pass
// through untouched, the gid and format parameters are what distinguish
// one export endpoint from another.
func normalizeForKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	if u.Scheme == "" {
		u.Scheme = "https"
	}
	u.Host = strings.ToLower(u.Host)
	if p := u.Port(); (u.Scheme == "https" && p == "443") || (u.Scheme == "http" && p == "80") {
		u.Host = u.Hostname()
	}

	// Clean resolves dot segments and strips any trailing slash; the
	// root path stays "/"
	if u.Path == "" {
		u.Path = "/"
	} else {
		u.Path = path.Clean(u.Path)
	}
	u.Fragment = ""

	return u.String()
}
