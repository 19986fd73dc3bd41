package util

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// DocumentID derives a stable index identifier from a page URL. Trailing
// slashes and fragments do not change the identity of a page.
func DocumentID(url string) string {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimRight(url, "/")
	h := sha1.Sum([]byte(url))
	return hex.EncodeToString(h[:])
}

// JoinURL prefixes base onto a site-relative url.
func JoinURL(base, url string) string {
	if base == "" {
		return url
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(url, "/")
}
