package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

// Fingerprints are semantic: two links that differ only in display name,
// fragment, or query ordering collapse to the same digest, while a change
// of host, port, or credential always produces a new one.

const digestLen = 16 // hex chars, 64 bits of the sha256

// Of computes the semantic fingerprint of a parsed config. It never fails:
// a config with no stable identifier falls back to a canonical form of its
// raw URI, and anything unexpected degrades to hashing the raw link.
//
// Generic configs always hash their canonical URI: the enum collapses every
// unknown scheme to one value, so only the raw link still carries the real
// scheme token, and socks5:// and socks4:// at the same endpoint must not
// collide.
func Of(cfg *model.ParsedConfig) string {
	if cfg == nil {
		return OfRaw("", 0)
	}
	if cfg.Identifier != "" && cfg.Scheme != model.SchemeGeneric {
		key := fmt.Sprintf("%s|%s|%d|%s", cfg.Scheme, strings.ToLower(cfg.Host), cfg.Port, cfg.Identifier)
		return digest(key)
	}
	if canon, ok := canonicalURI(cfg.RawURI); ok {
		return digest(string(cfg.Scheme) + "|" + canon)
	}
	return OfRaw(cfg.RawURI, 0)
}

// OfRaw is the degraded path: dedup quality drops to literal identity for
// this one input, but the function never panics or errors.
func OfRaw(raw string, index int) string {
	return digest(fmt.Sprintf("%s|%d", raw, index))
}

// canonicalURI strips the fragment and sorts query parameters so cosmetic
// re-orderings still collide.
func canonicalURI(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	u.Fragment = ""
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	u.RawQuery = b.String()
	u.Host = strings.ToLower(u.Host)
	return u.String(), true
}

func digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:digestLen]
}
