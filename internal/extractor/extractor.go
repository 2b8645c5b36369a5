package extractor

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Sources are noisy: HTML pages, subscription blobs, channel dumps. The
// extractor pulls out anything that looks like a proxy URI, either directly
// or after unwrapping one level of base64.

var uriPattern = regexp.MustCompile(`(?i)\b(?:vmess|vless|trojan|ssr?|hysteria2?|hy2|tuic|naive\+https|wireguard|wg)://[^\s"'<>` + "`" + `]+`)

// base64Pattern matches lines that could plausibly be an encoded block.
var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/_-]+={0,2}$`)

type Extractor struct {
	// MaxDecodeBytes bounds base64 unwrapping; oversized blocks are skipped.
	MaxDecodeBytes int
}

func New(maxDecodeBytes int) *Extractor {
	return &Extractor{MaxDecodeBytes: maxDecodeBytes}
}

// Extract returns the set of candidate config URIs found in text. Duplicate
// literals collapse; order carries no meaning. Undecodable or oversized
// base64 blocks are skipped silently.
func (e *Extractor) Extract(text string) []string {
	seen := make(map[string]struct{})

	collect := func(block string) {
		for _, m := range uriPattern.FindAllString(block, -1) {
			seen[strings.TrimRight(m, ".,;)")] = struct{}{}
		}
	}

	collect(text)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 8 || len(line) > e.MaxDecodeBytes {
			continue
		}
		if strings.Contains(line, "://") || !base64Pattern.MatchString(line) {
			continue
		}
		decoded, ok := DecodeBase64(line)
		if !ok || !utf8.ValidString(decoded) {
			continue
		}
		collect(decoded)
	}

	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	return out
}

// DecodeBase64 decodes s with tolerance for the padding and alphabet
// variants seen in the wild.
func DecodeBase64(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	trimmed := strings.TrimRight(s, "=")
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.URLEncoding,
		base64.RawStdEncoding, base64.RawURLEncoding,
	} {
		in := s
		if enc == base64.RawStdEncoding || enc == base64.RawURLEncoding {
			in = trimmed
		}
		if b, err := enc.DecodeString(in); err == nil {
			return string(b), true
		}
	}
	return "", false
}
