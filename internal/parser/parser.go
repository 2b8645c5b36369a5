package parser

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

// ParseError is a recoverable per-config failure. The config is dropped and
// the run continues; it never aborts the pipeline.
type ParseError struct {
	Scheme model.Scheme
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Scheme, e.Reason)
}

func parseErr(scheme model.Scheme, reason string) *ParseError {
	return &ParseError{Scheme: scheme, Reason: reason}
}

// schemeAliases maps URI scheme tokens onto the canonical enum. Reality
// links are VLESS with reality transport security; hy2/wg are the common
// short forms.
var schemeAliases = map[string]model.Scheme{
	"vmess":       model.SchemeVMess,
	"vless":       model.SchemeVLESS,
	"reality":     model.SchemeVLESS,
	"trojan":      model.SchemeTrojan,
	"ss":          model.SchemeShadowsocks,
	"shadowsocks": model.SchemeShadowsocks,
	"ssr":         model.SchemeSSR,
	"hysteria":    model.SchemeHysteria,
	"hysteria2":   model.SchemeHysteria2,
	"hy2":         model.SchemeHysteria2,
	"tuic":        model.SchemeTUIC,
	"naive+https": model.SchemeNaive,
	"wireguard":   model.SchemeWireGuard,
	"wg":          model.SchemeWireGuard,
}

// SchemeOf maps a raw URI onto the scheme enum, case-insensitively.
// Anything unrecognized falls through to the generic parser.
func SchemeOf(raw string) (model.Scheme, bool) {
	i := strings.Index(raw, "://")
	if i <= 0 {
		return model.SchemeGeneric, false
	}
	token := strings.ToLower(raw[:i])
	if s, ok := schemeAliases[token]; ok {
		return s, true
	}
	return model.SchemeGeneric, true
}

// Parse turns a raw URI into a canonical ParsedConfig. index is used only
// to synthesize a display name when the link carries none.
func Parse(raw string, index int) (*model.ParsedConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, parseErr(model.SchemeGeneric, "empty link")
	}

	scheme, ok := SchemeOf(raw)
	if !ok {
		return nil, parseErr(model.SchemeGeneric, "missing scheme")
	}

	switch scheme {
	case model.SchemeVMess:
		return parseVMess(raw, index)
	case model.SchemeVLESS:
		return parseVLESS(raw, index)
	case model.SchemeTrojan:
		return parseTrojan(raw, index)
	case model.SchemeShadowsocks:
		return parseShadowsocks(raw, index)
	case model.SchemeSSR:
		return parseSSR(raw, index)
	case model.SchemeHysteria:
		return parseHysteria(raw, index)
	case model.SchemeHysteria2:
		return parseHysteria2(raw, index)
	case model.SchemeTUIC:
		return parseTUIC(raw, index)
	case model.SchemeNaive:
		return parseNaive(raw, index)
	case model.SchemeWireGuard:
		return parseWireGuard(raw, index)
	case model.SchemeGeneric:
		return parseGeneric(raw, index)
	}
	return nil, parseErr(scheme, "unhandled scheme")
}

// normalizeHost lowercases and punycode-encodes a hostname so cosmetic
// variants of the same host fingerprint identically.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.Trim(host, "[]")
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if p < 1 || p > 65535 {
		return 0, fmt.Errorf("port %d out of range", p)
	}
	return p, nil
}

// splitHostPort splits "host:port" tolerating IPv6 brackets.
func splitHostPort(s string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, fmt.Errorf("missing host or port in %q", s)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return "", 0, err
	}
	if host == "" {
		return "", 0, fmt.Errorf("missing host in %q", s)
	}
	return normalizeHost(host), port, nil
}

// displayName prefers the URI fragment, percent-decoded; otherwise a name
// is synthesized from the position of the link in its source.
func displayName(fragment string, index int) string {
	if fragment != "" {
		if dec, err := url.PathUnescape(fragment); err == nil {
			return dec
		}
		return fragment
	}
	return fmt.Sprintf("config-%d", index)
}

// hostPortFromURL extracts and validates host/port from a parsed URL.
func hostPortFromURL(u *url.URL, scheme model.Scheme) (string, int, error) {
	host := u.Hostname()
	if host == "" {
		return "", 0, parseErr(scheme, "missing host or port")
	}
	if u.Port() == "" {
		return "", 0, parseErr(scheme, "missing host or port")
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return "", 0, parseErr(scheme, err.Error())
	}
	return normalizeHost(host), port, nil
}
