package parser

import (
	"net/url"
	"strings"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/extractor"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

// parseShadowsocks accepts the three encodings the ecosystem uses:
//
//	ss://method:password@host:port          (plain userinfo)
//	ss://base64(method:password)@host:port  (encoded userinfo)
//	ss://base64(method:password@host:port)  (whole body encoded)
//
// All three normalize to the same ParsedConfig shape.
func parseShadowsocks(raw string, index int) (*model.ParsedConfig, error) {
	body := raw[strings.Index(raw, "://")+3:]
	fragment := ""
	if i := strings.IndexByte(body, '#'); i != -1 {
		fragment = body[i+1:]
		body = body[:i]
	}
	if i := strings.IndexByte(body, '?'); i != -1 {
		body = body[:i] // plugin options are cosmetic for identity purposes
	}

	var userInfo, hostInfo string
	if at := strings.LastIndexByte(body, '@'); at != -1 {
		userInfo, hostInfo = body[:at], body[at+1:]
	} else {
		decoded, ok := extractor.DecodeBase64(body)
		if !ok {
			return nil, parseErr(model.SchemeShadowsocks, "invalid base64 body")
		}
		at := strings.LastIndexByte(decoded, '@')
		if at == -1 {
			return nil, parseErr(model.SchemeShadowsocks, "missing host or port")
		}
		userInfo, hostInfo = decoded[:at], decoded[at+1:]
	}

	// Userinfo may itself be base64 or percent-encoded.
	if decoded, ok := extractor.DecodeBase64(userInfo); ok && strings.Contains(decoded, ":") {
		userInfo = decoded
	} else if unescaped, err := url.QueryUnescape(userInfo); err == nil {
		userInfo = unescaped
	}
	method, password, found := strings.Cut(userInfo, ":")
	if !found || method == "" {
		return nil, parseErr(model.SchemeShadowsocks, "missing method:password")
	}

	host, port, err := splitHostPort(strings.TrimSuffix(hostInfo, "/"))
	if err != nil {
		return nil, parseErr(model.SchemeShadowsocks, err.Error())
	}

	return &model.ParsedConfig{
		Scheme:      model.SchemeShadowsocks,
		Host:        host,
		Port:        port,
		Identifier:  password,
		RawURI:      raw,
		DisplayName: displayName(fragment, index),
	}, nil
}

// parseSSR decodes the legacy ShadowsocksR body:
// base64(host:port:protocol:method:obfs:base64(password)[/?params]).
func parseSSR(raw string, index int) (*model.ParsedConfig, error) {
	body := raw[strings.Index(raw, "://")+3:]
	decoded, ok := extractor.DecodeBase64(body)
	if !ok {
		return nil, parseErr(model.SchemeSSR, "invalid base64 body")
	}

	main, params, _ := strings.Cut(decoded, "/?")
	fields := strings.Split(main, ":")
	if len(fields) < 6 {
		return nil, parseErr(model.SchemeSSR, "expected 6 colon-delimited fields")
	}

	// IPv6 hosts contain colons; the trailing five fields are fixed.
	host := normalizeHost(strings.Join(fields[:len(fields)-5], ":"))
	port, err := parsePort(fields[len(fields)-5])
	if err != nil {
		return nil, parseErr(model.SchemeSSR, err.Error())
	}
	if host == "" {
		return nil, parseErr(model.SchemeSSR, "missing host or port")
	}

	password := fields[len(fields)-1]
	if dec, ok := extractor.DecodeBase64(password); ok {
		password = dec
	}

	name := ""
	if params != "" {
		if vals, err := url.ParseQuery(params); err == nil {
			if remarks := vals.Get("remarks"); remarks != "" {
				if dec, ok := extractor.DecodeBase64(remarks); ok {
					name = dec
				}
			}
		}
	}
	if name == "" {
		name = displayName("", index)
	}

	return &model.ParsedConfig{
		Scheme:      model.SchemeSSR,
		Host:        host,
		Port:        port,
		Identifier:  password,
		RawURI:      raw,
		DisplayName: name,
	}, nil
}
