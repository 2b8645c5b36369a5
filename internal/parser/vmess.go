package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/extractor"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

// vmessPayload is the community-standard base64-JSON body. The field names
// are load-bearing: existing clients accept these exact keys and nothing
// else, so they are reproduced bit-for-bit.
type vmessPayload struct {
	Add  string `json:"add"`
	Port any    `json:"port"` // number or string in the wild
	ID   string `json:"id"`
	Aid  any    `json:"aid,omitempty"`
	Ps   string `json:"ps,omitempty"`
	Net  string `json:"net,omitempty"`
	TLS  string `json:"tls,omitempty"`
}

// parseVMess tries the structured base64-JSON form first and falls back to
// the bare URI-with-query form. Fallback success is not an error.
func parseVMess(raw string, index int) (*model.ParsedConfig, error) {
	body := raw[strings.Index(raw, "://")+3:]
	if i := strings.IndexByte(body, '#'); i != -1 {
		body = body[:i]
	}

	if decoded, ok := extractor.DecodeBase64(body); ok {
		var p vmessPayload
		if err := json.Unmarshal([]byte(decoded), &p); err == nil {
			return vmessFromPayload(raw, &p, index)
		}
	}

	// URI form: vmess://uuid@host:port?...#name
	u, err := url.Parse(raw)
	if err != nil {
		return nil, parseErr(model.SchemeVMess, "not base64-JSON and not a valid URI")
	}
	host, port, herr := hostPortFromURL(u, model.SchemeVMess)
	if herr != nil {
		return nil, herr
	}
	id := u.User.Username()
	if id == "" {
		return nil, parseErr(model.SchemeVMess, "missing uuid")
	}
	return &model.ParsedConfig{
		Scheme:      model.SchemeVMess,
		Host:        host,
		Port:        port,
		Identifier:  canonicalUUID(id),
		RawURI:      raw,
		DisplayName: displayName(u.Fragment, index),
	}, nil
}

func vmessFromPayload(raw string, p *vmessPayload, index int) (*model.ParsedConfig, error) {
	host := normalizeHost(p.Add)
	if host == "" {
		return nil, parseErr(model.SchemeVMess, "missing host or port")
	}
	port, err := anyPort(p.Port)
	if err != nil {
		return nil, parseErr(model.SchemeVMess, err.Error())
	}
	if p.ID == "" {
		return nil, parseErr(model.SchemeVMess, "missing uuid")
	}
	name := p.Ps
	if name == "" {
		name = displayName("", index)
	}
	return &model.ParsedConfig{
		Scheme:      model.SchemeVMess,
		Host:        host,
		Port:        port,
		Identifier:  canonicalUUID(p.ID),
		RawURI:      raw,
		DisplayName: name,
	}, nil
}

// anyPort accepts the number-or-string port encoding vmess payloads use.
func anyPort(v any) (int, error) {
	switch x := v.(type) {
	case float64:
		return parsePort(fmt.Sprintf("%d", int(x)))
	case string:
		return parsePort(x)
	case json.Number:
		return parsePort(x.String())
	case nil:
		return 0, fmt.Errorf("missing host or port")
	}
	return 0, fmt.Errorf("invalid port type %T", v)
}

// canonicalUUID lowercases well-formed UUIDs so the same credential in
// different case fingerprints identically. Non-UUID identifiers pass
// through untouched; plenty of servers accept them.
func canonicalUUID(s string) string {
	if id, err := uuid.Parse(s); err == nil {
		return id.String()
	}
	return s
}
