package parser

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/extractor"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

// parseVLESS handles vless:// and reality:// links. Some aggregators emit
// the same base64-JSON body vmess uses, so the structured form is tried
// first; the common URI-with-query form is the fallback. Reality is vless
// with reality transport security and normalizes to the same record.
func parseVLESS(raw string, index int) (*model.ParsedConfig, error) {
	body := raw[strings.Index(raw, "://")+3:]
	if i := strings.IndexByte(body, '#'); i != -1 {
		body = body[:i]
	}
	if decoded, ok := extractor.DecodeBase64(body); ok {
		var p vmessPayload
		if err := json.Unmarshal([]byte(decoded), &p); err == nil {
			cfg, perr := vmessFromPayload(raw, &p, index)
			if perr != nil {
				return nil, parseErr(model.SchemeVLESS, perr.(*ParseError).Reason)
			}
			cfg.Scheme = model.SchemeVLESS
			return cfg, nil
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, parseErr(model.SchemeVLESS, "invalid URI: "+err.Error())
	}
	host, port, herr := hostPortFromURL(u, model.SchemeVLESS)
	if herr != nil {
		return nil, herr
	}
	id := u.User.Username()
	if id == "" {
		return nil, parseErr(model.SchemeVLESS, "missing uuid")
	}
	return &model.ParsedConfig{
		Scheme:      model.SchemeVLESS,
		Host:        host,
		Port:        port,
		Identifier:  canonicalUUID(id),
		RawURI:      raw,
		DisplayName: displayName(u.Fragment, index),
	}, nil
}
