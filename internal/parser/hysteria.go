package parser

import (
	"net/url"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

// parseHysteria handles the v1 scheme. Authentication lives either in the
// auth query parameter or the userinfo, depending on the generator.
func parseHysteria(raw string, index int) (*model.ParsedConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, parseErr(model.SchemeHysteria, "invalid URI: "+err.Error())
	}
	host, port, herr := hostPortFromURL(u, model.SchemeHysteria)
	if herr != nil {
		return nil, herr
	}
	auth := u.Query().Get("auth")
	if auth == "" {
		auth = u.User.Username()
	}
	return &model.ParsedConfig{
		Scheme:      model.SchemeHysteria,
		Host:        host,
		Port:        port,
		Identifier:  auth,
		RawURI:      raw,
		DisplayName: displayName(u.Fragment, index),
	}, nil
}

// parseHysteria2 handles hysteria2:// and its hy2:// alias.
func parseHysteria2(raw string, index int) (*model.ParsedConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, parseErr(model.SchemeHysteria2, "invalid URI: "+err.Error())
	}
	host, port, herr := hostPortFromURL(u, model.SchemeHysteria2)
	if herr != nil {
		return nil, herr
	}
	password := u.User.Username()
	if password == "" {
		return nil, parseErr(model.SchemeHysteria2, "missing password")
	}
	return &model.ParsedConfig{
		Scheme:      model.SchemeHysteria2,
		Host:        host,
		Port:        port,
		Identifier:  password,
		RawURI:      raw,
		DisplayName: displayName(u.Fragment, index),
	}, nil
}

// parseTUIC expects uuid:password userinfo; the uuid is the stable identity.
func parseTUIC(raw string, index int) (*model.ParsedConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, parseErr(model.SchemeTUIC, "invalid URI: "+err.Error())
	}
	host, port, herr := hostPortFromURL(u, model.SchemeTUIC)
	if herr != nil {
		return nil, herr
	}
	id := u.User.Username()
	if id == "" {
		return nil, parseErr(model.SchemeTUIC, "missing uuid")
	}
	return &model.ParsedConfig{
		Scheme:      model.SchemeTUIC,
		Host:        host,
		Port:        port,
		Identifier:  canonicalUUID(id),
		RawURI:      raw,
		DisplayName: displayName(u.Fragment, index),
	}, nil
}
