package model

import "time"

type Scheme string

const (
	SchemeVMess       Scheme = "vmess"
	SchemeVLESS       Scheme = "vless"
	SchemeTrojan      Scheme = "trojan"
	SchemeShadowsocks Scheme = "ss"
	SchemeSSR         Scheme = "ssr"
	SchemeHysteria    Scheme = "hysteria"
	SchemeHysteria2   Scheme = "hysteria2"
	SchemeTUIC        Scheme = "tuic"
	SchemeNaive       Scheme = "naive"
	SchemeWireGuard   Scheme = "wireguard"
	SchemeGeneric     Scheme = "generic"
)

// ParsedConfig is the canonical record produced by the scheme parsers.
// It is immutable once returned; Host and Port are always set for schemes
// that require network reachability.
type ParsedConfig struct {
	Scheme      Scheme `json:"scheme"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Identifier  string `json:"identifier"` // UUID / password / user, protocol-dependent
	RawURI      string `json:"link"`
	DisplayName string `json:"name,omitempty"`
}

// ConfigResult is one probed, enriched config. Created once per unique
// fingerprint per run; never mutated after ranking.
type ConfigResult struct {
	ParsedConfig

	Fingerprint string  `json:"fingerprint"`
	SourceURL   string  `json:"source_url,omitempty"`
	Reachable   bool    `json:"reachable"`
	PingSeconds float64 `json:"ping_seconds,omitempty"`
	Country     string  `json:"country,omitempty"`
	ISP         string  `json:"isp,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	HasLocation bool    `json:"-"`

	// Reliability is successes/total from the history store, 0 if untested.
	Reliability float64 `json:"reliability"`
}

// HistoryRecord holds the durable per-fingerprint probe counters.
// It is updated in place across runs, never replaced or deleted.
type HistoryRecord struct {
	Fingerprint  string    `json:"fingerprint"`
	Successes    int       `json:"successes"`
	Failures     int       `json:"failures"`
	LastTestedAt time.Time `json:"last_tested_at"`
}

// Score is the historical success ratio, 0 when untested.
func (h HistoryRecord) Score() float64 {
	total := h.Successes + h.Failures
	if total == 0 {
		return 0
	}
	return float64(h.Successes) / float64(total)
}

// Stats is the run summary. Per-item failures land here instead of
// aborting the run.
type Stats struct {
	SourcesChecked    int `json:"sources_checked"`
	SourcesFailed     int `json:"sources_failed"`
	SourcesSkipped    int `json:"sources_skipped"` // circuit breaker open
	ConfigsFetched    int `json:"configs_fetched"`
	ParseFailures     int `json:"parse_failures"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	ConfigsProbed     int `json:"configs_probed"`
	ConfigsReachable  int `json:"configs_reachable"`
}
