package ranker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

func reachable(name string, pingMs float64) model.ConfigResult {
	return model.ConfigResult{
		ParsedConfig: model.ParsedConfig{Scheme: model.SchemeVLESS, Host: name, Port: 443, DisplayName: name},
		Reachable:    true,
		PingSeconds:  pingMs / 1000,
	}
}

func dead(name string) model.ConfigResult {
	return model.ConfigResult{
		ParsedConfig: model.ParsedConfig{Scheme: model.SchemeVLESS, Host: name, Port: 443, DisplayName: name},
	}
}

func names(results []model.ConfigResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.DisplayName
	}
	return out
}

func TestSortLatencyUnreachableLast(t *testing.T) {
	in := []model.ConfigResult{reachable("fifty", 50), dead("dead"), reachable("twenty", 20)}

	out := Rank(in, Options{SortBy: SortLatency})
	assert.Equal(t, []string{"twenty", "fifty", "dead"}, names(out))
}

func TestSortReliability(t *testing.T) {
	good := reachable("good", 30)
	good.Reliability = 0.9
	poor := reachable("poor", 30)
	poor.Reliability = 0.2
	untested := reachable("untested", 30)

	out := Rank([]model.ConfigResult{poor, untested, good, dead("dead")}, Options{
		SortBy:       SortReliability,
		WeightUptime: 0.5, WeightPing: 0.3, WeightReach: 0.2,
	})
	assert.Equal(t, []string{"good", "poor", "untested", "dead"}, names(out))
}

func TestSortProximity(t *testing.T) {
	paris := reachable("paris", 40)
	paris.Latitude, paris.Longitude, paris.HasLocation = 48.8566, 2.3522, true
	tokyo := reachable("tokyo", 40)
	tokyo.Latitude, tokyo.Longitude, tokyo.HasLocation = 35.6762, 139.6503, true
	nowhere := reachable("nowhere", 40) // no coordinates: infinite distance

	// Reference point: London.
	out := Rank([]model.ConfigResult{tokyo, nowhere, dead("dead"), paris}, Options{
		SortBy:      SortProximity,
		RefLatitude: 51.5074, RefLongitude: -0.1278,
	})
	assert.Equal(t, []string{"paris", "tokyo", "nowhere", "dead"}, names(out))
}

func TestHaversine(t *testing.T) {
	// London -> Paris is roughly 344 km.
	d := haversineKm(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 344, d, 15)

	assert.InDelta(t, 0, haversineKm(10, 20, 10, 20), 1e-9)
}

func TestProtocolFilters(t *testing.T) {
	vl := reachable("vl", 10)
	tr := reachable("tr", 20)
	tr.Scheme = model.SchemeTrojan

	out := Rank([]model.ConfigResult{vl, tr}, Options{IncludeProtocols: []string{"trojan"}})
	assert.Equal(t, []string{"tr"}, names(out))

	out = Rank([]model.ConfigResult{vl, tr}, Options{ExcludeProtocols: []string{"trojan"}})
	assert.Equal(t, []string{"vl"}, names(out))
}

func TestCountryAndISPFilters(t *testing.T) {
	de := reachable("de", 10)
	de.Country, de.ISP = "DE", "Hetzner Online GmbH"
	us := reachable("us", 20)
	us.Country, us.ISP = "US", "Cloudflare, Inc."

	out := Rank([]model.ConfigResult{de, us}, Options{IncludeCountries: []string{"de"}})
	assert.Equal(t, []string{"de"}, names(out))

	out = Rank([]model.ConfigResult{de, us}, Options{ExcludeISPs: []string{"cloudflare"}})
	assert.Equal(t, []string{"de"}, names(out))
}

func TestMaxPingFilter(t *testing.T) {
	fast := reachable("fast", 30)
	slow := reachable("slow", 900)

	out := Rank([]model.ConfigResult{slow, fast, dead("dead")}, Options{MaxPing: 100 * time.Millisecond})
	// Unreachable entries carry no ping; they survive the filter and sort last.
	assert.Equal(t, []string{"fast", "dead"}, names(out))
}

func TestTopNTrim(t *testing.T) {
	in := []model.ConfigResult{reachable("a", 10), reachable("b", 20), reachable("c", 30)}

	out := Rank(in, Options{TopN: 2})
	assert.Len(t, out, 2)
	assert.Equal(t, []string{"a", "b"}, names(out))

	// Zero means unlimited.
	out = Rank(in, Options{TopN: 0})
	assert.Len(t, out, 3)
}
