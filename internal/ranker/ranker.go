package ranker

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
)

const (
	SortLatency     = "latency"
	SortReliability = "reliability"
	SortProximity   = "proximity"
)

// defaultPingCeiling normalizes ping into a 0..1 score when no max-ping
// filter is configured.
const defaultPingCeiling = 2 * time.Second

type Options struct {
	IncludeProtocols []string
	ExcludeProtocols []string
	IncludeCountries []string
	ExcludeCountries []string
	IncludeISPs      []string
	ExcludeISPs      []string
	MaxPing          time.Duration

	SortBy       string
	RefLatitude  float64
	RefLongitude float64
	TopN         int

	// Composite reliability weights. The 50/30/20 split mirrors the
	// historical formula but none of it is load-bearing; all three are
	// configurable.
	WeightUptime float64
	WeightPing   float64
	WeightReach  float64
}

// Rank filters, sorts and trims the probed result set. Input order is
// irrelevant; this is the only stage that imposes a deterministic order.
func Rank(results []model.ConfigResult, opts Options) []model.ConfigResult {
	out := filter(results, opts)

	switch opts.SortBy {
	case SortReliability:
		sortReliability(out, opts)
	case SortProximity:
		sortProximity(out, opts)
	default:
		sortLatency(out)
	}

	if opts.TopN > 0 && len(out) > opts.TopN {
		out = out[:opts.TopN]
	}
	return out
}

func filter(results []model.ConfigResult, opts Options) []model.ConfigResult {
	out := results
	if len(opts.IncludeProtocols) > 0 {
		out = lo.Filter(out, func(r model.ConfigResult, _ int) bool {
			return containsFold(opts.IncludeProtocols, string(r.Scheme))
		})
	}
	if len(opts.ExcludeProtocols) > 0 {
		out = lo.Filter(out, func(r model.ConfigResult, _ int) bool {
			return !containsFold(opts.ExcludeProtocols, string(r.Scheme))
		})
	}
	if len(opts.IncludeCountries) > 0 {
		out = lo.Filter(out, func(r model.ConfigResult, _ int) bool {
			return containsFold(opts.IncludeCountries, r.Country)
		})
	}
	if len(opts.ExcludeCountries) > 0 {
		out = lo.Filter(out, func(r model.ConfigResult, _ int) bool {
			return !containsFold(opts.ExcludeCountries, r.Country)
		})
	}
	if len(opts.IncludeISPs) > 0 {
		out = lo.Filter(out, func(r model.ConfigResult, _ int) bool {
			return matchesISP(opts.IncludeISPs, r.ISP)
		})
	}
	if len(opts.ExcludeISPs) > 0 {
		out = lo.Filter(out, func(r model.ConfigResult, _ int) bool {
			return !matchesISP(opts.ExcludeISPs, r.ISP)
		})
	}
	if opts.MaxPing > 0 {
		maxSec := opts.MaxPing.Seconds()
		out = lo.Filter(out, func(r model.ConfigResult, _ int) bool {
			return !r.Reachable || r.PingSeconds <= maxSec
		})
	}
	return out
}

func containsFold(set []string, v string) bool {
	for _, s := range set {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// ISP names are free-form organization strings, so matching is substring,
// case-insensitive.
func matchesISP(set []string, isp string) bool {
	low := strings.ToLower(isp)
	for _, s := range set {
		if s != "" && strings.Contains(low, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func sortLatency(results []model.ConfigResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Reachable != b.Reachable {
			return a.Reachable
		}
		return a.PingSeconds < b.PingSeconds
	})
}

func sortReliability(results []model.ConfigResult, opts Options) {
	scores := make([]float64, len(results))
	for i := range results {
		scores[i] = reliabilityScore(results[i], opts)
	}
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := results[order[i]], results[order[j]]
		if a.Reachable != b.Reachable {
			return a.Reachable
		}
		return scores[order[i]] > scores[order[j]]
	})
	sorted := make([]model.ConfigResult, len(results))
	for i, idx := range order {
		sorted[i] = results[idx]
	}
	copy(results, sorted)
}

// reliabilityScore blends historical uptime, current ping and current
// reachability. With identical ping and reachability the ordering reduces
// to the plain successes/total ratio.
func reliabilityScore(r model.ConfigResult, opts Options) float64 {
	ceiling := defaultPingCeiling.Seconds()
	if opts.MaxPing > 0 {
		ceiling = opts.MaxPing.Seconds()
	}
	pingScore := 0.0
	if r.Reachable {
		pingScore = 1 - math.Min(r.PingSeconds/ceiling, 1)
	}
	reach := 0.0
	if r.Reachable {
		reach = 1
	}
	return opts.WeightUptime*r.Reliability + opts.WeightPing*pingScore + opts.WeightReach*reach
}

func sortProximity(results []model.ConfigResult, opts Options) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Reachable != b.Reachable {
			return a.Reachable
		}
		return distanceTo(a, opts) < distanceTo(b, opts)
	})
}

func distanceTo(r model.ConfigResult, opts Options) float64 {
	if !r.HasLocation {
		return math.Inf(1)
	}
	return haversineKm(opts.RefLatitude, opts.RefLongitude, r.Latitude, r.Longitude)
}

// haversineKm is the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
