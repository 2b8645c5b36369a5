package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/config"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/dedup"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/extractor"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/fetcher"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/fingerprint"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/history"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/model"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/parser"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/prober"
	"github.com/AmirrezaFarnamTaheri/MassConfigMerger-sub000/internal/ranker"
)

// RunContext carries per-run state that would otherwise leak into package
// globals: the logger and one-shot warning guards. A fresh one per Run
// keeps repeated invocations in one process independent.
type RunContext struct {
	Log *slog.Logger

	geoWarnOnce sync.Once
}

func NewRunContext(log *slog.Logger) *RunContext {
	if log == nil {
		log = slog.Default()
	}
	return &RunContext{Log: log}
}

// WarnGeoMissing emits the "no GeoIP data" warning at most once per run.
func (rc *RunContext) WarnGeoMissing() {
	rc.geoWarnOnce.Do(func() {
		rc.Log.Warn("geoip_unavailable", "hint", "country/ISP filters and proximity sort will see empty data")
	})
}

// Pipeline wires the stages together: fetch, extract, parse, fingerprint,
// admit, probe, merge history, rank. Per-item failures shrink the result
// set and bump counters; only startup-level problems are errors.
type Pipeline struct {
	cfg     *config.Config
	fetcher *fetcher.Fetcher
	extract *extractor.Extractor
	filter  *dedup.Filter
	prober  *prober.Prober
	store   *history.Store
}

func New(cfg *config.Config, f *fetcher.Fetcher, pr *prober.Prober, store *history.Store) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: f,
		extract: extractor.New(cfg.MaxDecodeBytes),
		filter:  dedup.New(),
		prober:  pr,
		store:   store,
	}
}

// Fetcher exposes the underlying fetcher so the pruning collaborator can
// read per-source failure counters after a run.
func (p *Pipeline) Fetcher() *fetcher.Fetcher { return p.fetcher }

type candidate struct {
	cfg    *model.ParsedConfig
	fp     string
	source string
}

type endpoint struct {
	host string
	port int
}

// Run executes the whole pipeline. It always completes: dead sources,
// unparsable configs and unreachable endpoints are tallied, never fatal.
func (p *Pipeline) Run(ctx context.Context, rc *RunContext, sources []string, extraTexts []string) ([]model.ConfigResult, model.Stats) {
	var (
		mu         sync.Mutex
		stats      model.Stats
		candidates []candidate
	)

	ingest := func(text, src string) {
		uris := p.extract.Extract(text)
		var fresh []candidate
		fetched, parseFails, dups := 0, 0, 0

		for i, raw := range uris {
			fetched++
			pc, err := parser.Parse(raw, i)
			if err != nil {
				parseFails++
				rc.Log.Debug("config_dropped", "source", src, "error", err)
				continue
			}
			fp := fingerprint.Of(pc)
			if fp == "" {
				fp = fingerprint.OfRaw(raw, i)
			}
			if !p.filter.Admit(fp) {
				dups++
				continue
			}
			fresh = append(fresh, candidate{cfg: pc, fp: fp, source: src})
		}

		mu.Lock()
		stats.ConfigsFetched += fetched
		stats.ParseFailures += parseFails
		stats.DuplicatesRemoved += dups
		candidates = append(candidates, fresh...)
		mu.Unlock()
	}

	// Stage 1: fetch all sources, bounded by FetchWorkers.
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.FetchWorkers)

	for _, src := range sources {
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			body, err := p.fetcher.Fetch(ctx, src)

			mu.Lock()
			stats.SourcesChecked++
			switch {
			case errors.Is(err, fetcher.ErrCircuitOpen):
				stats.SourcesSkipped++
			case err != nil:
				stats.SourcesFailed++
			}
			mu.Unlock()

			if err != nil {
				if !errors.Is(err, fetcher.ErrCircuitOpen) {
					rc.Log.Warn("source_failed", "source", src, "error", err)
				}
				return
			}
			ingest(body, src)
		}(src)
	}
	wg.Wait()

	// Collaborator-provided text (Telegram scrapes etc.) is treated
	// exactly like fetched source text.
	for _, text := range extraTexts {
		ingest(text, "inline")
	}

	results := p.probeAll(ctx, rc, candidates, &stats)

	return ranker.Rank(results, p.rankOptions()), stats
}

// probeAll connects once per unique host:port and fans the outcome back
// out to every candidate sharing that endpoint.
func (p *Pipeline) probeAll(ctx context.Context, rc *RunContext, candidates []candidate, stats *model.Stats) []model.ConfigResult {
	groups := make(map[endpoint][]int)
	var noEndpoint []int
	for i, c := range candidates {
		if c.cfg.Host == "" || c.cfg.Port == 0 {
			noEndpoint = append(noEndpoint, i)
			continue
		}
		ep := endpoint{host: c.cfg.Host, port: c.cfg.Port}
		groups[ep] = append(groups[ep], i)
	}

	var (
		mu      sync.Mutex
		results []model.ConfigResult
		wg      sync.WaitGroup
	)
	sem := make(chan struct{}, p.cfg.ProbeWorkers)

	for ep, members := range groups {
		wg.Add(1)
		go func(ep endpoint, members []int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := p.prober.Probe(ctx, ep.host, ep.port)
			if p.geoWanted() && !res.Geo.HasCoords && res.Geo.Country == "" {
				rc.WarnGeoMissing()
			}

			batch := make([]model.ConfigResult, 0, len(members))
			for _, idx := range members {
				c := candidates[idx]
				p.store.Increment(c.fp, res.Reachable)
				rec, _ := p.store.Get(c.fp)

				r := model.ConfigResult{
					ParsedConfig: *c.cfg,
					Fingerprint:  c.fp,
					SourceURL:    c.source,
					Reachable:    res.Reachable,
					Country:      res.Geo.Country,
					ISP:          res.Geo.ISP,
					Latitude:     res.Geo.Latitude,
					Longitude:    res.Geo.Longitude,
					HasLocation:  res.Geo.HasCoords,
					Reliability:  rec.Score(),
				}
				if res.Reachable {
					r.PingSeconds = res.Elapsed.Seconds()
				}
				batch = append(batch, r)
			}

			mu.Lock()
			stats.ConfigsProbed += len(members)
			if res.Reachable {
				stats.ConfigsReachable += len(members)
			}
			results = append(results, batch...)
			mu.Unlock()
		}(ep, members)
	}
	wg.Wait()

	// Endpoint-less configs (wireguard peers without a declared peer
	// address) are kept but never probed; they rank as unreachable.
	for _, idx := range noEndpoint {
		c := candidates[idx]
		rec, _ := p.store.Get(c.fp)
		results = append(results, model.ConfigResult{
			ParsedConfig: *c.cfg,
			Fingerprint:  c.fp,
			SourceURL:    c.source,
			Reliability:  rec.Score(),
		})
	}

	return results
}

// geoWanted reports whether this run's configuration depends on GeoIP
// data at all; the missing-data warning stays quiet otherwise.
func (p *Pipeline) geoWanted() bool {
	c := p.cfg
	return c.SortBy == ranker.SortProximity ||
		len(c.IncludeCountries)+len(c.ExcludeCountries) > 0 ||
		len(c.IncludeISPs)+len(c.ExcludeISPs) > 0
}

func (p *Pipeline) rankOptions() ranker.Options {
	return ranker.Options{
		IncludeProtocols: p.cfg.IncludeProtocols,
		ExcludeProtocols: p.cfg.ExcludeProtocols,
		IncludeCountries: p.cfg.IncludeCountries,
		ExcludeCountries: p.cfg.ExcludeCountries,
		IncludeISPs:      p.cfg.IncludeISPs,
		ExcludeISPs:      p.cfg.ExcludeISPs,
		MaxPing:          p.cfg.MaxPing,
		SortBy:           p.cfg.SortBy,
		RefLatitude:      p.cfg.RefLatitude,
		RefLongitude:     p.cfg.RefLongitude,
		TopN:             p.cfg.TopN,
		WeightUptime:     p.cfg.WeightUptime,
		WeightPing:       p.cfg.WeightPing,
		WeightReach:      p.cfg.WeightReach,
	}
}
