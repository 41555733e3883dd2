package costs

import (
	"fmt"
	"strings"
	"sync"

	"solar-bess-sizer/internal/model"

	"go.uber.org/zap"
)

// Lookup resolves a single value.
type Lookup interface {
	Lookup(q Query) (Result, error)
}

// Result is a resolved value and where it came from.
type Result struct {
	Value float64
	// Source is the region whose rows were used.
	Source string
	// Fallback is set when Source differs from the requested country.
	Fallback bool
	// Matches is the number of rows averaged into Value.
	Matches int
}

// ProxyRule maps countries, regions or continents to a proxy region for one
// variable and tech. An empty Tech applies to queries without a tech.
type ProxyRule struct {
	Variable    string   `yaml:"variable"`
	Tech        string   `yaml:"tech"`
	Countries   []string `yaml:"applies_to_countries"`
	Regions     []string `yaml:"applies_to_regions"`
	Continents  []string `yaml:"applies_to_continents"`
	ProxyRegion string   `yaml:"proxy_region"`
}

// Place is a country's position in the region hierarchy.
type Place struct {
	Region    string `yaml:"region"`
	Continent string `yaml:"continent"`
}

// Hierarchical looks a value up for the country itself, then for the first
// matching proxy region, then for World. Several matching rows are averaged.
// It is safe for concurrent use.
type Hierarchical struct {
	Table  *Table
	Rules  []ProxyRule
	Places map[string]Place // keyed by lower-case country
	Logger *zap.Logger

	mu   sync.Mutex
	used map[Query]string
}

func (h *Hierarchical) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *Hierarchical) Lookup(q Query) (Result, error) {
	q = q.normalized()
	if vals := h.Table.Match(q.Country, q); len(vals) > 0 {
		return h.result(q, q.Country, vals), nil
	}
	if proxy := h.proxyFor(q); proxy != "" {
		if vals := h.Table.Match(proxy, q); len(vals) > 0 {
			h.recordFallback(q, proxy)
			h.log().Info("using proxy region", zap.Stringer("query", q), zap.String("proxy", proxy))
			return h.result(q, proxy, vals), nil
		}
	}
	if vals := h.Table.Match(World, q); len(vals) > 0 {
		h.recordFallback(q, World)
		h.log().Info("using world value", zap.Stringer("query", q))
		return h.result(q, World, vals), nil
	}
	return Result{}, fmt.Errorf("%w for %s", ErrNotFound, q)
}

func (h *Hierarchical) result(q Query, source string, vals []float64) Result {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	if len(vals) > 1 {
		h.log().Warn("multiple matches averaged", zap.Stringer("query", q), zap.String("source", source), zap.Int("matches", len(vals)))
	}
	return Result{
		Value:    sum / float64(len(vals)),
		Source:   source,
		Fallback: source != q.Country,
		Matches:  len(vals),
	}
}

func (h *Hierarchical) proxyFor(q Query) string {
	place := h.Places[q.Country]
	region, continent := norm(place.Region), norm(place.Continent)
	for _, r := range h.Rules {
		if norm(r.Variable) != q.Variable || norm(r.Tech) != q.Tech {
			continue
		}
		if containsFold(r.Countries, q.Country) ||
			(region != "" && containsFold(r.Regions, region)) ||
			(continent != "" && containsFold(r.Continents, continent)) {
			return norm(r.ProxyRegion)
		}
	}
	return ""
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

func (h *Hierarchical) recordFallback(q Query, source string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.used == nil {
		h.used = make(map[Query]string)
	}
	h.used[q] = source
}

// UsedFallbacks returns the queries that were answered by a proxy region or World.
func (h *Hierarchical) UsedFallbacks() map[Query]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[Query]string, len(h.used))
	for k, v := range h.used {
		out[k] = v
	}
	return out
}

// Value is Lookup without the provenance.
func Value(l Lookup, q Query) (float64, error) {
	res, err := l.Lookup(q)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// SizingCosts resolves the sizing costs of a country from a long-form table.
// capex rows for tech "solar" are per MW; "bess" capex is per MWh of energy and
// "bess_power" capex per MW. A missing "bess_power" row means zero.
func SizingCosts(l Lookup, country string, year int) (model.TechCosts, error) {
	solar, err := Value(l, Query{Country: country, Year: year, Variable: "capex", Tech: "solar"})
	if err != nil {
		return model.TechCosts{}, err
	}
	energy, err := Value(l, Query{Country: country, Year: year, Variable: "capex", Tech: "bess"})
	if err != nil {
		return model.TechCosts{}, err
	}
	power, err := Value(l, Query{Country: country, Year: year, Variable: "capex", Tech: "bess_power"})
	if err != nil && !isNotFound(err) {
		return model.TechCosts{}, err
	}
	return model.TechCosts{
		Year:                year,
		Region:              norm(country),
		SolarPerMW:          solar,
		StoragePowerPerMW:   power,
		StorageEnergyPerMWh: energy,
	}, nil
}
