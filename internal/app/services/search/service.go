// Package search implements the tiered fuzzy search over customers,
// projects and samples. Matches rank exact > substring > regex > edit
// distance, the fuzzy tier orders ascending by distance, matches are
// deduplicated by record, and each search caps its result count.
package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/atlaslab/labmanager/internal/app/domain/customer"
	"github.com/atlaslab/labmanager/internal/app/domain/project"
	"github.com/atlaslab/labmanager/internal/app/domain/sample"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/pkg/logger"
)

const (
	CustomerResultCap = 20
	ProjectResultCap  = 20
	SampleResultCap   = 50

	tierExact     = 0
	tierSubstring = 1
	tierRegex     = 2
	tierFuzzy     = 3
	tierMiss      = 4

	// codes tolerate up to two edits once the query is long enough to
	// be meaningful
	codeFuzzyMinQuery = 3
	codeFuzzyMaxDist  = 2
)

// Service runs searches against the store.
type Service struct {
	backend storage.Backend
	log     *logger.Logger
}

// New constructs a search service.
func New(backend storage.Backend, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("search")
	}
	return &Service{backend: backend, log: log}
}

// match is one field's rank. dist only matters on the fuzzy tier,
// where results order ascending by edit distance.
type match struct {
	tier int
	dist int
}

var miss = match{tier: tierMiss}

// Customers searches customer code and name.
func (s *Service) Customers(ctx context.Context, query string) ([]customer.Customer, error) {
	q := normalize(query)
	if q == "" {
		return nil, nil
	}
	all, err := s.backend.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}

	re := compileQuery(q)
	type scored struct {
		match
		c customer.Customer
	}
	var hits []scored
	for _, c := range all {
		m := bestMatch(
			matchCode(q, re, c.Code),
			matchText(q, re, c.Name),
		)
		if m.tier < tierMiss {
			hits = append(hits, scored{match: m, c: c})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].match.less(hits[j].match) })

	out := make([]customer.Customer, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.c)
		if len(out) == CustomerResultCap {
			break
		}
	}
	s.log.WithField("query", q).WithField("hits", len(out)).Debug("customer search")
	return out, nil
}

// Projects searches project code, name and description.
func (s *Service) Projects(ctx context.Context, query string) ([]project.Project, error) {
	q := normalize(query)
	if q == "" {
		return nil, nil
	}
	all, err := s.backend.ListProjects(ctx, 0)
	if err != nil {
		return nil, err
	}

	re := compileQuery(q)
	type scored struct {
		match
		p project.Project
	}
	var hits []scored
	for _, p := range all {
		m := bestMatch(
			matchCode(q, re, p.Code),
			matchText(q, re, p.Name),
			matchText(q, re, p.Description),
		)
		if m.tier < tierMiss {
			hits = append(hits, scored{match: m, p: p})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].match.less(hits[j].match) })

	out := make([]project.Project, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.p)
		if len(out) == ProjectResultCap {
			break
		}
	}
	s.log.WithField("query", q).WithField("hits", len(out)).Debug("project search")
	return out, nil
}

// Samples searches sample code, name and description.
func (s *Service) Samples(ctx context.Context, query string) ([]sample.Sample, error) {
	q := normalize(query)
	if q == "" {
		return nil, nil
	}
	all, err := s.backend.ListSamples(ctx)
	if err != nil {
		return nil, err
	}

	re := compileQuery(q)
	type scored struct {
		match
		s sample.Sample
	}
	var hits []scored
	for _, sm := range all {
		m := bestMatch(
			matchCode(q, re, sm.Code),
			matchText(q, re, sm.Name),
			matchText(q, re, sm.Description),
		)
		if m.tier < tierMiss {
			hits = append(hits, scored{match: m, s: sm})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].match.less(hits[j].match) })

	out := make([]sample.Sample, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.s)
		if len(out) == SampleResultCap {
			break
		}
	}
	s.log.WithField("query", q).WithField("hits", len(out)).Debug("sample search")
	return out, nil
}

func (m match) less(other match) bool {
	if m.tier != other.tier {
		return m.tier < other.tier
	}
	return m.dist < other.dist
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// compileQuery matches the query as an escaped literal, so
// metacharacters in user input carry no regex meaning.
func compileQuery(q string) *regexp.Regexp {
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(q))
	if err != nil {
		return nil
	}
	return re
}

func bestMatch(ms ...match) match {
	best := miss
	for _, m := range ms {
		if m.less(best) {
			best = m
		}
	}
	return best
}

// matchCode ranks a query against a fixed-length identifier code. A
// full-length query must match exactly; shorter queries of at least
// three characters tolerate up to two edits.
func matchCode(q string, re *regexp.Regexp, code string) match {
	lc := strings.ToLower(code)
	switch {
	case q == lc:
		return match{tier: tierExact}
	case strings.Contains(lc, q):
		return match{tier: tierSubstring}
	case re != nil && re.MatchString(code):
		return match{tier: tierRegex}
	case len(q) == len(lc):
		// full-length code queries get no fuzzy tolerance
		return miss
	case len(q) >= codeFuzzyMinQuery:
		if d := levenshtein(q, lc); d <= codeFuzzyMaxDist {
			return match{tier: tierFuzzy, dist: d}
		}
	}
	return miss
}

// matchText ranks a query against free text, allowing edits up to 30%
// of the query length.
func matchText(q string, re *regexp.Regexp, text string) match {
	if text == "" {
		return miss
	}
	lt := strings.ToLower(text)
	switch {
	case q == lt:
		return match{tier: tierExact}
	case strings.Contains(lt, q):
		return match{tier: tierSubstring}
	case re != nil && re.MatchString(text):
		return match{tier: tierRegex}
	}

	budget := len(q) * 3 / 10
	if budget == 0 {
		return miss
	}
	best := miss
	// compare against each word as well as the whole string so a typo
	// in one word of a long name still matches
	for _, word := range strings.Fields(lt) {
		if d := levenshtein(q, word); d <= budget && (best.tier == tierMiss || d < best.dist) {
			best = match{tier: tierFuzzy, dist: d}
		}
	}
	if d := levenshtein(q, lt); d <= budget && (best.tier == tierMiss || d < best.dist) {
		best = match{tier: tierFuzzy, dist: d}
	}
	return best
}
