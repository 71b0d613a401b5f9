// Package country maps free-text country names to ISO 3166-1 alpha-3 codes.
package country

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/xrash/smetrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/bsaid97/go-border-snapper/logger"
)

// ErrUnresolved is returned when no strategy maps the name to a code.
var ErrUnresolved = errors.New("country could not be resolved; supply an explicit ISO3 code")

// Strategy names the lookup that produced a code.
type Strategy string

const (
	StrategyCode   Strategy = "explicit_code"
	StrategyExact  Strategy = "exact"
	StrategyFuzzy  Strategy = "fuzzy"
	StrategyOnline Strategy = "online"
)

const (
	DefaultOnlineURL = "https://restcountries.com/v3.1"
	// DefaultFuzzyThreshold is the minimum Jaro-Winkler similarity accepted.
	DefaultFuzzyThreshold = 0.88
)

type Resolver struct {
	// Online enables the REST Countries fallback.
	Online    bool
	OnlineURL string
	Threshold float64
	HTTP      *http.Client

	codes map[string]string
	names map[string]string
}

func NewResolver(online bool) *Resolver {
	r := &Resolver{
		Online:    online,
		OnlineURL: DefaultOnlineURL,
		Threshold: DefaultFuzzyThreshold,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		codes:     make(map[string]string, len(countries)),
		names:     make(map[string]string, 3*len(countries)),
	}
	for _, c := range countries {
		r.codes[c.Code] = c.Name
		r.names[Normalize(c.Name)] = c.Code
		for _, alias := range c.Aliases {
			r.names[Normalize(alias)] = c.Code
		}
	}
	return r
}

// Name returns the common name for a known code.
func (r *Resolver) Name(code string) (string, bool) {
	name, ok := r.codes[strings.ToUpper(strings.TrimSpace(code))]
	return name, ok
}

// Resolve tries, in order: a known ISO3 code, an exact normalized name or
// alias, a fuzzy match, and the online lookup when enabled.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, Strategy, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: empty name", ErrUnresolved)
	}
	tried := []string{}

	tried = append(tried, string(StrategyCode))
	if len(trimmed) == 3 {
		if _, ok := r.codes[strings.ToUpper(trimmed)]; ok {
			return strings.ToUpper(trimmed), StrategyCode, nil
		}
	}

	key := Normalize(trimmed)
	tried = append(tried, string(StrategyExact))
	if code, ok := r.names[key]; ok {
		return code, StrategyExact, nil
	}

	tried = append(tried, string(StrategyFuzzy))
	if code, score := r.fuzzy(key); code != "" {
		logger.L().Debug("country_fuzzy_match", "name", name, "code", code, "score", score)
		return code, StrategyFuzzy, nil
	}

	if r.Online {
		tried = append(tried, string(StrategyOnline))
		code, err := r.online(ctx, trimmed)
		if err == nil {
			return code, StrategyOnline, nil
		}
		logger.L().Warn("country_online_lookup_failed", "name", name, "err", err)
	}

	return "", "", fmt.Errorf("%w: %q (tried %s)", ErrUnresolved, name, strings.Join(tried, ", "))
}

func (r *Resolver) fuzzy(key string) (string, float64) {
	bestCode, bestScore := "", 0.0
	for candidate, code := range r.names {
		score := smetrics.JaroWinkler(key, candidate, 0.7, 4)
		if score > bestScore || (score == bestScore && code < bestCode) {
			bestCode, bestScore = code, score
		}
	}
	if bestScore < r.Threshold {
		return "", bestScore
	}
	return bestCode, bestScore
}

type restCountry struct {
	CCA3 string `json:"cca3"`
}

func (r *Resolver) online(ctx context.Context, name string) (string, error) {
	endpoint := fmt.Sprintf("%s/name/%s?fields=cca3", strings.TrimRight(r.OnlineURL, "/"), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var found []restCountry
	if err := json.Unmarshal(body, &found); err != nil {
		return "", err
	}
	for _, c := range found {
		if len(c.CCA3) == 3 {
			return strings.ToUpper(c.CCA3), nil
		}
	}
	return "", errors.New("no cca3 in response")
}

// Normalize folds case and accents, drops punctuation and a leading "the", and
// collapses whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '\'':
			return -1
		default:
			return ' '
		}
	}, folded)
	words := strings.Fields(folded)
	if len(words) > 1 && words[0] == "the" {
		words = words[1:]
	}
	return strings.Join(words, " ")
}
