package boundary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/bsaid97/go-border-snapper/config"
	"github.com/bsaid97/go-border-snapper/logger"
	"github.com/bsaid97/go-border-snapper/metrics"
)

const (
	DefaultBaseURL = "https://www.geoboundaries.org/api/current"
	DefaultRelease = "gbOpen"
)

// maxDocumentBytes caps a downloaded boundary document.
const maxDocumentBytes = 512 << 20

type Options struct {
	BaseURL        string
	Release        string
	Timeout        time.Duration
	RequestsPerSec float64
	Files          *FileCache
	// Shared is an optional second cache level, e.g. Redis.
	Shared Cache
	HTTP   *http.Client
}

// Provider resolves dataset metadata and downloads boundary documents through
// a file cache.
type Provider struct {
	baseURL string
	release string
	timeout time.Duration
	limiter *rate.Limiter
	files   *FileCache
	shared  Cache
	http    *http.Client
	redis   *redis.Client
}

func NewProvider(opts Options) (*Provider, error) {
	if opts.Files == nil {
		return nil, fmt.Errorf("boundary provider needs a file cache")
	}
	p := &Provider{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		release: opts.Release,
		timeout: opts.Timeout,
		files:   opts.Files,
		shared:  opts.Shared,
		http:    opts.HTTP,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	if p.baseURL == "" {
		p.baseURL = DefaultBaseURL
	}
	if p.release == "" {
		p.release = DefaultRelease
	}
	if p.timeout <= 0 {
		p.timeout = 60 * time.Second
	}
	if opts.RequestsPerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1)
	}
	if p.http == nil {
		p.http = &http.Client{}
	}
	return p, nil
}

// NewProviderFromConfig builds the provider the service and the CLI share: a
// file cache under cfg.BoundaryCacheDir plus Redis when cfg.RedisAddr is set.
// Close releases the Redis connection.
func NewProviderFromConfig(cfg config.Config) (*Provider, error) {
	files, err := NewFileCache(cfg.BoundaryCacheDir)
	if err != nil {
		return nil, err
	}
	opts := Options{
		BaseURL:        cfg.BoundaryAPIURL,
		Release:        cfg.BoundaryRelease,
		Timeout:        cfg.BoundaryFetchTimeout,
		RequestsPerSec: cfg.BoundaryRPS,
		Files:          files,
	}
	client := OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if client != nil {
		opts.Shared = &RedisCache{Client: client, Prefix: "boundary:"}
	}
	p, err := NewProvider(opts)
	if err != nil {
		if client != nil {
			client.Close()
		}
		return nil, err
	}
	p.redis = client
	return p, nil
}

// Close releases connections opened by NewProviderFromConfig.
func (p *Provider) Close() error {
	if p.redis == nil {
		return nil
	}
	return p.redis.Close()
}

func (p *Provider) withRelease(key Key) Key {
	key = key.normalized()
	if key.Release == "" {
		key.Release = p.release
	}
	return key
}

// Metadata asks the API for the dataset identified by key.
func (p *Provider) Metadata(ctx context.Context, key Key) (Metadata, error) {
	key = p.withRelease(key)
	url := fmt.Sprintf("%s/%s/%s/ADM%d/", p.baseURL, key.Release, key.Country, key.Level)
	body, err := p.get(ctx, url)
	if err != nil {
		return Metadata{}, err
	}

	// The API answers with an object, or with a one-element array for some
	// releases.
	var meta Metadata
	if trimmed := strings.TrimSpace(string(body)); strings.HasPrefix(trimmed, "[") {
		var list []Metadata
		if err := json.Unmarshal(body, &list); err != nil {
			return Metadata{}, fmt.Errorf("%w: decode metadata for %s: %v", ErrFetch, key, err)
		}
		if len(list) == 0 {
			return Metadata{}, fmt.Errorf("%w: no dataset for %s", ErrNoGeometryURL, key)
		}
		meta = list[0]
	} else if err := json.Unmarshal(body, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: decode metadata for %s: %v", ErrFetch, key, err)
	}
	return meta, nil
}

// Fetch returns the local path of the boundary document for key, downloading
// it on a cache miss.
func (p *Provider) Fetch(ctx context.Context, key Key, fidelity Fidelity) (string, error) {
	key = p.withRelease(key)
	if _, err := p.fetch(ctx, key, fidelity, false); err != nil {
		return "", err
	}
	return p.files.Path(key.cacheName(fidelity)), nil
}

// Load fetches the document for key and returns its content.
func (p *Provider) Load(ctx context.Context, key Key, fidelity Fidelity) ([]byte, error) {
	return p.fetch(ctx, p.withRelease(key), fidelity, true)
}

// fetch makes sure the document for key is in the file cache. The content is
// returned when needData is set or when it had to be obtained anyway.
func (p *Provider) fetch(ctx context.Context, key Key, fidelity Fidelity, needData bool) ([]byte, error) {
	name := key.cacheName(fidelity)

	if needData {
		if data, ok, err := p.files.Get(ctx, name); err == nil && ok {
			p.fileHit(key, fidelity)
			return data, nil
		}
	} else if p.files.Has(name) {
		p.fileHit(key, fidelity)
		return nil, nil
	}

	if p.shared != nil {
		data, ok, err := p.shared.Get(ctx, name)
		if err != nil {
			logger.L().Warn("boundary_shared_cache_failed", "key", key.String(), "err", err)
		} else if ok {
			metrics.BoundaryCacheHitsTotal.WithLabelValues("shared").Inc()
			if err := p.files.Put(ctx, name, data); err != nil {
				return nil, fmt.Errorf("cache boundary %s: %w", key, err)
			}
			return data, nil
		}
	}

	metrics.BoundaryCacheMissesTotal.Inc()
	meta, err := p.Metadata(ctx, key)
	if err != nil {
		return nil, err
	}
	url, err := meta.URL(fidelity)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger.L().Info("boundary_download", "key", key.String(), "fidelity", fidelity, "url", url)
	data, err := p.get(ctx, url)
	if err != nil {
		return nil, err
	}
	metrics.BoundaryFetchDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	if err := p.files.Put(ctx, name, data); err != nil {
		return nil, fmt.Errorf("cache boundary %s: %w", key, err)
	}
	if p.shared != nil {
		if err := p.shared.Put(ctx, name, data); err != nil {
			logger.L().Warn("boundary_shared_cache_put_failed", "key", key.String(), "err", err)
		}
	}
	return data, nil
}

func (p *Provider) fileHit(key Key, fidelity Fidelity) {
	metrics.BoundaryCacheHitsTotal.WithLabelValues("file").Inc()
	logger.L().Debug("boundary_cache_hit", "tier", "file", "key", key.String(), "fidelity", fidelity)
}

func (p *Provider) get(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrFetch, url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrFetch, url, err)
	}
	return body, nil
}
