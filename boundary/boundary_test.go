package boundary

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsaid97/go-border-snapper/config"
)

const kenyaADM1 = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"shapeName":"Nairobi"},"geometry":{"type":"Polygon","coordinates":[[[36.6,-1.45],[37.1,-1.45],[37.1,-1.15],[36.6,-1.15],[36.6,-1.45]]]}}]}`

type fakeAPI struct {
	srv       *httptest.Server
	metadata  atomic.Int32
	downloads atomic.Int32
	asArray   bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	api := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/gbOpen/KEN/ADM1/", func(w http.ResponseWriter, r *http.Request) {
		api.metadata.Add(1)
		meta := fmt.Sprintf(`{"boundaryISO":"KEN","boundaryType":"ADM1","gjDownloadURL":"%s/files/KEN_ADM1.geojson","simplifiedGeometryGeoJSON":""}`, api.srv.URL)
		if api.asArray {
			meta = "[" + meta + "]"
		}
		_, _ = w.Write([]byte(meta))
	})
	mux.HandleFunc("/files/KEN_ADM1.geojson", func(w http.ResponseWriter, r *http.Request) {
		api.downloads.Add(1)
		_, _ = w.Write([]byte(kenyaADM1))
	})
	mux.HandleFunc("/broken/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	api.srv = httptest.NewServer(mux)
	t.Cleanup(api.srv.Close)
	return api
}

func newTestProvider(t *testing.T, baseURL string, shared Cache) *Provider {
	files, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	p, err := NewProvider(Options{BaseURL: baseURL, Files: files, Shared: shared, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return p
}

// memoryCache is a Cache backed by a map.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, name string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[name]
	return d, ok, nil
}

func (m *memoryCache) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[name] = data
	return nil
}

func TestProviderLoadCaches(t *testing.T) {
	api := newFakeAPI(t)
	shared := &memoryCache{}
	p := newTestProvider(t, api.srv.URL, shared)
	key := Key{Country: "ken", Level: 1}

	data, err := p.Load(context.Background(), key, Full)
	require.NoError(t, err)
	assert.JSONEq(t, kenyaADM1, string(data))

	again, err := p.Load(context.Background(), key, Full)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	assert.Equal(t, int32(1), api.metadata.Load())
	assert.Equal(t, int32(1), api.downloads.Load())

	stored, ok, err := shared.Get(context.Background(), "gbOpen_KEN_ADM1_full.geojson")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, data, stored)
}

func TestProviderSharedCacheHit(t *testing.T) {
	api := newFakeAPI(t)
	shared := &memoryCache{}
	require.NoError(t, shared.Put(context.Background(), "gbOpen_KEN_ADM1_full.geojson", []byte(kenyaADM1)))
	p := newTestProvider(t, api.srv.URL, shared)

	path, err := p.Fetch(context.Background(), Key{Country: "KEN", Level: 1}, Full)
	require.NoError(t, err)
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, kenyaADM1, string(onDisk))
	assert.Equal(t, int32(0), api.metadata.Load())
}

func TestProviderMetadataArray(t *testing.T) {
	api := newFakeAPI(t)
	api.asArray = true
	p := newTestProvider(t, api.srv.URL, nil)

	meta, err := p.Metadata(context.Background(), Key{Country: "KEN", Level: 1})
	require.NoError(t, err)
	assert.Equal(t, "KEN", meta.BoundaryISO)
	assert.Equal(t, "ADM1", meta.BoundaryType)
}

func TestProviderErrors(t *testing.T) {
	api := newFakeAPI(t)

	var tests = []struct {
		name     string
		baseURL  string
		key      Key
		fidelity Fidelity
		want     error
	}{
		{name: "no simplified url", baseURL: api.srv.URL, key: Key{Country: "KEN", Level: 1}, fidelity: Simplified, want: ErrNoGeometryURL},
		{name: "unknown dataset", baseURL: api.srv.URL, key: Key{Country: "ATL", Level: 1}, fidelity: Full, want: ErrFetch},
		{name: "server error", baseURL: api.srv.URL + "/broken", key: Key{Country: "KEN", Level: 1}, fidelity: Full, want: ErrFetch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, tt.baseURL, nil)
			_, err := p.Load(context.Background(), tt.key, tt.fidelity)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProviderCancelled(t *testing.T) {
	api := newFakeAPI(t)
	p := newTestProvider(t, api.srv.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Fetch(ctx, Key{Country: "KEN", Level: 1}, Full)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, int32(0), api.downloads.Load())
}

func TestNewProviderDefaults(t *testing.T) {
	_, err := NewProvider(Options{})
	assert.Error(t, err)

	files, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	p, err := NewProvider(Options{Files: files, RequestsPerSec: 2})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, p.baseURL)
	assert.Equal(t, DefaultRelease, p.release)
	assert.Equal(t, 60*time.Second, p.timeout)
	assert.InDelta(t, 2, float64(p.limiter.Limit()), 1e-9)
}

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing.geojson")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "a.geojson", []byte("one")))
	require.NoError(t, c.Put(ctx, "a.geojson", []byte("two")))
	data, ok, err := c.Get(ctx, "a.geojson")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", string(data))

	// Names cannot escape the cache directory.
	assert.Equal(t, c.Path("a.geojson"), c.Path("../../a.geojson"))

	entries, err := os.ReadDir(c.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("BOUNDARY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOUNDARY_TEST_REDIS_ADDR not set")
	}
	client := OpenRedis(addr, "", 0)
	defer client.Close()
	c := &RedisCache{Client: client, Prefix: "boundary-test:", TTL: time.Minute}
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "doc", []byte(kenyaADM1)))
	data, ok, err := c.Get(ctx, "doc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, kenyaADM1, string(data))
}

func TestOpenRedisDisabled(t *testing.T) {
	assert.Nil(t, OpenRedis("", "", 0))
}

func TestParseFidelity(t *testing.T) {
	var tests = []struct {
		in      string
		want    Fidelity
		wantErr bool
	}{
		0: {in: "", want: Full},
		1: {in: "FULL", want: Full},
		2: {in: " simplified ", want: Simplified},
		3: {in: "coarse", wantErr: true},
	}

	for k, test := range tests {
		got, err := ParseFidelity(test.in)
		if test.wantErr {
			assert.Error(t, err, "test %d", k)
			continue
		}
		assert.NoError(t, err, "test %d", k)
		assert.Equal(t, test.want, got, "test %d", k)
	}
}

func TestKey(t *testing.T) {
	key := Key{Country: " ken ", Level: 2, Release: "gbOpen"}
	assert.Equal(t, "gbOpen/KEN/ADM2", key.String())
	assert.Equal(t, "gbOpen_KEN_ADM2_simplified.geojson", key.cacheName(Simplified))
}

func TestKeyValidate(t *testing.T) {
	var tests = []struct {
		level int
		valid bool
	}{
		0: {level: 0, valid: true},
		1: {level: 5, valid: true},
		2: {level: -1},
		3: {level: 6},
	}

	for i, tt := range tests {
		err := Key{Country: "KEN", Level: tt.level}.Validate()
		if tt.valid {
			assert.NoError(t, err, "test %d", i)
		} else {
			assert.Error(t, err, "test %d", i)
		}
	}
}

func TestProviderFetchThenLoad(t *testing.T) {
	api := newFakeAPI(t)
	p := newTestProvider(t, api.srv.URL, nil)
	key := Key{Country: "KEN", Level: 1}

	path, err := p.Fetch(context.Background(), key, Full)
	require.NoError(t, err)
	assert.True(t, p.files.Has("gbOpen_KEN_ADM1_full.geojson"))
	assert.FileExists(t, path)

	again, err := p.Fetch(context.Background(), key, Full)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	data, err := p.Load(context.Background(), key, Full)
	require.NoError(t, err)
	assert.JSONEq(t, kenyaADM1, string(data))
	assert.Equal(t, int32(1), api.downloads.Load())
	assert.False(t, p.files.Has("gbOpen_KEN_ADM1_simplified.geojson"))
}

func TestNewProviderFromConfig(t *testing.T) {
	api := newFakeAPI(t)
	dir := t.TempDir()
	p, err := NewProviderFromConfig(config.Config{BoundaryCacheDir: dir, BoundaryAPIURL: api.srv.URL})
	require.NoError(t, err)
	defer func() { assert.NoError(t, p.Close()) }()
	assert.Nil(t, p.shared)

	path, err := p.Fetch(context.Background(), Key{Country: "KEN", Level: 1}, Full)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gbOpen_KEN_ADM1_full.geojson"), path)

	_, err = NewProviderFromConfig(config.Config{BoundaryCacheDir: filepath.Join(path, "nested")})
	assert.Error(t, err)
}
