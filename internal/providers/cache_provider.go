package providers

import (
	"rad/internal/structures"
	"unsafe"

	"github.com/coocood/freecache"
)

// Namespace separates cached entity types. Each namespace carries its own
// TTL because the underlying data goes stale at very different rates.
type Namespace uint8

const (
	NsUser Namespace = iota
	NsConfig
	NsStats
	NsEligibility
	NsTop
)

var nsNames = map[Namespace]string{
	NsUser:        "user",
	NsConfig:      "config",
	NsStats:       "stats",
	NsEligibility: "eligibility",
	NsTop:         "top",
}

func (n Namespace) String() string {
	return nsNames[n]
}

type CacheProviderInterface interface {
	Get(ns Namespace, key string) ([]byte, bool)
	Set(ns Namespace, key string, value []byte)
	Del(ns Namespace, key string)
}

type CacheProvider struct {
	cache *freecache.Cache
	ttl   map[Namespace]int // seconds
}

func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	if !conf.Cache.Enabled || conf.Cache.Size <= 0 {
		logger.Infof(TypeApp, "Cache disabled")
		return &noopCache{}
	}

	sizeBytes := conf.Cache.Size * 1024 * 1024
	ttl := map[Namespace]int{
		NsUser:        max(int(conf.Cache.UserTTL.Seconds()), 1),
		NsConfig:      max(int(conf.Cache.ConfigTTL.Seconds()), 1),
		NsStats:       max(int(conf.Cache.StatsTTL.Seconds()), 1),
		NsEligibility: max(int(conf.Cache.EligibilityTTL.Seconds()), 1),
		NsTop:         max(int(conf.Cache.TopTTL.Seconds()), 1),
	}

	logger.Infof(TypeApp, "Cache initialized: %dMB, TTLs user=%ds config=%ds stats=%ds elgbl=%ds top=%ds",
		conf.Cache.Size, ttl[NsUser], ttl[NsConfig], ttl[NsStats], ttl[NsEligibility], ttl[NsTop])

	return &CacheProvider{
		cache: freecache.NewCache(sizeBytes),
		ttl:   ttl,
	}
}

// unsafeStringToBytes converts string to []byte without allocation. Safe
// because freecache copies keys internally and never mutates them.
func unsafeStringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func nsKey(ns Namespace, key string) string {
	return nsNames[ns] + ":" + key
}

func (c *CacheProvider) Get(ns Namespace, key string) ([]byte, bool) {
	val, err := c.cache.Get(unsafeStringToBytes(nsKey(ns, key)))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *CacheProvider) Set(ns Namespace, key string, value []byte) {
	_ = c.cache.Set(unsafeStringToBytes(nsKey(ns, key)), value, c.ttl[ns])
}

func (c *CacheProvider) Del(ns Namespace, key string) {
	c.cache.Del(unsafeStringToBytes(nsKey(ns, key)))
}

type noopCache struct{}

func (n *noopCache) Get(_ Namespace, _ string) ([]byte, bool) { return nil, false }
func (n *noopCache) Set(_ Namespace, _ string, _ []byte)      {}
func (n *noopCache) Del(_ Namespace, _ string)                {}
