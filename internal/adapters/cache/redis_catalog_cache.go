package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/platform/metrics"
	"waste-route-service/internal/platform/obs"
	"waste-route-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

const DefaultCatalogKey = "disposal_sites:v1"

// RedisDisposalSiteCache is a read-through cache for the disposal-site catalog.
// The whole catalog is stored as one JSON value so that every reader sees the
// same snapshot, in the same order.
//
// Redis failures never fail a read; the cache falls back to Next.
type RedisDisposalSiteCache struct {
	RDB  *redis.Client
	Next ports.DisposalSiteCatalog
	TTL  time.Duration
	Key  string
}

func NewRedisDisposalSiteCache(rdb *redis.Client, next ports.DisposalSiteCatalog, ttl time.Duration) *RedisDisposalSiteCache {
	return &RedisDisposalSiteCache{RDB: rdb, Next: next, TTL: ttl, Key: DefaultCatalogKey}
}

type cachedSite struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Address            string            `json:"address"`
	Lat                float64           `json:"lat"`
	Lng                float64           `json:"lng"`
	AcceptedWasteTypes []string          `json:"accepted_waste_types"`
	OpeningHours       domain.HoursTable `json:"opening_hours"`
}

// Fetch the catalog from Redis, loading and storing it on a miss.
func (c *RedisDisposalSiteCache) ListDisposalSites(ctx context.Context) (_ []*domain.DisposalSite, err error) {
	defer obs.Time(ctx, "sites.cache.ListDisposalSites")(&err)

	if c.Next == nil {
		return nil, errors.New("disposal site cache: next catalog is nil")
	}

	if c.RDB != nil {
		raw, err := c.RDB.Get(ctx, c.Key).Bytes()
		switch {
		case err == nil:
			sites, decodeErr := decodeCatalog(raw)
			if decodeErr == nil {
				metrics.CatalogCache.WithLabelValues("hit").Inc()
				return sites, nil
			}
			metrics.CatalogCache.WithLabelValues("error").Inc()
			log.Printf("disposal site cache decode failed: %v", decodeErr)
		case errors.Is(err, redis.Nil):
			metrics.CatalogCache.WithLabelValues("miss").Inc()
		default:
			metrics.CatalogCache.WithLabelValues("error").Inc()
			log.Printf("disposal site cache read failed: %v", err)
		}
	}

	sites, err := c.Next.ListDisposalSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("disposal site cache: load catalog: %w", err)
	}

	if c.RDB != nil {
		payload, err := encodeCatalog(sites)
		if err != nil {
			log.Printf("disposal site cache encode failed: %v", err)
		} else if err := c.RDB.Set(ctx, c.Key, payload, c.TTL).Err(); err != nil {
			log.Printf("disposal site cache write failed: %v", err)
		}
	}

	return sites, nil
}

// Lookups go through the cached snapshot so they agree with ListDisposalSites.
func (c *RedisDisposalSiteCache) GetDisposalSite(ctx context.Context, id string) (*domain.DisposalSite, error) {
	sites, err := c.ListDisposalSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("get disposal site: %w", err)
	}
	for _, s := range sites {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("get disposal site %q: %w", id, ports.ErrNotFound)
}

// Invalidate drops the cached snapshot; the next read reloads it.
func (c *RedisDisposalSiteCache) Invalidate(ctx context.Context) error {
	if c.RDB == nil {
		return nil
	}
	if err := c.RDB.Del(ctx, c.Key).Err(); err != nil {
		return fmt.Errorf("disposal site cache: invalidate: %w", err)
	}
	return nil
}

func encodeCatalog(sites []*domain.DisposalSite) ([]byte, error) {
	out := make([]cachedSite, 0, len(sites))
	for _, s := range sites {
		types := make([]string, 0, len(s.AcceptedWasteTypes))
		for _, t := range s.AcceptedWasteTypes {
			types = append(types, string(t))
		}
		out = append(out, cachedSite{
			ID:                 s.ID,
			Name:               s.Name,
			Address:            s.Address,
			Lat:                s.Location.Lat,
			Lng:                s.Location.Lng,
			AcceptedWasteTypes: types,
			OpeningHours:       s.OpeningHours.Table(),
		})
	}
	return json.Marshal(out)
}

func decodeCatalog(raw []byte) ([]*domain.DisposalSite, error) {
	var cached []cachedSite
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	out := make([]*domain.DisposalSite, 0, len(cached))
	for _, cs := range cached {
		hours, err := domain.ParseHoursTable(cs.OpeningHours)
		if err != nil {
			return nil, fmt.Errorf("decode catalog site %s: %w", cs.ID, err)
		}
		types := make(domain.WasteTypes, 0, len(cs.AcceptedWasteTypes))
		for _, t := range cs.AcceptedWasteTypes {
			types = append(types, domain.WasteType(t))
		}
		out = append(out, &domain.DisposalSite{
			ID:                 cs.ID,
			Name:               cs.Name,
			Address:            cs.Address,
			Location:           domain.Coordinates{Lat: cs.Lat, Lng: cs.Lng},
			AcceptedWasteTypes: types,
			OpeningHours:       hours,
		})
	}
	return out, nil
}
