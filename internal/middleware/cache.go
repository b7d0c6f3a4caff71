package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/film-catalog/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	switch {
	case cw.limit <= 0:
		cw.buf.Write(b)
	case cw.size < cw.limit:
		remain := cw.limit - cw.size
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds a stable cache key honoring prefix/strategy and the
// current generation. The concrete request path is used, not the route
// template, so /api/actor/:id caches each actor separately.
func cacheKeyFrom(cfg config.CacheConfig, gen int64, r *http.Request) string {
	path := r.URL.Path
	query := r.URL.RawQuery

	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", path}
	case "method_route":
		parts = []string{"method", r.Method, "route", path}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", path, "q", query}
	default: // "route_query"
		parts = []string{"route", path, "q", query}
	}

	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:g%d:%x", cfg.Prefix, gen, sum[:])
}

// generationKey holds the write counter. It sits outside the prefix:*
// pattern so PurgeCache never resets it.
func generationKey(prefix string) string { return prefix + "-gen" }

// currentGeneration reads the write counter; a missing key is generation 0.
func currentGeneration(ctx context.Context, rdb *redis.Client, prefix string) (int64, error) {
	gen, err := rdb.Get(ctx, generationKey(prefix)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// ownedHeader reports headers set by middleware outside the cache. They
// belong to the live request and are neither stored nor replayed.
func ownedHeader(k string) bool {
	k = http.CanonicalHeaderKey(k)
	switch k {
	case echo.HeaderContentLength, echo.HeaderVary, echo.HeaderXRequestID, "X-Cache", "Retry-After":
		return true
	}
	return strings.HasPrefix(k, "Access-Control-") || strings.HasPrefix(k, "X-Ratelimit-")
}

// cacheableHeader returns the response headers worth replaying on a hit.
func cacheableHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vals := range h {
		if !ownedHeader(k) {
			out[k] = append([]string(nil), vals...)
		}
	}
	return out
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewRedisCache serves cached GET responses and stores fresh 200 responses
// (headers + body) so clients see byte-identical output. Keys carry a
// generation number. A request with another method that succeeds bumps the
// generation and purges the old keys, so a read that raced the write stores
// its stale body under a generation nobody asks for again.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				err := next(c)
				if err == nil && c.Response().Status < http.StatusBadRequest {
					if perr := InvalidateCache(context.WithoutCancel(c.Request().Context()), rdb, cfg.Prefix); perr != nil {
						log.Warn().Err(perr).Msg("cache: invalidate after write failed")
					}
				}
				return err
			}

			ctx := c.Request().Context()
			gen, err := currentGeneration(ctx, rdb, cfg.Prefix)
			if err != nil {
				log.Warn().Err(err).Msg("cache: generation unavailable, serving uncached")
				return next(c)
			}
			key := cacheKeyFrom(cfg, gen, c.Request())

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					out := c.Response().Header()
					for k, vals := range hdr {
						if ownedHeader(k) {
							continue
						}
						out.Del(k)
						for _, v := range vals {
							out.Add(k, v)
						}
					}
					out.Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil // truncated bodies are never cached
			}
			payload, err := encodePayload(cw.status, cacheableHeader(c.Response().Header()), cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
				log.Debug().Err(err).Msg("cache: store failed")
			}
			return nil
		}
	}
}

// InvalidateCache moves the cache to a new generation, then deletes the keys
// of earlier generations.
func InvalidateCache(ctx context.Context, rdb *redis.Client, prefix string) error {
	if err := rdb.Incr(ctx, generationKey(prefix)).Err(); err != nil {
		return err
	}
	return PurgeCache(ctx, rdb, prefix)
}

// PurgeCache deletes every key under prefix.
func PurgeCache(ctx context.Context, rdb *redis.Client, prefix string) error {
	iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return rdb.Del(ctx, batch...).Err()
	}
	return nil
}
