package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/engine"
	"github.com/tartampluch/birthday-tracker/internal/eventbus"
	"github.com/tartampluch/birthday-tracker/internal/ical"
)

// cacheItem stores the rendered calendar and its HTTP caching metadata.
type cacheItem struct {
	data         []byte
	etag         string
	lastModified string // RFC1123 per HTTP
}

// CalendarCache serves the rendered ICS feed. The cache uses an atomic
// pointer for lock-free reads: clients poll the feed frequently while the
// content only changes on record mutations, so the hot path stays free of
// mutex contention.
type CalendarCache struct {
	log      *slog.Logger
	gen      *ical.Generator
	records  func() []engine.Record
	defaults func() []int

	cache atomic.Pointer[cacheItem]
}

// NewCalendarCache creates the cache. Call Refresh once at startup so the
// feed is available before the first mutation.
func NewCalendarCache(gen *ical.Generator, records func() []engine.Record, defaults func() []int, log *slog.Logger) *CalendarCache {
	if log == nil {
		log = slog.Default()
	}
	return &CalendarCache{
		log:      log.With(config.LogKeyComponent, config.CompServer),
		gen:      gen,
		records:  records,
		defaults: defaults,
	}
}

// Refresh regenerates the feed and atomically replaces the served copy.
func (c *CalendarCache) Refresh() error {
	data, err := c.gen.Generate(c.records(), c.defaults())
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrCalendarGenerate, err)
	}

	hash := sha256.Sum256(data)
	item := &cacheItem{
		data:         data,
		etag:         fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:])),
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	}
	c.cache.Store(item)

	c.log.Debug(config.MsgCacheUpdated,
		config.LogKeySizeBytes, len(item.data),
		config.LogKeyETag, item.etag,
	)
	return nil
}

// Watch refreshes the feed whenever the record set changes. Run as a
// goroutine; returns when the context is canceled.
func (c *CalendarCache) Watch(ctx context.Context, bus eventbus.Bus) {
	ch, unsub := bus.Subscribe(config.EventBusBuffer)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.Type != config.EventUpdated {
				continue
			}
			if err := c.Refresh(); err != nil {
				c.log.Error(config.ErrCalendarGenerate, config.LogKeyError, err)
			}
		}
	}
}

// ServeHTTP serves the ICS content with conditional request support.
func (c *CalendarCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	item := c.cache.Load()
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set(config.HeaderContentType, config.MimeTextCalendar)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			c.log.Error(config.ErrWriteResp, config.LogKeyError, err)
		}
	}
}
