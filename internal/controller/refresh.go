package controller

import (
	"context"
	"fmt"

	"github.com/brightwell-systems/lumen-gateway/internal/gatewaylink"
	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

// OnInit is the Gateway Link's on-init hook (§4.3): once logged in, it
// issues one ?OUTPUT,<id>,1 query per known output, then a deferred pass
// of ?DEVICE,<id>,<led>,9 per LED-bearing component, and finally calls
// done on the sentinel empty command's prompt. Every reply's data is
// already being applied by OnInput as it streams in (the query/response
// pairing here exists only to sequence the refresh, not to extract
// values).
func (c *Controller) OnInit(l *gatewaylink.Link, done func()) {
	outputIDs := make([]int, 0, len(c.store.Outputs))
	for id := range c.store.Outputs {
		outputIDs = append(outputIDs, id)
	}

	pending := len(outputIDs)
	if pending == 0 {
		c.queryLEDs(l, done)
		return
	}

	for _, id := range outputIDs {
		l.Command(fmt.Sprintf("?OUTPUT,%d,1", id), func(string) {
			l.InitStillWorking()
			pending--
			if pending == 0 {
				c.queryLEDs(l, done)
			}
		}, func(error) {
			pending--
			if pending == 0 {
				c.queryLEDs(l, done)
			}
		})
	}
}

// queryLEDs issues the deferred ?DEVICE,<id>,<led>,9 pass, then sends a
// sentinel empty command whose prompt marks the refresh complete.
func (c *Controller) queryLEDs(l *gatewaylink.Link, done func()) {
	for devID, dev := range c.store.Devices {
		for _, comp := range dev.Components {
			if comp.LED < 0 {
				continue
			}
			l.Command(fmt.Sprintf("?DEVICE,%d,%d,9", devID, comp.LED), func(string) {
				l.InitStillWorking()
			}, nil)
		}
	}
	l.Command("", func(string) { done() }, func(error) { done() })
}

// LoadSchema installs a cached generation (if any) immediately so the
// daemon can start answering before the network fetch completes, then
// fetches the live document and, if it differs from what's installed,
// replaces the Store and persists the new generation to cache. ready is
// called once after the fetch resolves (success or failure); the
// Controller's onSchemaInvalid hook fires only if a cached generation was
// installed and the fetched generation differs from it (§4.3 Cache
// behavior, §8).
func (c *Controller) LoadSchema(ctx context.Context, cache *schema.Cache, fetcher *schema.Fetcher, ready func(error)) {
	hadCached := false
	if cache != nil {
		if cached, ok, err := cache.Load(ctx); err == nil && ok {
			c.store.Replace(cached)
			hadCached = true
		}
	}

	fetcher.Fetch(func(gen schema.Generation, err error) {
		if err != nil {
			ready(err)
			return
		}
		if !gen.Equal(c.store.Generation()) {
			c.store.Replace(gen)
			if hadCached && c.onSchemaInvalid != nil {
				c.onSchemaInvalid()
			}
		}
		if cache != nil {
			_ = cache.Save(ctx, gen)
		}
		ready(nil)
	})
}
