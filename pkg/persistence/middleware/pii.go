package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/arbor/pkg/ports"
	"github.com/paulmach/orb/geojson"
)

// Mask replaces the values of masked properties.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks feature properties whose key
// matches one of the patterns, nested maps included.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, key string, fc *geojson.FeatureCollection) error {
	// the caller's collection is live container data: mask a copy
	cloned := *fc
	cloned.Features = make([]*geojson.Feature, len(fc.Features))
	for i, f := range fc.Features {
		c := *f
		c.Properties = deepCopyMap(f.Properties)
		maskMap(c.Properties, m.patterns)
		cloned.Features[i] = &c
	}
	return m.next.Save(ctx, key, &cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, key string) (*geojson.FeatureCollection, error) {
	return m.next.Load(ctx, key)
}

func (m *piiMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(sub)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if sub, ok := v.(map[string]any); ok && !masked {
			maskMap(sub, patterns)
		}
	}
}
