// Package scope carries the per-request site context that every data
// operation is restricted by. It is passed explicitly through the call
// chain; there is no ambient global.
package scope

import (
	"context"

	"github.com/interacthq/interaction-server-go/internal/model"
)

// Context is the resolved authorization state for one request: the
// verified user, the single active site, and the full site-id snapshot
// from the token.
type Context struct {
	User    *model.User
	SiteID  int64
	SiteIDs []int64
}

// AllowedSiteIDs returns the site ids data operations for this request
// may touch. The active site is the default scope; the token snapshot
// is the outer bound.
func (c *Context) AllowedSiteIDs() []int64 {
	return []int64{c.SiteID}
}

// HasSite reports whether the token snapshot includes the given site.
func (c *Context) HasSite(siteID int64) bool {
	for _, id := range c.SiteIDs {
		if id == siteID {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// With returns a child context carrying the site scope.
func With(ctx context.Context, sc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// From extracts the site scope from a request context, or nil when the
// request was not authenticated.
func From(ctx context.Context) *Context {
	if sc, ok := ctx.Value(ctxKey{}).(*Context); ok {
		return sc
	}
	return nil
}
