package httpx

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ironlake-data/catalog/internal/reqctx"
)

// fiberHeaders adapts *fiber.Ctx to reqctx.HeaderGetter, since reqctx stays
// framework-agnostic and has no direct dependency on fiber.
type fiberHeaders struct{ c *fiber.Ctx }

func (h fiberHeaders) Get(key string) string { return h.c.Get(key) }

// WithRequestContext resolves the request context for every inbound
// request and stashes it on the Go context: assign-if-absent correlation
// id, propagated in the response, generalized to the full actor/project/
// base-uri resolution this service needs. The server's configured default
// project id is applied later, per handler, by reqctx.RequireProjectID —
// it is not part of request-context resolution.
func WithRequestContext(resolver *reqctx.ActorResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := reqctx.RawRequest{
			Headers:           fiberHeaders{c},
			Method:            c.Method(),
			MatchedPath:       c.Route().Path,
			Host:              c.Hostname(),
			Scheme:            c.Protocol(),
			AuthorizationHdr:  c.Get(fiber.HeaderAuthorization),
			ProjectIDHeader:   c.Get("x-project-id"),
			IncomingRequestID: c.Get("X-Request-Id"),
		}

		rc, err := resolver.Resolve(c.UserContext(), raw)
		if err != nil {
			return WithError(c, err)
		}

		c.Set("X-Request-Id", rc.RequestID)
		c.SetUserContext(reqctx.WithRequestContext(c.UserContext(), rc))

		return c.Next()
	}
}
