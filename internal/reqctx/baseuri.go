package reqctx

import "strings"

// HeaderGetter is satisfied by both net/http.Header.Get and fiber.Ctx.Get,
// letting BaseURICatalog stay independent of the HTTP framework adapter
// that ultimately calls it.
type HeaderGetter interface {
	Get(key string) string
}

// DeriveBaseURICatalog reconstructs the client-visible base URI from the
// x-forwarded-* headers, falling back to the request's own Host and scheme
// when the headers are absent (no reverse proxy in front).
func DeriveBaseURICatalog(h HeaderGetter, requestHost, requestScheme string) string {
	proto := firstNonEmpty(h.Get("X-Forwarded-Proto"), requestScheme, "http")
	host := firstNonEmpty(h.Get("X-Forwarded-Host"), requestHost)
	port := h.Get("X-Forwarded-Port")
	prefix := strings.TrimSuffix(h.Get("X-Forwarded-Prefix"), "/")

	if port != "" && !strings.Contains(host, ":") && !isDefaultPort(proto, port) {
		host = host + ":" + port
	}

	return proto + "://" + host + prefix + "/catalog"
}

func isDefaultPort(proto, port string) bool {
	return (proto == "http" && port == "80") || (proto == "https" && port == "443")
}

func firstNonEmpty(vals...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}
