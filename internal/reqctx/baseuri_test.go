package reqctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeHeaders map[string]string

func (f fakeHeaders) Get(key string) string { return f[key] }

func TestDeriveBaseURICatalog_NoForwardingHeaders(t *testing.T) {
	got := DeriveBaseURICatalog(fakeHeaders{}, "catalog.internal", "https")

	assert.Equal(t, "https://catalog.internal/catalog", got)
}

func TestDeriveBaseURICatalog_ForwardedHeadersWin(t *testing.T) {
	h := fakeHeaders{
		"X-Forwarded-Proto":  "https",
		"X-Forwarded-Host":   "public.example.com",
		"X-Forwarded-Prefix": "/api/",
	}

	got := DeriveBaseURICatalog(h, "internal-host", "http")

	assert.Equal(t, "https://public.example.com/api/catalog", got)
}

func TestDeriveBaseURICatalog_NonDefaultPortAppended(t *testing.T) {
	h := fakeHeaders{
		"X-Forwarded-Proto": "https",
		"X-Forwarded-Host":  "public.example.com",
		"X-Forwarded-Port":  "8443",
	}

	got := DeriveBaseURICatalog(h, "internal-host", "http")

	assert.Equal(t, "https://public.example.com:8443/catalog", got)
}

func TestDeriveBaseURICatalog_DefaultPortOmitted(t *testing.T) {
	h := fakeHeaders{
		"X-Forwarded-Proto": "https",
		"X-Forwarded-Host":  "public.example.com",
		"X-Forwarded-Port":  "443",
	}

	got := DeriveBaseURICatalog(h, "internal-host", "http")

	assert.Equal(t, "https://public.example.com/catalog", got)
}

func TestDeriveBaseURICatalog_HostAlreadyCarriesPort(t *testing.T) {
	h := fakeHeaders{
		"X-Forwarded-Host": "public.example.com:9000",
		"X-Forwarded-Port": "1234",
	}

	got := DeriveBaseURICatalog(h, "internal-host", "http")

	assert.Equal(t, "http://public.example.com:9000/catalog", got)
}
