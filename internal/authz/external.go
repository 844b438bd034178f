package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ExternalBackend is the "real" policy backend alongside AllowAllBackend: it
// delegates every check to a remote decision point over a minimal JSON/HTTP
// contract. The wire shape (subject/object tuples named "type:id", one
// request per batch) mirrors the tuple encoding an OpenFGA-style store
// would use, generalized to a plain HTTP check endpoint since no policy
// engine client SDK is available here — net/http is used directly rather
// than fabricating one.
type ExternalBackend struct {
	Endpoint string
	Client   *http.Client
}

func NewExternalBackend(endpoint string) *ExternalBackend {
	return &ExternalBackend{Endpoint: endpoint, Client: http.DefaultClient}
}

type checkRequest struct {
	Subject string      `json:"subject"`
	Checks  []wireCheck `json:"checks"`
}

type wireCheck struct {
	Object string `json:"object"` // "{resource_kind}:{id}"
	Action string `json:"action"`
}

type checkResponse struct {
	Decisions []bool `json:"decisions"`
}

func (b *ExternalBackend) BatchCheck(ctx context.Context, principal string, checks []Check) ([]bool, error) {
	if len(checks) == 0 {
		return nil, nil
	}

	wire := make([]wireCheck, len(checks))
	for i, c := range checks {
		wire[i] = wireCheck{Object: encodeResource(c.Resource), Action: string(c.Action)}
	}

	body, err := json.Marshal(checkRequest{Subject: principal, Checks: wire})
	if err != nil {
		return nil, fmt.Errorf("encode authz request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint+"/v1/batch-check", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build authz request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call authz backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("authz backend returned status %d", resp.StatusCode)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode authz response: %w", err)
	}

	return out.Decisions, nil
}

// encodeResource renders a resource as the "type:id" tuple the rest of this
// package's grounding material (entities.rs) uses for OpenFGA object keys.
func encodeResource(r Resource) string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
