package reqctx

import "github.com/ironlake-data/catalog/internal/domain"

// RequireProjectID resolves the acting project for a request: an explicit
// caller-supplied argument wins, then the request's preferred project
// (from the x-project-id header), then the server's configured default;
// absent all three it is a validation error.
func RequireProjectID(explicit *string, rc *RequestContext, defaultProjectID string) (string, error) {
	if explicit != nil && *explicit != "" {
		return *explicit, nil
	}

	if rc != nil && rc.PreferredProjectID != "" {
		return rc.PreferredProjectID, nil
	}

	if defaultProjectID != "" {
		return defaultProjectID, nil
	}

	return "", domain.ValidationError{Code: "no_project_id", Message: "no project id supplied and no default configured"}
}
