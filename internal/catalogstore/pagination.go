package catalogstore

import "github.com/Masterminds/squirrel"

// Page is the catalog store's pagination cursor: a limit/offset pair that
// the HTTP layer reads from the "pageSize" and "pageToken" query parameters
// (the token is a plain numeric offset). List responses carry no
// next-page token.
type Page struct {
	Limit int64
	Offset int64
}

// DefaultPageLimit bounds the page size used when a caller requests no
// limit of its own.
const DefaultPageLimit int64 = 50

func applyPage(sb squirrel.SelectBuilder, p Page) squirrel.SelectBuilder {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	return sb.Limit(uint64(limit)).Offset(uint64(p.Offset))
}
