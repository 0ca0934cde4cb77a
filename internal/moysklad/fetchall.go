package moysklad

import "context"

// PageSize is the fixed page length used when walking a whole collection.
const PageSize = 100

// FetchAll pages through the given collection from offset 0 and returns the
// concatenated rows in remote order. Termination: an empty page, a short page,
// or the accumulated count reaching the size the API reported for the
// collection. The short-page stop assumes the API never returns a short
// non-final page; the meta.size check backs it up.
//
// The whole collection is held in memory, which is fine for catalog-sized
// data but would not survive an unbounded remote collection.
func (c *Client) FetchAll(ctx context.Context, kind Kind) ([]Record, error) {
	var all []Record
	offset := 0

	for {
		page, err := c.List(ctx, kind, PageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page.Rows) == 0 {
			break
		}
		all = append(all, page.Rows...)
		offset += PageSize

		if len(page.Rows) < PageSize {
			break
		}
		if page.Meta.Size > 0 && len(all) >= page.Meta.Size {
			break
		}
	}

	c.log.Debug().Str("kind", string(kind)).Int("records", len(all)).Msg("fetched collection")
	return all, nil
}
