package repository

import (
	"context"
	"strings"
)

// EventSearchQuery defines filters & pagination for the public event
// search. Only ON_SALE events are ever returned.
type EventSearchQuery struct {
	Title      string
	Venue      string
	TimeFilter string // "upcoming" (default), "today", "any"
	Page       int
	PageSize   int
}

// PublicEventRow is a sanitized search hit: no fiscal aggregates, just
// what a buyer needs to pick an event. MinPriceCents is the cheapest
// sector; SeatsAvailable sums the sectors' remaining seats.
type PublicEventRow struct {
	ID             uint64  `json:"id"`
	Title          string  `json:"title"`
	Venue          string  `json:"venue"`
	StartsAt       string  `json:"starts_at"`
	MinPriceCents  uint64  `json:"min_price_cents"`
	MinPrice       float64 `json:"min_price"`
	SeatsAvailable uint64  `json:"seats_available"`
}

func (r *EventRepo) SearchOnSale(ctx context.Context, q EventSearchQuery) ([]PublicEventRow, int64, error) {
	where := []string{"e.status = 'ON_SALE'"}
	args := []any{}

	switch strings.ToLower(q.TimeFilter) {
	case "any":
	case "today":
		where = append(where, "DATE(e.starts_at) = CURDATE()")
	default:
		where = append(where, "e.starts_at >= NOW()")
	}

	if q.Title != "" {
		where = append(where, "LOWER(e.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Title)+"%")
	}
	if q.Venue != "" {
		where = append(where, "LOWER(e.venue) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Venue)+"%")
	}

	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM events e WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
			e.id,
			e.title,
			e.venue,
			DATE_FORMAT(e.starts_at, '%Y-%m-%d %T') AS starts_at,
			COALESCE(MIN(s.price_cents), 0)     AS min_price_cents,
			COALESCE(SUM(s.available_seats), 0) AS seats_available
		FROM events e
		LEFT JOIN event_sectors s ON s.event_id = e.id
		WHERE ` + cond + `
		GROUP BY e.id, e.title, e.venue, e.starts_at
		ORDER BY e.starts_at ASC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]PublicEventRow, 0, limit)
	for rows.Next() {
		var d PublicEventRow
		if err := rows.Scan(
			&d.ID,
			&d.Title,
			&d.Venue,
			&d.StartsAt,
			&d.MinPriceCents,
			&d.SeatsAvailable,
		); err != nil {
			return nil, 0, err
		}
		d.MinPrice = float64(d.MinPriceCents) / 100.0
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
