package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/platform/obs"
	"waste-route-service/internal/ports"

	"github.com/jackc/pgx/v5/pgtype"
)

// PostgreSQL-backed implementation of the RouteRepository port.
// A route row owns its route_stops rows.
type PostgresRouteRepository struct {
	DB    *sql.DB
	types *pgtype.Map
}

func NewPostgresRouteRepository(db *sql.DB) *PostgresRouteRepository {
	return &PostgresRouteRepository{DB: db, types: pgtype.NewMap()}
}

func (p *PostgresRouteRepository) SaveRoute(ctx context.Context, route *domain.Route) (err error) {
	defer obs.Time(ctx, "routes.SaveRoute")(&err)

	if p.DB == nil {
		return errors.New("postgres route repository: DB is nil")
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save route: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var disposalArrival sql.NullTime
	if route.DisposalArrival != nil {
		disposalArrival = sql.NullTime{Time: *route.DisposalArrival, Valid: true}
	}
	var siteID sql.NullString
	if route.DisposalSiteID != nil {
		siteID = sql.NullString{String: *route.DisposalSiteID, Valid: true}
	}
	warnings := route.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO routes (
		route_id, collector_id, disposal_site_id, distance_km, duration_minutes,
		start_time, disposal_arrival, end_time, status, warnings, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`,
		route.ID, route.CollectorID, siteID, route.DistanceKm, route.DurationMinutes,
		route.StartTime, disposalArrival, route.EndTime, string(route.Status), warnings, route.CreatedAt,
	); err != nil {
		return fmt.Errorf("save route %q: insert route: %w", route.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO route_stops (
		route_id, request_id, stop_order, estimated_arrival,
		leg_distance_km, leg_duration_minutes, status
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
	`)
	if err != nil {
		return fmt.Errorf("save route: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range route.Stops {
		if _, err := stmt.ExecContext(ctx,
			route.ID, s.RequestID, s.Order, s.EstimatedArrival,
			s.LegDistanceKm, s.LegDurationMinutes, string(s.Status),
		); err != nil {
			return fmt.Errorf("save route %q: insert stop request_id=%s: %w", route.ID, s.RequestID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save route commit: %w", err)
	}

	return nil
}

const selectRouteColumns = `
	SELECT
		route_id, collector_id, disposal_site_id, distance_km, duration_minutes,
		start_time, disposal_arrival, end_time, status, warnings, created_at
	FROM routes
`

func (p *PostgresRouteRepository) GetRoute(ctx context.Context, id string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "routes.GetRoute")(&err)

	routes, err := p.queryRoutes(ctx, p.DB, selectRouteColumns+`WHERE route_id = $1;`, id)
	if err != nil {
		return nil, fmt.Errorf("get route: %w", err)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("get route %q: %w", id, ports.ErrNotFound)
	}
	return routes[0], nil
}

func (p *PostgresRouteRepository) ListRoutes(ctx context.Context, collectorID string) (_ []*domain.Route, err error) {
	defer obs.Time(ctx, "routes.ListRoutes")(&err)

	routes, err := p.queryRoutes(ctx, p.DB, selectRouteColumns+`
	WHERE ($1::text = '' OR collector_id = $1::text)
	ORDER BY created_at, route_id;
	`, collectorID)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

// ModifyRoute locks the route row for the length of the transaction, so
// concurrent modifications of one route run one after the other. Only status
// changes are written; each stop update is conditional on the status it was
// read with.
func (p *PostgresRouteRepository) ModifyRoute(
	ctx context.Context,
	id string,
	fn func(*domain.Route) error,
) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "routes.ModifyRoute")(&err)

	if p.DB == nil {
		return nil, errors.New("postgres route repository: DB is nil")
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("modify route: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	routes, err := p.queryRoutes(ctx, tx, selectRouteColumns+`WHERE route_id = $1 FOR UPDATE;`, id)
	if err != nil {
		return nil, fmt.Errorf("modify route: %w", err)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("modify route %q: %w", id, ports.ErrNotFound)
	}

	route := routes[0]
	before := route.Clone()
	if err := fn(route); err != nil {
		return nil, err
	}

	if route.Status != before.Status {
		if _, err := tx.ExecContext(ctx,
			`UPDATE routes SET status = $1 WHERE route_id = $2;`,
			string(route.Status), id,
		); err != nil {
			return nil, fmt.Errorf("modify route %q: update status: %w", id, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
	UPDATE route_stops
	SET status = $1
	WHERE route_id = $2 AND request_id = $3 AND status = $4;
	`)
	if err != nil {
		return nil, fmt.Errorf("modify route: db prepare: %w", err)
	}
	defer stmt.Close()

	if len(route.Stops) != len(before.Stops) {
		return nil, fmt.Errorf("modify route %q: stops must not be added or removed", id)
	}
	for i, s := range route.Stops {
		if before.Stops[i].RequestID != s.RequestID {
			return nil, fmt.Errorf("modify route %q: stops must not be reordered", id)
		}
		old := before.Stops[i].Status
		if s.Status == old {
			continue
		}
		res, err := stmt.ExecContext(ctx, string(s.Status), id, s.RequestID, string(old))
		if err != nil {
			return nil, fmt.Errorf("modify route %q stop request_id=%s: %w", id, s.RequestID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("modify route %q stop request_id=%s: rows affected: %w", id, s.RequestID, err)
		} else if n != 1 {
			return nil, fmt.Errorf("modify route %q stop request_id=%s: %w", id, s.RequestID, ports.ErrConflict)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("modify route commit: %w", err)
	}

	return route, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryRoutes loads route rows for q and then all their stops in one query.
func (p *PostgresRouteRepository) queryRoutes(ctx context.Context, db querier, q string, args ...any) ([]*domain.Route, error) {
	if p.DB == nil {
		return nil, errors.New("postgres route repository: DB is nil")
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query routes table: %w", err)
	}
	defer rows.Close()

	routes := make([]*domain.Route, 0, 8)
	byID := make(map[string]*domain.Route)
	ids := make([]string, 0, 8)
	for rows.Next() {
		var (
			r               domain.Route
			siteID          sql.NullString
			disposalArrival sql.NullTime
			status          string
		)
		if err := rows.Scan(
			&r.ID, &r.CollectorID, &siteID, &r.DistanceKm, &r.DurationMinutes,
			&r.StartTime, &disposalArrival, &r.EndTime, &status, p.types.SQLScanner(&r.Warnings), &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan route row: %w", err)
		}
		r.Status = domain.RouteStatus(status)
		if siteID.Valid {
			id := siteID.String
			r.DisposalSiteID = &id
		}
		if disposalArrival.Valid {
			t := disposalArrival.Time
			r.DisposalArrival = &t
		}
		r.Stops = []domain.RouteStop{}

		routes = append(routes, &r)
		byID[r.ID] = &r
		ids = append(ids, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("route row iteration: %w", err)
	}

	if len(ids) == 0 {
		return routes, nil
	}

	stopRows, err := db.QueryContext(ctx, `
	SELECT route_id, request_id, stop_order, estimated_arrival,
		leg_distance_km, leg_duration_minutes, status
	FROM route_stops
	WHERE route_id = ANY($1::text[])
	ORDER BY route_id, stop_order;
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query route_stops table: %w", err)
	}
	defer stopRows.Close()

	for stopRows.Next() {
		var (
			routeID string
			s       domain.RouteStop
			status  string
		)
		if err := stopRows.Scan(
			&routeID, &s.RequestID, &s.Order, &s.EstimatedArrival,
			&s.LegDistanceKm, &s.LegDurationMinutes, &status,
		); err != nil {
			return nil, fmt.Errorf("scan stop row: %w", err)
		}
		s.Status = domain.StopStatus(status)
		if r, ok := byID[routeID]; ok {
			r.Stops = append(r.Stops, s)
		}
	}
	if err := stopRows.Err(); err != nil {
		return nil, fmt.Errorf("stop row iteration: %w", err)
	}

	return routes, nil
}
