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

// PostgreSQL-backed implementation of the RequestRepository port.
type PostgresRequestRepository struct {
	DB *sql.DB
	// Type map used to scan TEXT[] columns through database/sql.
	types *pgtype.Map
}

func NewPostgresRequestRepository(db *sql.DB) *PostgresRequestRepository {
	return &PostgresRequestRepository{DB: db, types: pgtype.NewMap()}
}

const selectRequestColumns = `
	SELECT
		request_id, client_id, status, waste_types, volume,
		weight, address, lat, lng, description, created_at
	FROM pickup_requests
`

func (p *PostgresRequestRepository) ListRequests(
	ctx context.Context,
	status domain.RequestStatus,
) (_ []*domain.PickupRequest, err error) {
	defer obs.Time(ctx, "requests.ListRequests")(&err)

	if p.DB == nil {
		return nil, errors.New("postgres request repository: DB is nil")
	}

	q := selectRequestColumns + `
	WHERE ($1::text = '' OR status = $1::text)
	ORDER BY created_at, request_id;
	`
	rows, err := p.DB.QueryContext(ctx, q, string(status))
	if err != nil {
		return nil, fmt.Errorf("list requests: query pickup_requests table: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.PickupRequest, 0, 64)
	for rows.Next() {
		r, err := p.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list requests: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: row iteration: %w", err)
	}

	return out, nil
}

func (p *PostgresRequestRepository) GetRequests(
	ctx context.Context,
	ids []string,
) (_ map[string]*domain.PickupRequest, err error) {
	defer obs.Time(ctx, "requests.GetRequests")(&err)

	if p.DB == nil {
		return nil, errors.New("postgres request repository: DB is nil")
	}

	if len(ids) == 0 {
		return map[string]*domain.PickupRequest{}, nil
	}

	q := selectRequestColumns + `
	WHERE request_id = ANY($1::text[]);
	`
	rows, err := p.DB.QueryContext(ctx, q, ids)
	if err != nil {
		return nil, fmt.Errorf("get requests: query pickup_requests table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*domain.PickupRequest, len(ids))
	for rows.Next() {
		r, err := p.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("get requests: %w", err)
		}
		out[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get requests: row iteration: %w", err)
	}

	return out, nil
}

func (p *PostgresRequestRepository) UpdateRequestStatus(
	ctx context.Context,
	ids []string,
	status domain.RequestStatus,
) (err error) {
	defer obs.Time(ctx, "requests.UpdateRequestStatus")(&err)

	if p.DB == nil {
		return errors.New("postgres request repository: DB is nil")
	}

	if len(ids) == 0 {
		return nil
	}

	res, err := p.DB.ExecContext(ctx, `
	UPDATE pickup_requests
	SET status = $1
	WHERE request_id = ANY($2::text[]);
	`, string(status), ids)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request status: rows affected: %w", err)
	}
	if n < int64(len(ids)) {
		return fmt.Errorf("update request status: %d of %d requests updated: %w", n, len(ids), ports.ErrNotFound)
	}

	return nil
}

func (p *PostgresRequestRepository) scan(rows *sql.Rows) (*domain.PickupRequest, error) {
	var (
		r      domain.PickupRequest
		status string
		types  []string
		weight sql.NullFloat64
	)
	if err := rows.Scan(
		&r.ID, &r.ClientID, &status, p.types.SQLScanner(&types), &r.Volume,
		&weight, &r.Address, &r.Location.Lat, &r.Location.Lng, &r.Description, &r.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	r.Status = domain.RequestStatus(status)
	for _, t := range types {
		r.WasteTypes = append(r.WasteTypes, domain.WasteType(t))
	}
	if weight.Valid {
		w := weight.Float64
		r.Weight = &w
	}

	return &r, nil
}

// TransitionRequestStatus is a compare-and-set over the whole batch: the
// update is conditional on the current status and is rolled back unless every
// listed row matched.
func (p *PostgresRequestRepository) TransitionRequestStatus(
	ctx context.Context,
	ids []string,
	from []domain.RequestStatus,
	to domain.RequestStatus,
) (err error) {
	defer obs.Time(ctx, "requests.TransitionRequestStatus")(&err)

	if p.DB == nil {
		return errors.New("postgres request repository: DB is nil")
	}

	if len(ids) == 0 {
		return nil
	}

	fromStrs := make([]string, 0, len(from))
	for _, s := range from {
		fromStrs = append(fromStrs, string(s))
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transition request status: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	UPDATE pickup_requests
	SET status = $1
	WHERE request_id = ANY($2::text[]) AND status = ANY($3::text[]);
	`, string(to), ids, fromStrs)
	if err != nil {
		return fmt.Errorf("transition request status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition request status: rows affected: %w", err)
	}
	if n == int64(len(ids)) {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("transition request status commit: %w", err)
		}
		return nil
	}

	// Tell a missing request apart from one in the wrong status.
	var existing int64
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM pickup_requests WHERE request_id = ANY($1::text[]);`, ids,
	).Scan(&existing); err != nil {
		return fmt.Errorf("transition request status: count: %w", err)
	}
	if existing < int64(len(ids)) {
		return fmt.Errorf("transition request status: %d of %d requests exist: %w", existing, len(ids), ports.ErrNotFound)
	}
	return fmt.Errorf("transition request status: %d of %d requests in %v: %w", n, len(ids), from, ports.ErrConflict)
}
