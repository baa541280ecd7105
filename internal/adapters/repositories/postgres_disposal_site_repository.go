package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"waste-route-service/internal/domain"
	"waste-route-service/internal/platform/obs"
	"waste-route-service/internal/ports"

	"github.com/jackc/pgx/v5/pgtype"
)

// PostgreSQL-backed disposal-site catalog. Sites are returned in sort_order,
// which doubles as the tie-break order for site selection.
type PostgresDisposalSiteRepository struct {
	DB    *sql.DB
	types *pgtype.Map
}

func NewPostgresDisposalSiteRepository(db *sql.DB) *PostgresDisposalSiteRepository {
	return &PostgresDisposalSiteRepository{DB: db, types: pgtype.NewMap()}
}

const selectSiteColumns = `
	SELECT site_id, name, address, lat, lng, accepted_waste_types, opening_hours
	FROM disposal_sites
`

func (p *PostgresDisposalSiteRepository) ListDisposalSites(ctx context.Context) (_ []*domain.DisposalSite, err error) {
	defer obs.Time(ctx, "sites.ListDisposalSites")(&err)

	if p.DB == nil {
		return nil, errors.New("postgres disposal site repository: DB is nil")
	}

	rows, err := p.DB.QueryContext(ctx, selectSiteColumns+`ORDER BY sort_order, site_id;`)
	if err != nil {
		return nil, fmt.Errorf("list disposal sites: query disposal_sites table: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.DisposalSite, 0, 16)
	for rows.Next() {
		s, err := p.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("list disposal sites: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list disposal sites: row iteration: %w", err)
	}

	return out, nil
}

func (p *PostgresDisposalSiteRepository) GetDisposalSite(ctx context.Context, id string) (_ *domain.DisposalSite, err error) {
	defer obs.Time(ctx, "sites.GetDisposalSite")(&err)

	if p.DB == nil {
		return nil, errors.New("postgres disposal site repository: DB is nil")
	}

	rows, err := p.DB.QueryContext(ctx, selectSiteColumns+`WHERE site_id = $1;`, id)
	if err != nil {
		return nil, fmt.Errorf("get disposal site: query disposal_sites table: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get disposal site: row iteration: %w", err)
		}
		return nil, fmt.Errorf("get disposal site %q: %w", id, ports.ErrNotFound)
	}

	s, err := p.scan(rows)
	if err != nil {
		return nil, fmt.Errorf("get disposal site: %w", err)
	}
	return s, nil
}

func (p *PostgresDisposalSiteRepository) scan(rows *sql.Rows) (*domain.DisposalSite, error) {
	var (
		s         domain.DisposalSite
		types     []string
		hoursJSON []byte
	)
	if err := rows.Scan(
		&s.ID, &s.Name, &s.Address, &s.Location.Lat, &s.Location.Lng,
		p.types.SQLScanner(&types), &hoursJSON,
	); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	for _, t := range types {
		s.AcceptedWasteTypes = append(s.AcceptedWasteTypes, domain.WasteType(t))
	}

	var table domain.HoursTable
	if err := json.Unmarshal(hoursJSON, &table); err != nil {
		return nil, fmt.Errorf("decode opening hours site_id=%s: %w", s.ID, err)
	}
	hours, err := domain.ParseHoursTable(table)
	if err != nil {
		return nil, fmt.Errorf("site_id=%s: %w", s.ID, err)
	}
	s.OpeningHours = hours

	return &s, nil
}
