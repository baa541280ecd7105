package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"waste-route-service/internal/domain"

	"gopkg.in/yaml.v3"
)

// Initialize the PostgreSQL database schema.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createRequestsQuery := `
	CREATE TABLE IF NOT EXISTS pickup_requests (
		request_id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		waste_types TEXT[] NOT NULL,
		volume DOUBLE PRECISION NOT NULL DEFAULT 0,
		weight DOUBLE PRECISION,
		address TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createSitesQuery := `
	CREATE TABLE IF NOT EXISTS disposal_sites (
		site_id TEXT PRIMARY KEY,
		sort_order INTEGER NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		accepted_waste_types TEXT[] NOT NULL,
		opening_hours JSONB NOT NULL DEFAULT '{}'::jsonb
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		route_id TEXT PRIMARY KEY,
		collector_id TEXT NOT NULL,
		disposal_site_id TEXT,
		distance_km DOUBLE PRECISION NOT NULL,
		duration_minutes DOUBLE PRECISION NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		disposal_arrival TIMESTAMPTZ,
		end_time TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		warnings TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS route_stops (
		route_id TEXT NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
		request_id TEXT NOT NULL,
		stop_order INTEGER NOT NULL,
		estimated_arrival TIMESTAMPTZ NOT NULL,
		leg_distance_km DOUBLE PRECISION NOT NULL,
		leg_duration_minutes DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (route_id, request_id)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_routes_collector_created
	ON routes(collector_id, created_at);
	`

	statements := []string{
		createRequestsQuery,
		createSitesQuery,
		createRoutesQuery,
		createStopsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type RequestSeed struct {
	RequestID   string   `json:"request_id"`
	ClientID    string   `json:"client_id"`
	Status      string   `json:"status"`
	WasteTypes  []string `json:"waste_types"`
	Volume      float64  `json:"volume"`
	Weight      *float64 `json:"weight"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Description string   `json:"description"`
}

// LoadRequestSeeds reads and validates pickup requests from a JSON file.
func LoadRequestSeeds(jsonPath string) ([]*domain.PickupRequest, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("load request seeds: read %q: %w", jsonPath, err)
	}

	var data []RequestSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("load request seeds: parse json: %w", err)
	}

	out := make([]*domain.PickupRequest, 0, len(data))
	for i, item := range data {
		types, err := parseWasteTypes(item.WasteTypes)
		if err != nil {
			return nil, fmt.Errorf("load request seeds: item %d: %w", i+1, err)
		}

		status := domain.RequestStatus(strings.TrimSpace(item.Status))
		if status == "" {
			status = domain.RequestPending
		}

		r := &domain.PickupRequest{
			ID:          strings.TrimSpace(item.RequestID),
			ClientID:    item.ClientID,
			Status:      status,
			WasteTypes:  types,
			Volume:      item.Volume,
			Weight:      item.Weight,
			Address:     item.Address,
			Location:    domain.Coordinates{Lat: item.Lat, Lng: item.Lng},
			Description: item.Description,
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("load request seeds: item %d: %w", i+1, err)
		}
		out = append(out, r)
	}

	return out, nil
}

type SiteSeed struct {
	SiteID             string            `yaml:"id"`
	Name               string            `yaml:"name"`
	Address            string            `yaml:"address"`
	Lat                float64           `yaml:"lat"`
	Lng                float64           `yaml:"lng"`
	AcceptedWasteTypes []string          `yaml:"accepted_waste_types"`
	OpeningHours       domain.HoursTable `yaml:"opening_hours"`
}

// LoadSiteSeeds reads and validates the disposal-site catalog from a YAML file.
// File order becomes catalog order.
func LoadSiteSeeds(yamlPath string) ([]*domain.DisposalSite, error) {
	bytes, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("load site seeds: read %q: %w", yamlPath, err)
	}

	var data []SiteSeed
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("load site seeds: parse yaml: %w", err)
	}

	out := make([]*domain.DisposalSite, 0, len(data))
	for i, item := range data {
		id := strings.TrimSpace(item.SiteID)
		if id == "" {
			return nil, fmt.Errorf("load site seeds: item %d: id cannot be empty", i+1)
		}

		types, err := parseWasteTypes(item.AcceptedWasteTypes)
		if err != nil {
			return nil, fmt.Errorf("load site seeds: site %s: %w", id, err)
		}

		hours, err := domain.ParseHoursTable(item.OpeningHours)
		if err != nil {
			return nil, fmt.Errorf("load site seeds: site %s: %w", id, err)
		}

		loc := domain.Coordinates{Lat: item.Lat, Lng: item.Lng}
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("load site seeds: site %s: %w", id, err)
		}

		out = append(out, &domain.DisposalSite{
			ID:                 id,
			Name:               item.Name,
			Address:            item.Address,
			Location:           loc,
			AcceptedWasteTypes: types,
			OpeningHours:       hours,
		})
	}

	return out, nil
}

// Populate the database with requests (JSON) and disposal sites (YAML).
func SeedFromFiles(db *sql.DB, requestsPath, sitesPath string) error {
	requests, err := LoadRequestSeeds(requestsPath)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	sites, err := LoadSiteSeeds(sitesPath)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	reqStmt, err := tx.Prepare(`
	INSERT INTO pickup_requests (
		request_id, client_id, status, waste_types, volume,
		weight, address, lat, lng, description
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (request_id) DO UPDATE
	SET client_id = EXCLUDED.client_id,
		status = EXCLUDED.status,
		waste_types = EXCLUDED.waste_types,
		volume = EXCLUDED.volume,
		weight = EXCLUDED.weight,
		address = EXCLUDED.address,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		description = EXCLUDED.description;
	`)
	if err != nil {
		return fmt.Errorf("seed requests: prepare insert: %w", err)
	}
	defer reqStmt.Close()

	for _, r := range requests {
		if _, err := reqStmt.Exec(
			r.ID, r.ClientID, string(r.Status), wasteTypeStrings(r.WasteTypes), r.Volume,
			nullFloat(r.Weight), r.Address, r.Location.Lat, r.Location.Lng, r.Description,
		); err != nil {
			return fmt.Errorf("seed requests: insert request_id=%s: %w", r.ID, err)
		}
	}

	siteStmt, err := tx.Prepare(`
	INSERT INTO disposal_sites (
		site_id, sort_order, name, address, lat, lng,
		accepted_waste_types, opening_hours
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (site_id) DO UPDATE
	SET sort_order = EXCLUDED.sort_order,
		name = EXCLUDED.name,
		address = EXCLUDED.address,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		accepted_waste_types = EXCLUDED.accepted_waste_types,
		opening_hours = EXCLUDED.opening_hours;
	`)
	if err != nil {
		return fmt.Errorf("seed sites: prepare insert: %w", err)
	}
	defer siteStmt.Close()

	for i, s := range sites {
		hours, err := json.Marshal(s.OpeningHours.Table())
		if err != nil {
			return fmt.Errorf("seed sites: encode hours site_id=%s: %w", s.ID, err)
		}
		if _, err := siteStmt.Exec(
			s.ID, i+1, s.Name, s.Address, s.Location.Lat, s.Location.Lng,
			wasteTypeStrings(s.AcceptedWasteTypes), hours,
		); err != nil {
			return fmt.Errorf("seed sites: insert site_id=%s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

func parseWasteTypes(raw []string) (domain.WasteTypes, error) {
	out := make(domain.WasteTypes, 0, len(raw))
	for _, s := range raw {
		w, err := domain.ParseWasteType(s)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return domain.UnionWasteTypes(out), nil
}

func wasteTypeStrings(ws domain.WasteTypes) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, string(w))
	}
	return out
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
