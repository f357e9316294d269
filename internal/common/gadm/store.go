// internal/common/gadm/store.go
package gadm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/models"
)

const (
	DefaultTable   = "gadm"
	gidField       = "gadmGid"
	continentField = "continent"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Store resolves addresses against a GADM GeoPackage feature table. Each level is
// searched inside the area found one level up, so "Springfield" only matches the
// one in the state already resolved.
type Store struct {
	db     *sql.DB
	table  string
	logger Logger

	mu      sync.Mutex
	columns map[string]bool
}

// NewStore wraps db. A nil db resolves continents only.
func NewStore(db *sql.DB, table string, log Logger) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{
		db:     db,
		table:  table,
		logger: log.With(map[string]interface{}{"component": "gadm"}),
	}
}

// Lookup returns the boundaries the address resolves to, coarse to fine. Narrowing
// stops at the first administrative level with no match; the levels above it are
// still returned.
func (s *Store) Lookup(ctx context.Context, loc models.Location) ([]models.Boundary, error) {
	var chain []models.Boundary
	if value, name, ok := Continent(loc.Continent); ok {
		chain = append(chain, models.Boundary{
			Level: models.LevelContinent,
			ID:    value,
			Name:  name,
			Field: continentField,
		})
	}
	if s.db == nil {
		return chain, nil
	}

	admin := adminParts(loc)
	if len(admin) == 0 {
		return chain, nil
	}
	if err := s.loadColumns(ctx); err != nil {
		return chain, apperrors.NewBoundaryLookupFailedError(err)
	}

	parentGID := ""
	for _, part := range admin {
		b, err := s.searchLevel(ctx, part, loc.CountryISO, parentGID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Info("no boundary at level", map[string]interface{}{
					"level":  part.Level.String(),
					"term":   part.Term,
					"parent": parentGID,
				})
				break
			}
			return chain, apperrors.NewBoundaryLookupFailedError(err)
		}
		chain = append(chain, b)
		parentGID = b.ID
	}
	return chain, nil
}

// adminParts lists the GADM levels of loc. An ISO code stands in for a missing
// country name. A gap in the hierarchy ends the list because every level is
// searched inside its parent.
func adminParts(loc models.Location) []models.LocationPart {
	country := strings.TrimSpace(loc.Country)
	if country == "" {
		country = strings.TrimSpace(loc.CountryISO)
	}
	terms := []struct {
		level models.BoundaryLevel
		term  string
	}{
		{models.LevelCountry, country},
		{models.LevelState, loc.State},
		{models.LevelCounty, loc.County},
		{models.LevelLocality, loc.Locality},
	}

	var parts []models.LocationPart
	for _, t := range terms {
		term := strings.TrimSpace(t.term)
		if term == "" {
			if len(parts) == 0 {
				continue
			}
			break
		}
		parts = append(parts, models.LocationPart{Level: t.level, Term: term})
	}
	return parts
}

// loadColumns reads the table layout once. A failed read is retried on the next
// lookup.
func (s *Store) loadColumns(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.columns != nil {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, s.table))
	if err != nil {
		return fmt.Errorf("read columns of %s: %w", s.table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return err
		}
		cols[strings.ToUpper(name)] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("table %s not found", s.table)
	}
	s.columns = cols
	return nil
}

// levelQuery builds the lookup for one level, or returns ok=false when the table has
// no columns for it.
func (s *Store) levelQuery(level int, term, iso, parentGID string) (query string, args []any, ok bool) {
	gidCol := fmt.Sprintf("GID_%d", level)
	nameCol := fmt.Sprintf("NAME_%d", level)
	if !s.columns[gidCol] || !s.columns[nameCol] {
		return "", nil, false
	}

	var preds []string
	for _, col := range []string{nameCol, fmt.Sprintf("VARNAME_%d", level), fmt.Sprintf("NL_NAME_%d", level)} {
		if s.columns[col] {
			preds = append(preds, fmt.Sprintf(`UPPER("%s") = UPPER(?)`, col))
			args = append(args, term)
		}
	}
	if level == 0 && iso != "" {
		preds = append(preds, `UPPER("GID_0") = UPPER(?)`)
		args = append(args, iso)
	}

	where := "(" + strings.Join(preds, " OR ") + ")"
	if level > 0 && parentGID != "" {
		parentCol := fmt.Sprintf("GID_%d", level-1)
		if !s.columns[parentCol] {
			return "", nil, false
		}
		where += fmt.Sprintf(` AND "%s" = ?`, parentCol)
		args = append(args, parentGID)
	}

	query = fmt.Sprintf(`SELECT "%s", "%s" FROM "%s" WHERE %s LIMIT 1`, gidCol, nameCol, s.table, where)
	return query, args, true
}

func (s *Store) searchLevel(ctx context.Context, part models.LocationPart, iso, parentGID string) (models.Boundary, error) {
	query, args, ok := s.levelQuery(part.Level.GADMLevel(), part.Term, iso, parentGID)
	if !ok {
		return models.Boundary{}, sql.ErrNoRows
	}

	var gid, name sql.NullString
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&gid, &name); err != nil {
		return models.Boundary{}, err
	}
	if !gid.Valid || gid.String == "" {
		return models.Boundary{}, sql.ErrNoRows
	}
	return models.Boundary{
		Level: part.Level,
		ID:    gid.String,
		Name:  name.String,
		Field: gidField,
	}, nil
}
