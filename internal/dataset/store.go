package dataset

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"foodpillory/internal/facility"

	"github.com/golang-sql/civil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("internal/dataset")

//go:embed schema.sql
var Schema string

// Store mirrors snapshots into a sqlite database, one row per record and
// snapshot.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the database at path and applies the schema.
func OpenStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	// an in-memory database only lives as long as its connection
	db.SetMaxOpenConns(1)
	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return Store{}, err
	}
	return store, nil
}

// NewStore applies the schema to an already open database.
func NewStore(db *sql.DB) (Store, error) {
	_, err := db.Exec(Schema)
	if err != nil {
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return Store{db: db}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

const insertRecord = `insert into facility (
    snapshot, id, reference_number, tax_id, name, address, category,
    date_published, date_closed, date_ban_lifted, closure_status,
    offenses_found, fetched_on
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Replace swaps the stored rows of snapshot for ds in one transaction.
func (s Store) Replace(ctx context.Context, snapshot facility.Snapshot, ds facility.Dataset) error {
	ctx, span := tracer.Start(ctx, "Store:Replace")
	defer span.End()

	span.SetAttributes(
		attribute.String("snapshot", string(snapshot)),
		attribute.Int("records", len(ds)),
	)

	err := s.replace(ctx, snapshot, ds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s Store) replace(ctx context.Context, snapshot facility.Snapshot, ds facility.Dataset) error {
	duplicates := ds.DuplicateIds()
	if len(duplicates) > 0 {
		return fmt.Errorf("snapshot %s lists ids more than once: %v", snapshot, duplicates)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from facility where snapshot = ?", string(snapshot))
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range ds {
		var banLifted sql.NullString
		if r.DateBanLifted.Valid {
			banLifted = sql.NullString{String: r.DateBanLifted.V.String(), Valid: true}
		}
		_, err = stmt.ExecContext(
			ctx,
			string(snapshot),
			r.Id,
			r.ReferenceNumber,
			r.TaxId,
			r.Name,
			r.Address,
			r.Category,
			r.DatePublished.String(),
			r.DateClosed.String(),
			banLifted,
			r.ClosureStatus,
			facility.JoinOffenses(r.OffensesFound),
			r.FetchedOn.String(),
		)
		if err != nil {
			return fmt.Errorf("insert record %d: %w", r.Id, err)
		}
	}

	return tx.Commit()
}

// Load returns the stored rows of snapshot in the order they were saved.
func (s Store) Load(ctx context.Context, snapshot facility.Snapshot) (facility.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Store:Load")
	defer span.End()

	span.SetAttributes(attribute.String("snapshot", string(snapshot)))

	ds, err := s.load(ctx, snapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return ds, nil
}

func (s Store) load(ctx context.Context, snapshot facility.Snapshot) (facility.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `select
    id, reference_number, tax_id, name, address, category,
    date_published, date_closed, date_ban_lifted, closure_status,
    offenses_found, fetched_on
from facility where snapshot = ? order by rowid`, string(snapshot))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ds facility.Dataset
	for rows.Next() {
		var r facility.Record
		var published, closed, fetched string
		var banLifted sql.NullString
		var offenses string
		err = rows.Scan(
			&r.Id,
			&r.ReferenceNumber,
			&r.TaxId,
			&r.Name,
			&r.Address,
			&r.Category,
			&published,
			&closed,
			&banLifted,
			&r.ClosureStatus,
			&offenses,
			&fetched,
		)
		if err != nil {
			return nil, err
		}

		r.DatePublished, err = civil.ParseDate(published)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.Id, err)
		}
		r.DateClosed, err = civil.ParseDate(closed)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.Id, err)
		}
		r.FetchedOn, err = civil.ParseDate(fetched)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.Id, err)
		}
		if banLifted.Valid {
			lifted, err := civil.ParseDate(banLifted.String)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", r.Id, err)
			}
			r.DateBanLifted = sql.Null[civil.Date]{V: lifted, Valid: true}
		}
		r.OffensesFound = facility.SplitOffenses(offenses)

		ds = append(ds, r)
	}
	return ds, rows.Err()
}
