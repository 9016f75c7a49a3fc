package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"WhiskeyIndex/internal/domain"
	"WhiskeyIndex/internal/ports"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const approvalLayout = "2006-01-02"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cached_queries (
		query_key  TEXT PRIMARY KEY,
		product    TEXT NOT NULL,
		term       TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cached_candidates (
		query_key     TEXT NOT NULL,
		position      INTEGER NOT NULL,
		identifier    TEXT NOT NULL,
		approval_date TEXT NOT NULL DEFAULT '',
		proof         DOUBLE PRECISION,
		type_code     TEXT NOT NULL DEFAULT '',
		brand_name    TEXT NOT NULL DEFAULT '',
		fanciful_name TEXT NOT NULL DEFAULT '',
		raw_text      TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (query_key, identifier)
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		run_id     TEXT PRIMARY KEY,
		command    TEXT NOT NULL,
		dry_run    INTEGER NOT NULL,
		started_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS decisions (
		run_id         TEXT NOT NULL,
		position       INTEGER NOT NULL,
		name           TEXT NOT NULL,
		batch          TEXT NOT NULL,
		release_year   TEXT NOT NULL,
		identifier     TEXT NOT NULL,
		tier           TEXT NOT NULL,
		origin         TEXT NOT NULL DEFAULT 'matcher',
		reason         TEXT NOT NULL,
		low_confidence INTEGER NOT NULL,
		applied        INTEGER NOT NULL,
		skip_reason    TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	)`,
}

// Ledger caches registry candidates and records assignment decisions in
// SQLite or Postgres.
type Ledger struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.CandidateCache = (*Ledger)(nil)
	_ ports.DecisionLog    = (*Ledger)(nil)
)

// Open connects to the ledger database and creates missing tables.
func Open(ctx context.Context, driver, dsn string) (*Ledger, error) {
	driver = normalizeDriver(driver)
	if driver == DriverSQLite {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	ledger := NewLedger(db, driver)
	if err := ledger.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// NewLedger wires a sql.DB; the driver selects the placeholder format.
func NewLedger(db *sql.DB, driver string) *Ledger {
	placeholder := sq.Question
	if normalizeDriver(driver) == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &Ledger{db: db, builder: sq.StatementBuilder.PlaceholderFormat(placeholder)}
}

// Migrate creates the ledger tables when absent.
func (l *Ledger) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// LoadCandidates returns cached results for q; ok is false on a cache miss.
func (l *Ledger) LoadCandidates(ctx context.Context, q domain.Query) ([]domain.Candidate, bool, error) {
	if l.db == nil {
		return nil, false, nil
	}
	key := q.CacheKey()

	query, args, err := l.builder.Select("COUNT(*)").From("cached_queries").Where(sq.Eq{"query_key": key}).ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build cache lookup: %w", err)
	}
	var hits int
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&hits); err != nil {
		return nil, false, fmt.Errorf("cache lookup: %w", err)
	}
	if hits == 0 {
		return nil, false, nil
	}

	query, args, err = l.builder.
		Select("identifier", "approval_date", "proof", "type_code", "brand_name", "fanciful_name", "raw_text").
		From("cached_candidates").
		Where(sq.Eq{"query_key": key}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build candidate query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		var (
			c        domain.Candidate
			approval string
			proof    sql.NullFloat64
		)
		if err := rows.Scan(&c.Identifier, &approval, &proof, &c.TypeCode, &c.BrandName, &c.FancifulName, &c.RawText); err != nil {
			return nil, false, fmt.Errorf("scan candidate: %w", err)
		}
		if approval != "" {
			if t, err := time.Parse(approvalLayout, approval); err == nil {
				c.ApprovalDate = t
			}
		}
		if proof.Valid {
			c.Proof = domain.ProofValue(proof.Float64)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("rows iteration: %w", err)
	}
	return out, true, nil
}

// SaveCandidates replaces the cached results for q. An empty slice is
// cached too, so a search without hits is not repeated.
func (l *Ledger) SaveCandidates(ctx context.Context, q domain.Query, candidates []domain.Candidate) error {
	if l.db == nil {
		return nil
	}
	key := q.CacheKey()

	return l.inTx(ctx, func(tx *sql.Tx) error {
		if err := l.exec(ctx, tx, l.builder.Delete("cached_candidates").Where(sq.Eq{"query_key": key})); err != nil {
			return fmt.Errorf("clear cached candidates: %w", err)
		}

		upsert := l.builder.Insert("cached_queries").
			Columns("query_key", "product", "term", "fetched_at").
			Values(key, q.Product, q.Term, time.Now().UTC().Format(time.RFC3339)).
			Suffix("ON CONFLICT (query_key) DO UPDATE SET fetched_at = EXCLUDED.fetched_at, product = EXCLUDED.product")
		if err := l.exec(ctx, tx, upsert); err != nil {
			return fmt.Errorf("record cached query: %w", err)
		}

		if len(candidates) == 0 {
			return nil
		}
		insert := l.builder.Insert("cached_candidates").
			Columns("query_key", "position", "identifier", "approval_date", "proof",
				"type_code", "brand_name", "fanciful_name", "raw_text")
		seen := map[string]struct{}{}
		for i, c := range candidates {
			if _, dup := seen[c.Identifier]; dup {
				continue
			}
			seen[c.Identifier] = struct{}{}

			var approval string
			if !c.ApprovalDate.IsZero() {
				approval = c.ApprovalDate.Format(approvalLayout)
			}
			var proof sql.NullFloat64
			if c.Proof != nil {
				proof = sql.NullFloat64{Float64: *c.Proof, Valid: true}
			}
			insert = insert.Values(key, i, c.Identifier, approval, proof,
				c.TypeCode, c.BrandName, c.FancifulName, c.RawText)
		}
		if err := l.exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert cached candidates: %w", err)
		}
		return nil
	})
}

// RecordDecisions stores a run and every decision it produced.
func (l *Ledger) RecordDecisions(ctx context.Context, run domain.Run, decisions []domain.Decision) error {
	if l.db == nil {
		return nil
	}

	return l.inTx(ctx, func(tx *sql.Tx) error {
		insertRun := l.builder.Insert("runs").
			Columns("run_id", "command", "dry_run", "started_at").
			Values(run.ID, run.Command, boolInt(run.DryRun), run.StartedAt.UTC().Format(time.RFC3339))
		if err := l.exec(ctx, tx, insertRun); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		if len(decisions) == 0 {
			return nil
		}
		insert := l.builder.Insert("decisions").
			Columns("run_id", "position", "name", "batch", "release_year", "identifier",
				"tier", "origin", "reason", "low_confidence", "applied", "skip_reason")
		for i, d := range decisions {
			insert = insert.Values(run.ID, i, d.Key.Name, d.Key.Batch, d.Key.ReleaseYear, d.Identifier,
				string(d.Tier), string(d.Source()), d.Reason, boolInt(d.LowConfidence), boolInt(d.Applied), d.SkipReason)
		}
		if err := l.exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert decisions: %w", err)
		}
		return nil
	})
}

// Decisions returns the decisions recorded for a run in their original order.
func (l *Ledger) Decisions(ctx context.Context, runID string) ([]domain.Decision, error) {
	if l.db == nil {
		return nil, nil
	}

	query, args, err := l.builder.
		Select("name", "batch", "release_year", "identifier", "tier", "origin", "reason", "low_confidence", "applied", "skip_reason").
		From("decisions").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build decisions query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []domain.Decision
	for rows.Next() {
		var (
			d            domain.Decision
			tier, origin string
			low, applied int
		)
		if err := rows.Scan(&d.Key.Name, &d.Key.Batch, &d.Key.ReleaseYear, &d.Identifier,
			&tier, &origin, &d.Reason, &low, &applied, &d.SkipReason); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Tier = domain.Tier(tier)
		d.Origin = domain.Origin(origin)
		d.LowConfidence = low != 0
		d.Applied = applied != 0
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (l *Ledger) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (l *Ledger) exec(ctx context.Context, tx *sql.Tx, stmt sq.Sqlizer) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

func ensureDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	return nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
