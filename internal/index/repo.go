package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/epiledger/internal/analysis"
	"github.com/starford/epiledger/internal/models"
	"github.com/starford/epiledger/internal/parser"
)

const checksumKey = "checksum"

// Replace swaps the mirrored rows for c and records the file checksum they
// came from, within a single transaction.
func (db *DB) Replace(c models.Collection, checksum string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("index: clear records: %w", err)
	}
	if len(c) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO records (seq, city, date, cases, recovered, deaths) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range c {
			if _, err := stmt.Exec(i, r.City, parser.FormatDate(r.Date), r.Cases, r.Recovered, r.Deaths); err != nil {
				return fmt.Errorf("index: insert record %d: %w", i, err)
			}
		}
	}

	_, err = tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, checksumKey, checksum)
	if err != nil {
		return fmt.Errorf("index: store checksum: %w", err)
	}

	return tx.Commit()
}

// Checksum returns the checksum of the file last mirrored, or "" if none.
func (db *DB) Checksum() (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, checksumKey).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// ListRecords returns records in insertion order, optionally filtered by
// city, along with the total number of matches before paging.
// A non-positive limit returns every match from offset on.
func (db *DB) ListRecords(city string, limit, offset int) ([]models.Record, int, error) {
	var (
		where string
		args  []any
	)
	if city = strings.TrimSpace(city); city != "" {
		where = ` WHERE city = ?`
		args = append(args, city)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM records`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count records: %w", err)
	}

	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT city, date, cases, recovered, deaths FROM records` + where + ` ORDER BY seq LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list records: %w", err)
	}
	defer rows.Close()

	out := make([]models.Record, 0)
	for rows.Next() {
		var (
			r    models.Record
			date string
		)
		if err := rows.Scan(&r.City, &date, &r.Cases, &r.Recovered, &r.Deaths); err != nil {
			return nil, 0, err
		}
		if r.Date, err = time.Parse(parser.DateLayout, date); err != nil {
			return nil, 0, fmt.Errorf("index: list records: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// CityTotals sums cases per city, ordered by each city's first appearance.
func (db *DB) CityTotals() ([]analysis.CityTotal, error) {
	rows, err := db.conn.Query(`
		SELECT city, SUM(cases) AS total
		FROM records
		GROUP BY city
		ORDER BY MIN(seq)
	`)
	if err != nil {
		return nil, fmt.Errorf("index: city totals: %w", err)
	}
	defer rows.Close()

	out := make([]analysis.CityTotal, 0)
	for rows.Next() {
		var ct analysis.CityTotal
		if err := rows.Scan(&ct.City, &ct.TotalCases); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}
