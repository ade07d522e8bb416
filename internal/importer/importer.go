// Package importer mirrors the article catalog from the reference stock
// system into the local articles table.  It runs on a timer and can be
// triggered by hand through the sync endpoint.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Importer copies articles from a source database into the target.  The
// source is expected to expose an articles view with the same column
// vocabulary as the local table.
type Importer struct {
	target    *sql.DB
	sourceDSN string
	interval  time.Duration
}

// New returns an Importer.  An empty sourceDSN disables it; Run becomes a
// no-op and SyncOnce reports ErrNoSource.
func New(target *sql.DB, sourceDSN string, interval time.Duration) *Importer {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Importer{target: target, sourceDSN: sourceDSN, interval: interval}
}

// Enabled reports whether a source is configured.
func (im *Importer) Enabled() bool { return im.sourceDSN != "" }

// Stats summarizes one sync run.
type Stats struct {
	Fetched  int           `json:"fetched"`
	Upserted int           `json:"upserted"`
	Failed   int           `json:"failed"`
	Took     time.Duration `json:"-"`
	TookMS   int64         `json:"took_ms"`
}

// ErrNoSource is returned by SyncOnce when no source DSN is configured.
var ErrNoSource = errors.New("importer: no source configured")

// Run executes SyncOnce on the configured interval until ctx is cancelled.
// Failures are logged and the loop keeps going; a broken reference system
// must not take counting down with it.
func (im *Importer) Run(ctx context.Context) {
	if !im.Enabled() {
		logrus.Info("importer: no source configured, not starting")
		return
	}
	logrus.WithField("interval", im.interval.String()).Info("importer: starting")

	ticker := time.NewTicker(im.interval)
	defer ticker.Stop()

	for {
		if stats, err := im.SyncOnce(ctx); err != nil {
			logrus.WithError(err).Warn("importer: sync failed")
		} else {
			logrus.WithFields(logrus.Fields{
				"fetched":  stats.Fetched,
				"upserted": stats.Upserted,
				"failed":   stats.Failed,
				"took":     stats.Took.String(),
			}).Info("importer: sync complete")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce pulls every article from the source and upserts it locally,
// keyed on the unique article number.  Existing rows get fresh
// description, catalog, warehouse and stock values; the location column is
// left alone because counters may have corrected it on the floor.
func (im *Importer) SyncOnce(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats
	if !im.Enabled() {
		return stats, ErrNoSource
	}

	src, err := sql.Open("mysql", im.sourceDSN)
	if err != nil {
		return stats, err
	}
	defer src.Close()
	if err := src.PingContext(ctx); err != nil {
		return stats, err
	}

	rows, err := src.QueryContext(ctx, `
		SELECT numero_article, description_article, catalogue_fournisseur,
		       code_entrepot, code_emplacement, quantite_en_stock
		FROM articles`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var numero string
		var desc, catalog, warehouse, location sql.NullString
		var stock sql.NullString
		if err := rows.Scan(&numero, &desc, &catalog, &warehouse, &location, &stock); err != nil {
			return stats, err
		}
		stats.Fetched++

		qty := "0"
		if stock.Valid && stock.String != "" {
			qty = stock.String
		}
		_, err := im.target.ExecContext(ctx, `
			INSERT INTO articles
			  (numero_article, description_article, catalogue_fournisseur, code_entrepot, code_emplacement, quantite_en_stock)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
			  description_article = VALUES(description_article),
			  catalogue_fournisseur = VALUES(catalogue_fournisseur),
			  code_entrepot = VALUES(code_entrepot),
			  quantite_en_stock = VALUES(quantite_en_stock)`,
			numero, desc, catalog, warehouse, location, qty)
		if err != nil {
			stats.Failed++
			logrus.WithError(err).WithField("numero_article", numero).Warn("importer: upsert failed")
			continue
		}
		stats.Upserted++
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	stats.Took = time.Since(start)
	stats.TookMS = stats.Took.Milliseconds()
	return stats, nil
}
