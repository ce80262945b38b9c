package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stockForecaster/internal/domain"
	"stockForecaster/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.PredictionRepository interface using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/predictions.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serialises writers; SQLite would otherwise return SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		ticker TEXT NOT NULL,
		horizon INTEGER NOT NULL,
		buy INTEGER NOT NULL,
		hold INTEGER NOT NULL,
		sell INTEGER NOT NULL,
		recommendation TEXT NOT NULL,
		trend REAL NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS prediction_points (
		prediction_id INTEGER NOT NULL REFERENCES predictions(id) ON DELETE CASCADE,
		step INTEGER NOT NULL,
		date TEXT NOT NULL,
		price REAL NOT NULL,
		PRIMARY KEY (prediction_id, step)
	);
	CREATE INDEX IF NOT EXISTS idx_predictions_ticker_created ON predictions (ticker, created_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Save stores a prediction with its forecast points and returns the assigned ID.
func (r *Repository) Save(ctx context.Context, p *domain.Prediction) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %v", ports.ErrQueryFailed, err)
	}
	defer tx.Rollback() // No-op after commit

	const insertPrediction = `
	INSERT INTO predictions (request_id, ticker, horizon, buy, hold, sell, recommendation, trend, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, insertPrediction,
		p.RequestID, p.Ticker, p.Horizon, p.Opinion.Buy, p.Opinion.Hold, p.Opinion.Sell,
		string(p.Opinion.Recommendation), p.Opinion.Trend, p.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: insert prediction for %s: %v", ports.ErrQueryFailed, p.Ticker, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert ID for %s: %v", ports.ErrQueryFailed, p.Ticker, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO prediction_points (prediction_id, step, date, price) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare point insert: %v", ports.ErrQueryFailed, err)
	}
	defer stmt.Close()
	for i, pt := range p.Forecast {
		if _, err := stmt.ExecContext(ctx, id, i, pt.Date.Format(domain.DateLayout), pt.Price); err != nil {
			return 0, fmt.Errorf("%w: insert point %d for %s: %v", ports.ErrQueryFailed, i, p.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit prediction for %s: %v", ports.ErrQueryFailed, p.Ticker, err)
	}
	p.ID = id
	r.logger.Debug(ctx, "Prediction recorded", map[string]interface{}{"predictionID": id, "ticker": p.Ticker, "points": len(p.Forecast)})
	return id, nil
}

// FindByTicker retrieves the most recent predictions for a ticker, newest first.
func (r *Repository) FindByTicker(ctx context.Context, ticker string, limit int) ([]*domain.Prediction, error) {
	const query = `
	SELECT id, request_id, ticker, horizon, buy, hold, sell, recommendation, trend, created_at
	FROM predictions
	WHERE ticker = ? ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query predictions for %s: %v", ports.ErrQueryFailed, ticker, err)
	}
	predictions := make([]*domain.Prediction, 0)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scan prediction: %v", ports.ErrQueryFailed, err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: iterating prediction rows: %v", ports.ErrQueryFailed, err)
	}
	// Release the only connection before loading points.
	rows.Close()

	for _, p := range predictions {
		if p.Forecast, err = r.findPoints(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return predictions, nil
}

func (r *Repository) findPoints(ctx context.Context, predictionID int64) ([]domain.ForecastPoint, error) {
	const query = `SELECT date, price FROM prediction_points WHERE prediction_id = ? ORDER BY step`
	rows, err := r.db.QueryContext(ctx, query, predictionID)
	if err != nil {
		return nil, fmt.Errorf("%w: query points for prediction %d: %v", ports.ErrQueryFailed, predictionID, err)
	}
	defer rows.Close()

	points := make([]domain.ForecastPoint, 0)
	for rows.Next() {
		var raw string
		var pt domain.ForecastPoint
		if err := rows.Scan(&raw, &pt.Price); err != nil {
			return nil, fmt.Errorf("%w: scan point: %v", ports.ErrQueryFailed, err)
		}
		if pt.Date, err = time.Parse(domain.DateLayout, raw); err != nil {
			return nil, fmt.Errorf("%w: point date %q: %v", ports.ErrQueryFailed, raw, err)
		}
		points = append(points, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating point rows: %v", ports.ErrQueryFailed, err)
	}
	return points, nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPrediction(s scanner) (*domain.Prediction, error) {
	p := &domain.Prediction{}
	var recommendation string
	err := s.Scan(&p.ID, &p.RequestID, &p.Ticker, &p.Horizon,
		&p.Opinion.Buy, &p.Opinion.Hold, &p.Opinion.Sell, &recommendation, &p.Opinion.Trend, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Opinion.Recommendation = domain.Recommendation(recommendation)
	return p, nil
}
