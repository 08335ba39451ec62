package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"booking-service/internal/apperr"
	"booking-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetVehicleByID retrieves a catalog vehicle by ID
func (s *Store) GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := s.db.GetContext(ctx, &vehicle, "SELECT * FROM vehicles WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: id %d", apperr.ErrVehicleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get vehicle: %v", apperr.ErrPersistence, err)
	}
	return &vehicle, nil
}

// GetVehicles retrieves the full catalog
func (s *Store) GetVehicles(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := s.db.SelectContext(ctx, &vehicles, "SELECT * FROM vehicles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: list vehicles: %v", apperr.ErrPersistence, err)
	}
	return vehicles, nil
}
