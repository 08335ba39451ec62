package service

import (
	"context"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/redisclient"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// VehicleSource is the durable catalog lookup.
type VehicleSource interface {
	GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error)
}

// CatalogClient resolves vehicles through a Redis read-through cache
// with the store as the source of truth. Cache failures degrade to
// direct store reads.
type CatalogClient struct {
	source   VehicleSource
	cache    *redisclient.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCatalogClient creates a new catalog client
func NewCatalogClient(source VehicleSource, cache *redisclient.Client, cacheTTL time.Duration) *CatalogClient {
	return &CatalogClient{
		source:   source,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// GetVehicleByID resolves a vehicle, preferring the cache
func (cc *CatalogClient) GetVehicleByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	if cc.cache != nil {
		if vehicle, err := cc.cache.GetVehicle(ctx, id); err == nil {
			return vehicle, nil
		}
	}

	vehicle, err := cc.source.GetVehicleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cc.cache != nil {
		if err := cc.cache.CacheVehicle(ctx, vehicle, cc.cacheTTL); err != nil {
			cc.logger.Warn("Failed to cache vehicle",
				zap.Int64("vehicle_id", id),
				zap.Error(err))
		}
	}

	return vehicle, nil
}
