package pricing

import (
	"context"
	"sort"
	"strings"

	"carwash/internal/cache"
	"carwash/internal/model"

	"github.com/google/uuid"
)

// Catalog is the read side the calculator prices against.
type Catalog interface {
	CarBodyType(ctx context.Context, carID uuid.UUID) (string, error)
	// ActiveServices returns the services of carWashID among ids that are
	// neither disabled nor deleted.
	ActiveServices(ctx context.Context, carWashID uuid.UUID, ids []uuid.UUID) ([]model.WashService, error)
	BodyTypePrices(ctx context.Context, ids []uuid.UUID, bodyType string) ([]model.ServicePrice, error)
}

func idsKey(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func catalogPrefix(carWashID uuid.UUID) string {
	return cache.Key("pricing", carWashID.String()) + ":"
}

func (c *Calculator) services(ctx context.Context, carWashID uuid.UUID, ids []uuid.UUID) ([]model.WashService, error) {
	key := catalogPrefix(carWashID) + "services:" + idsKey(ids)
	if v, ok := c.cache.Get(key); ok {
		if rows, ok := v.([]model.WashService); ok {
			return rows, nil
		}
	}
	rows, err := c.catalog.ActiveServices(ctx, carWashID, ids)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, rows, cache.ValidIDsTTL)
	return rows, nil
}

func (c *Calculator) prices(ctx context.Context, carWashID uuid.UUID, ids []uuid.UUID, bodyType string) ([]model.ServicePrice, error) {
	key := catalogPrefix(carWashID) + "prices:" + bodyType + ":" + idsKey(ids)
	if v, ok := c.cache.Get(key); ok {
		if rows, ok := v.([]model.ServicePrice); ok {
			return rows, nil
		}
	}
	rows, err := c.catalog.BodyTypePrices(ctx, ids, bodyType)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, rows, cache.CatalogTTL)
	return rows, nil
}

// Invalidate drops every cached catalog and price lookup of a car wash.
// Call it after a service or body type price is edited.
func (c *Calculator) Invalidate(carWashID uuid.UUID) {
	c.cache.DeletePrefix(catalogPrefix(carWashID))
}
