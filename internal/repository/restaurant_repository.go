package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/frontdesk/internal/model"
)

// RestaurantRepo reads restaurant reference data.
type RestaurantRepo struct {
	db *sql.DB
}

// NewRestaurantRepo returns a new RestaurantRepo bound to the given database.
func NewRestaurantRepo(db *sql.DB) *RestaurantRepo { return &RestaurantRepo{db: db} }

// GetByID returns the restaurant or ErrNotFound.
func (r *RestaurantRepo) GetByID(ctx context.Context, id string) (*model.Restaurant, error) {
	const q = `SELECT id, name, phone, timezone, address, locale_default FROM restaurant WHERE id = ?`
	var (
		rest           model.Restaurant
		phone, address sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&rest.ID, &rest.Name, &phone, &rest.Timezone, &address, &rest.LocaleDefault); err != nil {
		return nil, Classify(err)
	}
	rest.Phone = nullable(phone)
	rest.Address = nullable(address)
	return &rest, nil
}

// Ping verifies the database answers.
func (r *RestaurantRepo) Ping(ctx context.Context) error {
	return Classify(r.db.PingContext(ctx))
}
