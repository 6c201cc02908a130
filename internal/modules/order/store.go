// README: Order store backed by PostgreSQL; covers both source tables.
package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"unihub/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (
			id, customer_id, driver_id,
			pickup_address, delivery_address,
			pickup_coordinates, delivery_coordinates,
			status, service_type, package_size, total_amount,
			created_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5,
			$6, $7,
			$8, $9, $10, $11,
			$12, $13
		)`,
		string(o.ID),
		string(o.CustomerID),
		toStringPtr(o.DriverID),
		o.PickupAddress,
		o.DeliveryAddress,
		FormatWirePoint(o.PickupCoords),
		FormatWirePoint(o.DeliveryCoords),
		string(o.Status),
		string(o.ServiceType),
		o.PackageSize,
		o.TotalAmount,
		o.CreatedAt,
		o.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, source Source, id types.ID) (*Order, error) {
	if source == SourceRideRequests {
		return s.getRideRequest(ctx, id)
	}
	return s.getOrder(ctx, id)
}

func (s *Store) getOrder(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, customer_id, driver_id,
		       pickup_address, delivery_address,
		       pickup_coordinates::text, delivery_coordinates::text,
		       status, service_type, package_size, total_amount,
		       created_at, updated_at
		FROM orders
		WHERE id = $1`, string(id),
	)
	var r OrderRow
	err := row.Scan(
		&r.ID, &r.CustomerID, &r.DriverID,
		&r.PickupAddress, &r.DeliveryAddress,
		&r.PickupPoint, &r.DeliveryPoint,
		&r.Status, &r.ServiceType, &r.PackageSize, &r.TotalAmount,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o := r.ToOrder()
	return &o, nil
}

func (s *Store) getRideRequest(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, customer_id, driver_id,
		       pickup_location, dropoff_location,
		       price, status, service_type,
		       created_at, updated_at
		FROM ride_requests
		WHERE id = $1`, string(id),
	)
	var r RideRequestRow
	err := row.Scan(
		&r.ID, &r.CustomerID, &r.DriverID,
		&r.PickupLocation, &r.DropoffLocation,
		&r.Price, &r.Status, &r.ServiceType,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o := r.ToOrder()
	return &o, nil
}

// PendingOrders returns unclaimed generic-table rows for the given service
// types, newest first.
func (s *Store) PendingOrders(ctx context.Context, serviceTypes []ServiceType) ([]Order, error) {
	st := make([]string, len(serviceTypes))
	for i, t := range serviceTypes {
		st[i] = string(t)
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, customer_id, driver_id,
		       pickup_address, delivery_address,
		       pickup_coordinates::text, delivery_coordinates::text,
		       status, service_type, package_size, total_amount,
		       created_at, updated_at
		FROM orders
		WHERE status = 'pending'
		  AND driver_id IS NULL
		  AND service_type = ANY($1)
		ORDER BY created_at DESC`, st,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var r OrderRow
		err := rows.Scan(
			&r.ID, &r.CustomerID, &r.DriverID,
			&r.PickupAddress, &r.DeliveryAddress,
			&r.PickupPoint, &r.DeliveryPoint,
			&r.Status, &r.ServiceType, &r.PackageSize, &r.TotalAmount,
			&r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r.ToOrder())
	}
	return out, rows.Err()
}

// PendingRideRequests returns unclaimed legacy-table rows, newest first.
func (s *Store) PendingRideRequests(ctx context.Context) ([]Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, customer_id, driver_id,
		       pickup_location, dropoff_location,
		       price, status, service_type,
		       created_at, updated_at
		FROM ride_requests
		WHERE status = 'pending'
		  AND driver_id IS NULL
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var r RideRequestRow
		err := rows.Scan(
			&r.ID, &r.CustomerID, &r.DriverID,
			&r.PickupLocation, &r.DropoffLocation,
			&r.Price, &r.Status, &r.ServiceType,
			&r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, r.ToOrder())
	}
	return out, rows.Err()
}

// Claim is the accept race's arbitration point: a conditional update that
// only takes effect while the row is still unclaimed. The returned driver_id
// is verified against the caller, so a lost race can never be mistaken for a
// win regardless of how the storage layer reports it.
func (s *Store) Claim(ctx context.Context, source Source, id, driverID types.ID) error {
	query := `
		UPDATE orders
		SET driver_id = $1, status = 'accepted', updated_at = now()
		WHERE id = $2 AND status = 'pending' AND driver_id IS NULL
		RETURNING driver_id`
	if source == SourceRideRequests {
		query = `
		UPDATE ride_requests
		SET driver_id = $1, status = 'accepted', updated_at = now()
		WHERE id = $2 AND status = 'pending' AND driver_id IS NULL
		RETURNING driver_id`
	}
	var claimedBy string
	err := s.db.QueryRow(ctx, query, string(driverID), string(id)).Scan(&claimedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderTaken
	}
	if err != nil {
		return err
	}
	if claimedBy != string(driverID) {
		return ErrOrderTaken
	}
	return nil
}

// UpdateStatus performs a conditional transition: the write lands only if
// the row still has the expected status and assigned driver. Zero rows means
// the row moved underneath us.
func (s *Store) UpdateStatus(ctx context.Context, source Source, id types.ID, from, to Status, driverID types.ID) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3 AND driver_id = $4`
	if source == SourceRideRequests {
		query = `
		UPDATE ride_requests
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3 AND driver_id = $4`
	}
	tag, err := s.db.Exec(ctx, query, string(to), string(id), string(from), string(driverID))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel marks a customer's own order cancelled while it is still
// pre-pickup. Zero rows means the order was already claimed into progress,
// finished, or never belonged to the caller.
func (s *Store) Cancel(ctx context.Context, source Source, id, customerID types.ID) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND customer_id = $2 AND status IN ('pending', 'accepted')`
	if source == SourceRideRequests {
		query = `
		UPDATE ride_requests
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND customer_id = $2 AND status IN ('pending', 'accepted')`
	}
	tag, err := s.db.Exec(ctx, query, string(id), string(customerID))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
