// Package pgstore is the raw pgx access path used by the background workers.
// Queries are built with squirrel against the tables the API migrates.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-platform-api/models"
	"rental-platform-api/predictive"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Store struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, sb: builder()}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

func (s *Store) Property(ctx context.Context, id uint) (predictive.PropertySummary, error) {
	query, args, err := propertyQuery(s.sb).Where(sq.Eq{"id": int64(id)}).ToSql()
	if err != nil {
		return predictive.PropertySummary{}, err
	}
	p, err := scanProperty(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return predictive.PropertySummary{}, predictive.ErrPropertyNotFound
	}
	return p, err
}

func (s *Store) PropertiesByOwner(ctx context.Context, ownerID uint) ([]predictive.PropertySummary, error) {
	query, args, err := propertyQuery(s.sb).
		Where(sq.Eq{"owner_id": int64(ownerID)}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	var out []predictive.PropertySummary
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) OwnersWithProperties(ctx context.Context) ([]uint, error) {
	query, args, err := s.sb.Select("DISTINCT owner_id").From("properties").OrderBy("owner_id ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query owners: %w", err)
	}
	defer rows.Close()

	var owners []uint
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, uint(id))
	}
	return owners, rows.Err()
}

func (s *Store) MaintenanceHistory(ctx context.Context, propertyID uint, category predictive.Category) ([]predictive.MaintenanceRecord, error) {
	query, args, err := historyQuery(s.sb, propertyID, category).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query maintenance history: %w", err)
	}
	defer rows.Close()

	var out []predictive.MaintenanceRecord
	for rows.Next() {
		var (
			r        predictive.MaintenanceRecord
			category string
			cost     *string
		)
		if err := rows.Scan(&category, &r.CreatedAt, &r.CompletedAt, &cost); err != nil {
			return nil, fmt.Errorf("scan maintenance record: %w", err)
		}
		r.Category = predictive.Category(category)
		if r.ActualCost, err = parseCost(cost); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	query, args, err := s.sb.Insert("notifications").
		Columns("user_id", "type", "title", "message", "read", "created_at").
		Values(int64(n.UserID), n.Type, n.Title, n.Message, n.Read, n.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}
	var id int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	n.ID = uint(id)
	return nil
}

// PendingNotifications returns undelivered notifications, oldest first.
func (s *Store) PendingNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	query, args, err := pendingQuery(s.sb, limit).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var (
			n          models.Notification
			id, userID int64
		)
		if err := rows.Scan(&id, &userID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID, n.UserID = uint(id), uint(userID)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkDelivered(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := markDeliveredQuery(s.sb, ids, at).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark notifications delivered: %w", err)
	}
	return nil
}

// OpenSensorRequestExists reports whether the sensor already has an
// unfinished request on the property.
func (s *Store) OpenSensorRequestExists(ctx context.Context, propertyID uint, sensorID string) (bool, error) {
	query, args, err := s.sb.Select("1").
		From("maintenance_requests").
		Where(sq.Eq{
			"property_id": int64(propertyID),
			"sensor_id":   sensorID,
			"source":      models.SourceSensor,
		}).
		Where(sq.NotEq{"status": models.StatusCompleted}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = s.pool.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query open sensor requests: %w", err)
	}
	return true, nil
}

func (s *Store) InsertMaintenanceRequest(ctx context.Context, r *models.MaintenanceRequest) error {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	query, args, err := s.sb.Insert("maintenance_requests").
		Columns("property_id", "title", "description", "category", "status", "source", "sensor_id", "created_at", "updated_at").
		Values(int64(r.PropertyID), r.Title, r.Description, r.Category, r.Status, r.Source, r.SensorID, r.CreatedAt, r.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}
	var id int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return fmt.Errorf("insert maintenance request: %w", err)
	}
	r.ID = uint(id)
	return nil
}

func propertyQuery(sb sq.StatementBuilderType) sq.SelectBuilder {
	return sb.Select("id", "title", "COALESCE(address, '')", "construction_year", "owner_id").From("properties")
}

func historyQuery(sb sq.StatementBuilderType, propertyID uint, category predictive.Category) sq.SelectBuilder {
	q := sb.Select("category", "created_at", "completed_at", "actual_cost::text").
		From("maintenance_requests").
		Where(sq.Eq{"property_id": int64(propertyID)})
	if category != "" {
		q = q.Where(sq.Eq{"category": string(category)})
	}
	return q.OrderBy("created_at DESC", "id DESC")
}

func pendingQuery(sb sq.StatementBuilderType, limit int) sq.SelectBuilder {
	return sb.Select("id", "user_id", "type", "title", "message", "read", "created_at").
		From("notifications").
		Where(sq.Eq{"delivered_at": nil}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(max(limit, 1)))
}

func markDeliveredQuery(sb sq.StatementBuilderType, ids []uint, at time.Time) sq.UpdateBuilder {
	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}
	return sb.Update("notifications").
		Set("delivered_at", at).
		Where(sq.Eq{"id": keys})
}

func scanProperty(row pgx.Row) (predictive.PropertySummary, error) {
	var (
		p              predictive.PropertySummary
		id, ownerID    int64
		constructionYr *int64
	)
	if err := row.Scan(&id, &p.Title, &p.Address, &constructionYr, &ownerID); err != nil {
		return predictive.PropertySummary{}, err
	}
	p.ID, p.OwnerID = uint(id), uint(ownerID)
	if constructionYr != nil {
		year := int(*constructionYr)
		p.ConstructionYear = &year
	}
	return p, nil
}

func parseCost(raw *string) (decimal.NullDecimal, error) {
	if raw == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse actual cost %q: %w", *raw, err)
	}
	return decimal.NewNullDecimal(d), nil
}
