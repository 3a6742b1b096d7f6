package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"hotel_pms/internal/domain"
)

const dateLayout = "2006-01-02"

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
func valTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// dateArg sends the calendar date only, so the session time zone cannot
// shift it.
func dateArg(t time.Time) string { return t.Format(dateLayout) }

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func isDuplicate(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- properties ----

func (r *Repo) UpsertProperty(ctx context.Context, p domain.Property) error {
	_, err := r.db.ExecContext(ctx, upsertPropertySQL,
		p.ID,
		p.Name,
		valStr(p.City),
		valStr(p.Country),
		valStr(p.Address),
		valF64(p.Lat),
		valF64(p.Lon),
		p.BasePrice,
		p.Currency,
		valJSON(p.RawJSON),
	)
	return err
}

func (r *Repo) UpsertRoomType(ctx context.Context, rt domain.RoomType) error {
	_, err := r.db.ExecContext(ctx, upsertRoomTypeSQL,
		rt.ID,
		rt.PropertyID,
		rt.Name,
		rt.NumberOfRooms,
		valInt(rt.MaxGuests),
		rt.BasePrice,
		valJSON(rt.RawJSON),
	)
	return err
}

func (r *Repo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	row := r.db.QueryRowContext(ctx, selectPropertyCols+"WHERE id = ?", id)
	p, err := scanProperty(row)
	if err == sql.ErrNoRows {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repo) ListProperties(ctx context.Context) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx, selectPropertyCols+"ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanProperty(s scanner) (domain.Property, error) {
	var p domain.Property
	var city, country, addr sql.NullString
	var lat, lon sql.NullFloat64
	if err := s.Scan(&p.ID, &p.Name, &city, &country, &addr, &lat, &lon, &p.BasePrice, &p.Currency); err != nil {
		return domain.Property{}, err
	}
	p.City, p.Country, p.Address = strPtr(city), strPtr(country), strPtr(addr)
	if lat.Valid && lon.Valid {
		la, lo := lat.Float64, lon.Float64
		p.Lat, p.Lon = &la, &lo
	}
	return p, nil
}

func (r *Repo) ListRoomTypes(ctx context.Context, propertyID *string) ([]domain.RoomType, error) {
	q, args := selectRoomTypeCols, []any{}
	if propertyID != nil {
		q += "WHERE property_id = ? "
		args = append(args, *propertyID)
	}
	rows, err := r.db.QueryContext(ctx, q+"ORDER BY property_id, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomType
	for rows.Next() {
		var rt domain.RoomType
		var maxGuests sql.NullInt64
		if err := rows.Scan(&rt.ID, &rt.PropertyID, &rt.Name, &rt.NumberOfRooms, &maxGuests, &rt.BasePrice); err != nil {
			return nil, err
		}
		if maxGuests.Valid {
			g := int(maxGuests.Int64)
			rt.MaxGuests = &g
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// ---- bookings ----

func (r *Repo) UpsertBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, upsertBookingSQL,
		b.ID,
		b.PropertyID,
		valStr(b.RoomID),
		valStr(b.RoomTypeID),
		valStr(b.GuestName),
		valStr(b.GuestEmail),
		dateArg(b.CheckIn),
		dateArg(b.CheckOut),
		string(b.Status),
		string(b.Source),
		b.Amount,
		valJSON(b.RawJSON),
		valTime(b.CreatedAt),
	)
	return err
}

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.ID,
		b.PropertyID,
		valStr(b.RoomID),
		valStr(b.RoomTypeID),
		valStr(b.GuestName),
		valStr(b.GuestEmail),
		dateArg(b.CheckIn),
		dateArg(b.CheckOut),
		string(b.Status),
		string(b.Source),
		b.Amount,
		b.CreatedAt.UTC(),
	)
	if isDuplicate(err) {
		return fmt.Errorf("booking %s: %w", b.ID, domain.ErrDuplicateRequest)
	}
	return err
}

func (r *Repo) UpdateBookingStatus(ctx context.Context, id string, s domain.Status) error {
	res, err := r.db.ExecContext(ctx, updateBookingStatusSQL, string(s), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	row := r.db.QueryRowContext(ctx, selectBookingCols+"WHERE b.id = ?", id)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	var where []string
	var args []any
	if f.PropertyID != nil {
		where = append(where, "b.property_id = ?")
		args = append(args, *f.PropertyID)
	}
	if f.RoomTypeID != nil {
		where = append(where, "b.room_type_id = ?")
		args = append(args, *f.RoomTypeID)
	}
	// half-open overlap with [From, To)
	if f.To != nil {
		where = append(where, "b.check_in < ?")
		args = append(args, dateArg(*f.To))
	}
	if f.From != nil {
		where = append(where, "b.check_out > ?")
		args = append(args, dateArg(*f.From))
	}
	if len(f.Statuses) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.Statuses)), ",")
		where = append(where, "b.status IN ("+marks+")")
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}

	q := selectBookingCols
	if len(where) > 0 {
		q += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	q += "ORDER BY b.created_at DESC, b.id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(s scanner) (domain.Booking, error) {
	var b domain.Booking
	var roomID, roomTypeID, guest, email sql.NullString
	var status, source string
	var amount sql.NullFloat64
	if err := s.Scan(
		&b.ID,
		&b.PropertyID,
		&b.PropertyName,
		&roomID,
		&roomTypeID,
		&guest,
		&email,
		&b.CheckIn,
		&b.CheckOut,
		&status,
		&source,
		&amount,
		&b.CreatedAt,
	); err != nil {
		return domain.Booking{}, err
	}
	b.RoomID, b.RoomTypeID = strPtr(roomID), strPtr(roomTypeID)
	b.GuestName, b.GuestEmail = strPtr(guest), strPtr(email)
	if st, ok := domain.ParseStatus(status); ok {
		b.Status = st
	} else {
		b.Status = domain.StatusPending
	}
	b.Source = domain.ParseSource(source)
	// NULL amount degrades to zero for display sums
	if amount.Valid {
		b.Amount = amount.Float64
	}
	return b, nil
}
