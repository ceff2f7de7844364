package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/jmoiron/sqlx"
)

const bookingColumns = `
	booking_code, user_id, room_id, check_in_date, check_out_date,
	special_requests, status, total_price, created_at, updated_at`

type bookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) BookingRepository {
	return &bookingRepository{db: db}
}

// Create inserts a booking. The caller is expected to hold the room lock.
func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES (
			:booking_code, :user_id, :room_id, :check_in_date, :check_out_date,
			:special_requests, :status, :total_price, :created_at, :updated_at
		)`

	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, booking); err != nil {
		return mapError(err, "create booking")
	}
	return nil
}

func (r *bookingRepository) GetByCode(ctx context.Context, code string) (*entity.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_code = $1`, code)
}

// GetByCodeForUpdate reads a booking and locks its row
func (r *bookingRepository) GetByCodeForUpdate(ctx context.Context, code string) (*entity.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_code = $1 FOR UPDATE`, code)
}

func (r *bookingRepository) getOne(ctx context.Context, query, code string) (*entity.Booking, error) {
	var booking entity.Booking
	err := conn(ctx, r.db).GetContext(ctx, &booking, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, mapError(err, "get booking")
	}
	return &booking, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	query := `
		UPDATE bookings SET
			room_id = :room_id,
			check_in_date = :check_in_date,
			check_out_date = :check_out_date,
			special_requests = :special_requests,
			status = :status,
			total_price = :total_price,
			updated_at = :updated_at
		WHERE booking_code = :booking_code`

	result, err := conn(ctx, r.db).NamedExecContext(ctx, query, booking)
	if err != nil {
		return mapError(err, "update booking")
	}
	return expectOneRow(result, entity.ErrBookingNotFound)
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, code string, status entity.BookingStatus, at time.Time) error {
	query := `UPDATE bookings SET status = $1, updated_at = $2 WHERE booking_code = $3`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, status, at, code)
	if err != nil {
		return mapError(err, "update booking status")
	}
	return expectOneRow(result, entity.ErrBookingNotFound)
}

// CountOverlapping applies the half-open rule: an existing stay does not
// collide when the requested one ends on or before its check-in, or starts on
// or after its check-out.
func (r *bookingRepository) CountOverlapping(ctx context.Context, roomID int64, stay entity.DateRange, excludeCode string) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE room_id = $1
			AND status = 'ACTIVE'
			AND NOT ($3 <= check_in_date OR $2 >= check_out_date)
			AND ($4 = '' OR booking_code <> $4)`

	var count int
	if err := conn(ctx, r.db).GetContext(ctx, &count, query, roomID, stay.Start, stay.End, excludeCode); err != nil {
		return 0, mapError(err, "count overlapping bookings")
	}
	return count, nil
}

func (r *bookingRepository) GetByUserID(ctx context.Context, userID int64) ([]*entity.Booking, error) {
	return r.selectMany(ctx, "get user bookings",
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY check_in_date DESC`, userID)
}

func (r *bookingRepository) GetAll(ctx context.Context) ([]*entity.Booking, error) {
	return r.selectMany(ctx, "get all bookings",
		`SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
}

func (r *bookingRepository) GetActiveByRoomInRange(ctx context.Context, roomID int64, window entity.DateRange) ([]*entity.Booking, error) {
	return r.selectMany(ctx, "get room bookings",
		`SELECT `+bookingColumns+` FROM bookings
		WHERE room_id = $1 AND status = 'ACTIVE'
			AND check_in_date < $3 AND check_out_date > $2
		ORDER BY check_in_date`, roomID, window.Start, window.End)
}

func (r *bookingRepository) GetUpcomingCheckins(ctx context.Context, from, to entity.Date) ([]*entity.Booking, error) {
	return r.selectMany(ctx, "get upcoming check-ins",
		`SELECT `+bookingColumns+` FROM bookings
		WHERE status = 'ACTIVE' AND check_in_date BETWEEN $1 AND $2
		ORDER BY check_in_date, booking_code`, from, to)
}

func (r *bookingRepository) GetActiveByCheckIn(ctx context.Context, day entity.Date) ([]*entity.Booking, error) {
	return r.selectMany(ctx, "get check-ins",
		`SELECT `+bookingColumns+` FROM bookings WHERE status = 'ACTIVE' AND check_in_date = $1`, day)
}

func (r *bookingRepository) GetActiveByCheckOut(ctx context.Context, day entity.Date) ([]*entity.Booking, error) {
	return r.selectMany(ctx, "get check-outs",
		`SELECT `+bookingColumns+` FROM bookings WHERE status = 'ACTIVE' AND check_out_date = $1`, day)
}

// CompleteExpired moves every past-due ACTIVE booking to COMPLETED in a single
// statement. Rows that stop matching while it waits on their lock are skipped.
func (r *bookingRepository) CompleteExpired(ctx context.Context, today entity.Date, at time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'COMPLETED', updated_at = $2
		WHERE status = 'ACTIVE' AND check_out_date < $1`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, today, at)
	if err != nil {
		return 0, mapError(err, "complete expired bookings")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, mapError(err, "read affected rows")
	}
	return affected, nil
}

func (r *bookingRepository) selectMany(ctx context.Context, op, query string, args ...interface{}) ([]*entity.Booking, error) {
	bookings := []*entity.Booking{}
	if err := conn(ctx, r.db).SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, mapError(err, op)
	}
	return bookings, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return mapError(err, "read affected rows")
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
