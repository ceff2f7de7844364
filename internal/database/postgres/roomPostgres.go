package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/jmoiron/sqlx"
)

const roomColumns = `
	id, room_number, room_type, base_price, max_guests, floor,
	status, created_at, updated_at`

type roomRepository struct {
	db *sqlx.DB
}

func NewRoomRepository(db *sqlx.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *entity.Room) error {
	query := `
		INSERT INTO rooms (room_number, room_type, base_price, max_guests, floor, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := conn(ctx, r.db).GetContext(ctx, &room.ID, query,
		room.RoomNumber,
		room.RoomType,
		room.BasePrice,
		room.MaxGuests,
		room.Floor,
		room.Status,
		room.CreatedAt,
		room.UpdatedAt,
	)
	return mapError(err, "create room")
}

func (r *roomRepository) GetByID(ctx context.Context, id int64) (*entity.Room, error) {
	return r.getOne(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
}

// GetByIDForUpdate is the serialization point for every booking decision on a
// room: concurrent callers block here until the holder's transaction ends.
func (r *roomRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entity.Room, error) {
	return r.getOne(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, id)
}

func (r *roomRepository) getOne(ctx context.Context, query string, id int64) (*entity.Room, error) {
	var room entity.Room
	err := conn(ctx, r.db).GetContext(ctx, &room, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrRoomNotFound
	}
	if err != nil {
		return nil, mapError(err, "get room")
	}
	return &room, nil
}

func (r *roomRepository) GetAll(ctx context.Context) ([]*entity.Room, error) {
	rooms := []*entity.Room{}
	if err := conn(ctx, r.db).SelectContext(ctx, &rooms, `SELECT `+roomColumns+` FROM rooms ORDER BY room_number`); err != nil {
		return nil, mapError(err, "get rooms")
	}
	return rooms, nil
}

func (r *roomRepository) UpdateStatus(ctx context.Context, id int64, status entity.RoomStatus) error {
	query := `UPDATE rooms SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return mapError(err, "update room status")
	}
	return expectOneRow(result, entity.ErrRoomNotFound)
}
