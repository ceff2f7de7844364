package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
)

type roomStore struct {
	*Store
}

func (r *roomStore) Create(ctx context.Context, room *entity.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.rooms {
		if existing.RoomNumber == room.RoomNumber {
			return entity.ErrRoomNumberTaken
		}
	}

	r.nextRoom++
	room.ID = r.nextRoom
	stored := *room
	r.rooms[room.ID] = &stored
	onRollback(ctx, func() { delete(r.rooms, stored.ID) })
	return nil
}

func (r *roomStore) GetByID(ctx context.Context, id int64) (*entity.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, entity.ErrRoomNotFound
	}
	out := *room
	return &out, nil
}

func (r *roomStore) GetByIDForUpdate(ctx context.Context, id int64) (*entity.Room, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := r.WithinTx(ctx, func(ctx context.Context) error {
		return r.lock(ctx, roomKey(id))
	}); err != nil {
		return nil, err
	}
	// re-read after the lock so the caller sees the latest committed state
	return r.GetByID(ctx, id)
}

func (r *roomStore) GetAll(ctx context.Context) ([]*entity.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*entity.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out := *room
		rooms = append(rooms, &out)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomNumber < rooms[j].RoomNumber })
	return rooms, nil
}

func (r *roomStore) UpdateStatus(ctx context.Context, id int64, status entity.RoomStatus) error {
	return r.WithinTx(ctx, func(ctx context.Context) error {
		if err := r.lock(ctx, roomKey(id)); err != nil {
			return err
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		room, ok := r.rooms[id]
		if !ok {
			return entity.ErrRoomNotFound
		}
		prev := *room
		room.Status = status
		room.UpdatedAt = time.Now()
		onRollback(ctx, func() { *r.rooms[id] = prev })
		return nil
	})
}
