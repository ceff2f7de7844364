package appServer

import (
	"fmt"
	"strings"

	"github.com/ds124wfegd/hotel-booking/config"
	"github.com/ds124wfegd/hotel-booking/internal/database/memory"
	repository "github.com/ds124wfegd/hotel-booking/internal/database/postgres"
	"github.com/ds124wfegd/hotel-booking/pkg/postgres"

	"github.com/sirupsen/logrus"
)

type storage struct {
	tx       repository.TxManager
	rooms    repository.RoomRepository
	bookings repository.BookingRepository
	users    repository.UserRepository
	close    func() error
}

func (s *storage) Close() {
	if s.close == nil {
		return
	}
	if err := s.close(); err != nil {
		logrus.Errorf("Failed to close storage: %v", err)
	}
}

// openStorage picks the repository implementation by database.driver.
func openStorage(cfg *config.Config) (*storage, error) {
	switch strings.ToLower(cfg.Database.Driver) {
	case "memory":
		store := memory.NewStore(cfg.Database.LockTimeout)
		logrus.Warn("Using in-memory storage, data is lost on restart")
		return &storage{
			tx:       store,
			rooms:    store.Rooms(),
			bookings: store.Bookings(),
			users:    store.Users(),
		}, nil

	case "", "postgres":
		db, err := postgres.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &storage{
			tx:       repository.NewTxManager(db, cfg.Database.LockTimeout),
			rooms:    repository.NewRoomRepository(db),
			bookings: repository.NewBookingRepository(db),
			users:    repository.NewUserRepository(db),
			close:    db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
