package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/jmoiron/sqlx"
)

const userColumns = `
	id, email, first_name, last_name, phone, role,
	password_hash, is_registered, created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (
			email, first_name, last_name, phone, role,
			password_hash, is_registered, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := conn(ctx, r.db).GetContext(ctx, &user.ID, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Role,
		user.PasswordHash,
		user.IsRegistered,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapError(err, "create user")
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var user entity.User
	err := conn(ctx, r.db).GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrUserNotFound
	}
	if err != nil {
		return nil, mapError(err, "get user")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	err := conn(ctx, r.db).GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrUserNotFound
	}
	if err != nil {
		return nil, mapError(err, "get user by email")
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			email = :email,
			first_name = :first_name,
			last_name = :last_name,
			phone = :phone,
			role = :role,
			password_hash = :password_hash,
			is_registered = :is_registered,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := conn(ctx, r.db).NamedExecContext(ctx, query, user)
	if err != nil {
		return mapError(err, "update user")
	}
	return expectOneRow(result, entity.ErrUserNotFound)
}

func (r *userRepository) UpgradeGuest(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users SET
			first_name = :first_name,
			last_name = :last_name,
			phone = :phone,
			role = :role,
			password_hash = :password_hash,
			is_registered = TRUE,
			updated_at = :updated_at
		WHERE id = :id AND is_registered = FALSE`

	result, err := conn(ctx, r.db).NamedExecContext(ctx, query, user)
	if err != nil {
		return mapError(err, "upgrade guest")
	}
	return expectOneRow(result, entity.ErrAlreadyRegistered)
}
