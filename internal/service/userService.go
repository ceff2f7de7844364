package service

import (
	"context"
	"errors"
	"strings"
	"time"

	repository "github.com/ds124wfegd/hotel-booking/internal/database/postgres"
	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest represents the data needed to register a user
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Phone     string `json:"phone" binding:"max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token     string       `json:"access_token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// Registration carries the credentials that turn an identity into a registered user.
type Registration struct {
	PasswordHash string
}

type userService struct {
	userRepo   repository.UserRepository
	tokens     TokenIssuer
	clock      Clock
	bcryptCost int
}

// NewUserService creates a new instance of UserService
func NewUserService(userRepo repository.UserRepository, tokens TokenIssuer, clock Clock) UserService {
	if clock == nil {
		clock = time.Now
	}
	return &userService{
		userRepo:   userRepo,
		tokens:     tokens,
		clock:      clock,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// ResolveBookingIdentity picks the user a booking belongs to: the given user
// id, or else the guest identified by contact.Email.
func (s *userService) ResolveBookingIdentity(ctx context.Context, userID *int64, contact entity.Contact) (*entity.User, error) {
	if userID != nil {
		return s.userRepo.GetByID(ctx, *userID)
	}
	if strings.TrimSpace(contact.Email) == "" {
		return nil, entity.ErrIdentityRequired
	}
	return s.UpsertIdentity(ctx, contact, nil)
}

// UpsertIdentity is the single place where users are created or upgraded, so
// the one-row-per-email rule is enforced here and by the unique index only.
//
// With reg == nil it resolves a guest: an unregistered row with that email is
// reused, a registered one is refused, and otherwise a guest row is created.
// With reg != nil it registers: a guest row is upgraded in place (same id),
// a registered one is refused, and otherwise a registered row is created.
func (s *userService) UpsertIdentity(ctx context.Context, contact entity.Contact, reg *Registration) (*entity.User, error) {
	email, err := entity.NormalizeEmail(contact.Email)
	if err != nil {
		return nil, err
	}

	// a concurrent insert of the same email makes the first attempt lose the
	// unique index race; the second attempt then finds that row
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.userRepo.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, entity.ErrUserNotFound):
			user, err := s.createIdentity(ctx, email, contact, reg)
			if errors.Is(err, entity.ErrEmailTaken) {
				continue
			}
			return user, err
		case err != nil:
			return nil, err
		}

		if existing.IsRegistered {
			if reg != nil {
				return nil, entity.ErrAlreadyRegistered
			}
			return nil, entity.ErrEmailRegistered
		}
		if reg == nil {
			return existing, nil
		}
		return s.upgradeGuest(ctx, existing, contact, reg)
	}
	return nil, entity.NewSystemError("could not resolve identity", entity.ErrEmailTaken)
}

func (s *userService) createIdentity(ctx context.Context, email string, contact entity.Contact, reg *Registration) (*entity.User, error) {
	now := s.clock()
	user := &entity.User{
		Email:     email,
		FirstName: strings.TrimSpace(contact.FirstName),
		LastName:  strings.TrimSpace(contact.LastName),
		Phone:     strings.TrimSpace(contact.Phone),
		Role:      entity.UserRoleCustomer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if reg != nil {
		user.IsRegistered = true
		user.PasswordHash = reg.PasswordHash
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"registered": user.IsRegistered,
	}).Info("User created")
	return user, nil
}

func (s *userService) upgradeGuest(ctx context.Context, guest *entity.User, contact entity.Contact, reg *Registration) (*entity.User, error) {
	guest.IsRegistered = true
	guest.PasswordHash = reg.PasswordHash
	guest.Role = entity.UserRoleCustomer
	if v := strings.TrimSpace(contact.FirstName); v != "" {
		guest.FirstName = v
	}
	if v := strings.TrimSpace(contact.LastName); v != "" {
		guest.LastName = v
	}
	if v := strings.TrimSpace(contact.Phone); v != "" {
		guest.Phone = v
	}
	guest.UpdatedAt = s.clock()

	// a concurrent registration may have upgraded the row since it was read
	if err := s.userRepo.UpgradeGuest(ctx, guest); err != nil {
		return nil, err
	}

	logrus.WithField("user_id", guest.ID).Info("Guest upgraded to registered user")
	return guest, nil
}

func (s *userService) Register(ctx context.Context, req *RegisterRequest) (*entity.User, error) {
	if len(req.Password) < 8 {
		return nil, entity.NewValidationError("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, entity.NewSystemError("failed to hash password", err)
	}

	return s.UpsertIdentity(ctx, entity.Contact{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}, &Registration{PasswordHash: string(hash)})
}

func (s *userService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	email, err := entity.NormalizeEmail(req.Email)
	if err != nil {
		return nil, entity.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, entity.ErrUserNotFound) {
		return nil, entity.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsRegistered || user.PasswordHash == "" {
		return nil, entity.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, entity.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, entity.NewSystemError("failed to issue token", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *userService) GetUser(ctx context.Context, id int64) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// EnsureAdmin creates the administrator account, or promotes and re-keys an
// existing user with that email.
func (s *userService) EnsureAdmin(ctx context.Context, email, password string) (*entity.User, error) {
	email, err := entity.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, entity.NewValidationError("admin password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, entity.NewSystemError("failed to hash password", err)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, entity.ErrUserNotFound):
		user, err = s.createIdentity(ctx, email, entity.Contact{FirstName: "Admin"}, &Registration{PasswordHash: string(hash)})
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	user.Role = entity.UserRoleAdmin
	user.IsRegistered = true
	user.PasswordHash = string(hash)
	user.UpdatedAt = s.clock()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	logrus.WithField("user_id", user.ID).Info("Administrator account ensured")
	return user, nil
}
