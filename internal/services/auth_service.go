package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"digistore/internal/models"
	"digistore/internal/notify"
	"digistore/internal/storage"
)

// Auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCode        = errors.New("invalid or expired verification code")
)

const verificationCodeTTL = 15 * time.Minute

// AuthService handles accounts: registration, login, profile changes and
// email verification. Passwords are stored as bcrypt hashes, never compared
// in cleartext.
type AuthService struct {
	store     storage.Storage
	notifier  *notify.Dispatcher
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *logrus.Entry
}

// NewAuthService creates a new AuthService. The notifier may be nil.
func NewAuthService(store storage.Storage, notifier *notify.Dispatcher, jwtSecret string, log *logrus.Logger) *AuthService {
	return &AuthService{
		store:     store,
		notifier:  notifier,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  24 * time.Hour,
		log:       log.WithField("component", "auth"),
	}
}

// Register creates a new account with the user role and sends a verification
// code to the given email.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     name,
		Role:     models.RoleUser,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.SendVerificationCode(ctx, user); err != nil {
		// Registration succeeded; the code can be re-requested.
		s.log.WithError(err).WithField("user", user.ID).Warn("failed to issue verification code")
	}
	return user, nil
}

// Login authenticates by email and password. On success it returns the user
// and a signed token; any mismatch yields ErrInvalidCredentials without
// revealing whether the account exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return user, signed, nil
}

// ValidateToken parses and validates a JWT, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// UpdateProfile changes name and/or email. An email change resets the
// verified flag and triggers a fresh verification code.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, email string) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		user.Name = name
	}
	emailChanged := email != "" && email != user.Email
	if emailChanged {
		if existing, err := s.store.GetUserByEmail(ctx, email); err == nil && existing.ID != userID {
			return nil, ErrEmailTaken
		}
		user.Email = email
		user.EmailVerified = false
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	if emailChanged {
		if err := s.SendVerificationCode(ctx, user); err != nil {
			s.log.WithError(err).WithField("user", user.ID).Warn("failed to issue verification code")
		}
	}
	return user, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hash)
	return s.store.UpdateUser(ctx, user)
}

// DeleteAccount removes the account after confirming the password.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return s.store.DeleteUser(ctx, userID)
}

// SendVerificationCode stores a short-lived numeric code for the user and
// enqueues it for delivery.
func (s *AuthService) SendVerificationCode(ctx context.Context, user *models.User) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.store.SetVerificationCode(ctx, user.ID, code, verificationCodeTTL); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.Enqueue(notify.Event{
			Kind: notify.KindVerificationCode,
			Payload: map[string]interface{}{
				"email": user.Email,
				"name":  user.Name,
				"code":  code,
			},
		})
	}
	return nil
}

// RequestVerification issues a fresh code for an unverified account.
func (s *AuthService) RequestVerification(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return nil
	}
	return s.SendVerificationCode(ctx, user)
}

// VerifyEmail checks the submitted code and flips the verified flag.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	stored, err := s.store.GetVerificationCode(ctx, user.ID)
	if err != nil || stored != code {
		return ErrInvalidCode
	}
	user.EmailVerified = true
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}
	return s.store.DeleteVerificationCode(ctx, user.ID)
}

// generateCode produces a 6-digit verification code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
