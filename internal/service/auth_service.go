package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/grahaedukasi/graha-cbt/internal/clock"
	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/metrics"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/schedule"
)

// TokenType distinguishes student vs admin tokens.
type TokenType string

const (
	TokenTypeStudent TokenType = "student"
	TokenTypeAdmin   TokenType = "admin"
)

// NextView tells the client where to route a student after login.
type NextView string

const (
	ViewConfirmBio NextView = "confirm_bio"
	ViewResult     NextView = "result"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	// ActiveSubject is the subject session granted at login, student only.
	ActiveSubject string `json:"active_subject,omitempty"`
}

// StudentLoginResult is returned on a successful access-code login.
type StudentLoginResult struct {
	Token         string        `json:"token"`
	Student       model.Student `json:"student"`
	ActiveSubject string        `json:"activeSubject,omitempty"`
	NextView      NextView      `json:"nextView"`
}

// AuthService handles student code login, admin login and JWTs.
type AuthService struct {
	cfg   *config.Config
	store repository.Store
	clk   clock.Clock
	log   zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, store repository.Store, clk clock.Clock, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:   cfg,
		store: store,
		clk:   clk,
		log:   log.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// StudentLogin finds the student by access code and applies the schedule
// gate at the current time. Codes match case-insensitively.
func (s *AuthService) StudentLogin(ctx context.Context, code string) (*StudentLoginResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrStudentNotFound
	}

	students, err := s.store.GetStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	var student *model.Student
	for i := range students {
		if strings.EqualFold(students[i].Code, code) {
			student = &students[i]
			break
		}
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	cfg, err := s.store.GetExamConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exam config: %w", err)
	}

	decision := schedule.IsLoginAllowed(cfg, student.Status, s.clk.Now())
	if !decision.Allowed {
		s.log.Info().
			Str("student_id", student.ID).
			Str("reason", string(decision.Reason)).
			Msg("Login denied by schedule")
		metrics.LoginCounter.WithLabelValues(string(decision.Reason)).Inc()
		return nil, &ScheduleDeniedError{Decision: decision}
	}

	token, err := s.generateToken(student.ID, TokenTypeStudent, decision.ActiveSubject)
	if err != nil {
		return nil, err
	}

	metrics.LoginCounter.WithLabelValues("allowed").Inc()

	next := ViewConfirmBio
	if student.Status == model.StudentStatusCompleted {
		next = ViewResult
	}

	return &StudentLoginResult{
		Token:         token,
		Student:       *student,
		ActiveSubject: decision.ActiveSubject,
		NextView:      next,
	}, nil
}

// AdminLogin checks the static administrator credential.
func (s *AuthService) AdminLogin(email, password string) (string, error) {
	if s.cfg.AdminPasswordHash == "" {
		s.log.Warn().Msg("Admin login attempted but ADMIN_PASSWORD_HASH is not set")
		return "", ErrInvalidCredentials
	}
	if !strings.EqualFold(strings.TrimSpace(email), s.cfg.AdminEmail) {
		return "", ErrInvalidCredentials
	}
	if err := s.CheckPassword(s.cfg.AdminPasswordHash, password); err != nil {
		return "", err
	}
	return s.generateToken(s.cfg.AdminEmail, TokenTypeAdmin, "")
}

func (s *AuthService) generateToken(subject string, typ TokenType, activeSubject string) (string, error) {
	now := s.clk.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:     typ,
		ActiveSubject: activeSubject,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.clk.Now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
