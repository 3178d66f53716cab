// Package mockapi serves an in-memory stand-in for the healthcare REST API.
// It implements only the endpoints pdseed calls and keeps all state in
// process memory.
package mockapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultAdminEmail    = "admin@healthcare.com"
	DefaultAdminPassword = "Admin123456"

	defaultTokenTTL = 24 * time.Hour
	contextUserKey  = "mockapi_user"
)

// SlotHours are the start hours of the slots created for one day.
var SlotHours = []int{8, 9, 10, 11, 13, 14, 15, 16, 19, 20}

type Options struct {
	AdminEmail    string
	AdminPassword string
	Secret        string
	TokenTTL      time.Duration
	Logger        zerolog.Logger
	Now           func() time.Time
}

type profile struct {
	domain.DoctorProfile
	Status     string
	AdminNotes string
}

type user struct {
	ID       string
	Email    string
	Password string
	Role     domain.Role
	Active   bool
	Profile  *profile
	// generated maps YYYY-MM-DD to the number of slots created that day.
	generated map[string]int
}

type Server struct {
	echo   *echo.Echo
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	byEmail map[string]*user
	byID    map[string]*user
	order   []*user
}

type tokenClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func New(opts Options) *Server {
	if opts.AdminEmail == "" {
		opts.AdminEmail = DefaultAdminEmail
	}
	if opts.AdminPassword == "" {
		opts.AdminPassword = DefaultAdminPassword
	}
	if opts.Secret == "" {
		opts.Secret = uuid.NewString()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		secret:  []byte(opts.Secret),
		ttl:     opts.TokenTTL,
		now:     opts.Now,
		logger:  opts.Logger.With().Str("component", "mockapi").Logger(),
		byEmail: map[string]*user{},
		byID:    map[string]*user{},
	}
	s.addUser(opts.AdminEmail, opts.AdminPassword, domain.RoleAdmin)
	s.echo = s.routes()

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("mock api listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// SeedDoctor registers a doctor directly, bypassing the HTTP surface, and
// returns its id. An approved doctor can generate slots immediately.
func (s *Server) SeedDoctor(email, password string, approved bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.addUser(email, password, domain.RoleDoctor)
	u.Profile = &profile{DoctorProfile: domain.DoctorProfile{FullName: email}, Status: "pending"}
	if approved {
		u.Profile.Status = "approved"
	}
	return u.ID
}

// SetActive toggles whether an account may log in.
func (s *Server) SetActive(email string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.byEmail[normalizeEmail(email)]; ok {
		u.Active = active
	}
}

// GeneratedSlots returns the number of slots created for the account,
// summed over every generated date.
func (s *Server) GeneratedSlots(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return 0
	}
	total := 0
	for _, count := range u.generated {
		total += count
	}
	return total
}

// VerificationStatus reports the profile status of a doctor, or "" when the
// account has no profile.
func (s *Server) VerificationStatus(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[normalizeEmail(email)]
	if !ok || u.Profile == nil {
		return ""
	}
	return u.Profile.Status
}

// addUser must be called with mu held, or before the server is shared.
func (s *Server) addUser(email, password string, role domain.Role) *user {
	u := &user{
		ID:        uuid.NewString(),
		Email:     normalizeEmail(email),
		Password:  password,
		Role:      role,
		Active:    true,
		generated: map[string]int{},
	}
	s.byEmail[u.Email] = u
	s.byID[u.ID] = u
	s.order = append(s.order, u)
	return u
}

func (s *Server) issueToken(u *user) (string, error) {
	now := s.now()
	claims := tokenClaims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
