package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pdhealth/pdseed/internal/domain"
)

const maxUsersLimit = 1000

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type userView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type profileView struct {
	UserID           string `json:"userId"`
	FullName         string `json:"fullName"`
	Specialization   string `json:"specialization"`
	MedicalLicenseID string `json:"medicalLicenseId"`
	ClinicAddress    string `json:"clinicAddress"`
	Bio              string `json:"bio"`
	Status           string `json:"status"`
	AdminNotes       string `json:"adminNotes,omitempty"`
}

type slotView struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type profileBody struct {
	FullName         string `json:"fullName"`
	Specialization   string `json:"specialization"`
	MedicalLicenseID string `json:"medicalLicenseId"`
	ClinicAddress    string `json:"clinicAddress"`
	Bio              string `json:"bio"`
}

type verificationBody struct {
	Status     string `json:"status"`
	AdminNotes string `json:"adminNotes"`
}

type generateDailyBody struct {
	Date string `json:"date"`
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(echomw.Recover())
	e.Use(s.requestLogger)

	api := e.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	doctors := api.Group("/doctors", s.authenticate)
	doctors.POST("/profile", s.createProfile, requireRole(domain.RoleDoctor))
	doctors.GET("/profile", s.getProfile, requireRole(domain.RoleDoctor))
	doctors.PATCH("/:id/verification", s.verifyDoctor, requireRole(domain.RoleAdmin))

	api.GET("/users", s.listUsers, s.authenticate, requireRole(domain.RoleAdmin))
	api.POST("/appointments/availability/generate-daily", s.generateDaily, s.authenticate, requireRole(domain.RoleDoctor))

	return e
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if text, ok := httpErr.Message.(string); ok {
			message = text
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	if err := c.JSON(code, envelope{Success: false, Message: message}); err != nil {
		s.logger.Error().Err(err).Msg("write error response")
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		err := next(c)

		status := c.Response().Status
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Code
		}
		s.logger.Debug().
			Str("request_id", req.Header.Get(echo.HeaderXRequestID)).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")

		return err
	}
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Access token is required")
		}

		claims := &tokenClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		s.mu.Lock()
		u, ok := s.byID[claims.UserID]
		active := ok && u.Active
		s.mu.Unlock()
		if !active {
			return echo.NewHTTPError(http.StatusUnauthorized, "User not found or inactive")
		}

		c.Set(contextUserKey, claims)
		return next(c)
	}
}

func requireRole(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, _ := c.Get(contextUserKey).(*tokenClaims)
			if claims != nil {
				for _, role := range roles {
					if claims.Role == string(role) {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

func currentUserID(c echo.Context) string {
	claims, _ := c.Get(contextUserKey).(*tokenClaims)
	if claims == nil {
		return ""
	}
	return claims.UserID
}

func (s *Server) register(c echo.Context) error {
	var body credentialsBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	email := normalizeEmail(body.Email)
	if !strings.Contains(email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid email")
	}
	if len(body.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 6 characters")
	}
	role := domain.Role(body.Role)
	if role == "" {
		role = domain.RolePatient
	}
	if role != domain.RoleDoctor && role != domain.RolePatient {
		return echo.NewHTTPError(http.StatusBadRequest, "Role must be doctor or patient")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return echo.NewHTTPError(http.StatusConflict, "Email already registered")
	}
	u := s.addUser(email, body.Password, role)
	s.logger.Debug().Str("email", u.Email).Str("role", string(role)).Msg("user registered")

	return c.JSON(http.StatusCreated, envelope{
		Success: true,
		Message: "User registered successfully",
		Data:    map[string]any{"user": viewUser(u)},
	})
}

func (s *Server) login(c echo.Context) error {
	var body credentialsBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	s.mu.Lock()
	u, ok := s.byEmail[normalizeEmail(body.Email)]
	var view userView
	if ok {
		view = viewUser(u)
	}
	matched := ok && u.Password == body.Password
	s.mu.Unlock()

	if !matched {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if !view.IsActive {
		return echo.NewHTTPError(http.StatusForbidden, "Account is deactivated")
	}

	s.mu.Lock()
	token, err := s.issueToken(u)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "Login successful",
		Data:    map[string]any{"token": token, "user": view},
	})
}

func (s *Server) createProfile(c echo.Context) error {
	var body profileBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(body.FullName) == "" || strings.TrimSpace(body.MedicalLicenseID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fullName and medicalLicenseId are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byID[currentUserID(c)]
	if u.Profile != nil {
		return echo.NewHTTPError(http.StatusConflict, "Doctor profile already exists")
	}
	u.Profile = &profile{
		DoctorProfile: domain.DoctorProfile{
			FullName:         body.FullName,
			Specialization:   body.Specialization,
			MedicalLicenseID: body.MedicalLicenseID,
			ClinicAddress:    body.ClinicAddress,
			Bio:              body.Bio,
		},
		Status: "pending",
	}

	return c.JSON(http.StatusCreated, envelope{
		Success: true,
		Message: "Doctor profile created, awaiting verification",
		Data:    viewProfile(u),
	})
}

func (s *Server) getProfile(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byID[currentUserID(c)]
	if u.Profile == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Doctor profile not found")
	}

	return c.JSON(http.StatusOK, envelope{Success: true, Data: viewProfile(u)})
}

func (s *Server) verifyDoctor(c echo.Context) error {
	var body verificationBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	switch body.Status {
	case "approved", "rejected", "pending":
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Status must be approved, rejected or pending")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[c.Param("id")]
	if !ok || u.Role != domain.RoleDoctor || u.Profile == nil {
		return echo.NewHTTPError(http.StatusNotFound, "Doctor profile not found")
	}
	u.Profile.Status = body.Status
	u.Profile.AdminNotes = body.AdminNotes
	s.logger.Debug().Str("email", u.Email).Str("status", body.Status).Msg("doctor verified")

	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Message: "Doctor verification updated",
		Data:    viewProfile(u),
	})
}

func (s *Server) listUsers(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(parsed, maxUsersLimit)
	}
	role := domain.Role(c.QueryParam("role"))

	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]userView, 0, min(limit, len(s.order)))
	for _, u := range s.order {
		if len(users) == limit {
			break
		}
		if role != "" && u.Role != role {
			continue
		}
		users = append(users, viewUser(u))
	}

	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    map[string]any{"users": users, "count": len(users)},
	})
}

func (s *Server) generateDaily(c echo.Context) error {
	var body generateDailyBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	day, err := time.Parse(domain.DateLayout, body.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.byID[currentUserID(c)]
	if u.Profile == nil || u.Profile.Status != "approved" {
		return echo.NewHTTPError(http.StatusForbidden, "Doctor profile is not approved")
	}
	if _, done := u.generated[body.Date]; done {
		return echo.NewHTTPError(http.StatusConflict, "Slots already exist for this date")
	}

	slots := make([]slotView, 0, len(SlotHours))
	for _, hour := range SlotHours {
		start := day.Add(time.Duration(hour) * time.Hour)
		slots = append(slots, slotView{StartTime: start, EndTime: start.Add(time.Hour)})
	}
	u.generated[body.Date] = len(slots)

	return c.JSON(http.StatusCreated, envelope{
		Success: true,
		Message: fmt.Sprintf("Generated %d time slots", len(slots)),
		Data:    map[string]any{"slots": slots, "count": len(slots)},
	})
}

func viewUser(u *user) userView {
	return userView{ID: u.ID, Email: u.Email, Role: string(u.Role), IsActive: u.Active}
}

func viewProfile(u *user) profileView {
	return profileView{
		UserID:           u.ID,
		FullName:         u.Profile.FullName,
		Specialization:   u.Profile.Specialization,
		MedicalLicenseID: u.Profile.MedicalLicenseID,
		ClinicAddress:    u.Profile.ClinicAddress,
		Bio:              u.Profile.Bio,
		Status:           u.Profile.Status,
		AdminNotes:       u.Profile.AdminNotes,
	}
}
