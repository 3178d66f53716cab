package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/pdhealth/pdseed/internal/ports"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout     = 15 * time.Second
	maxResponseBytes   = 1 << 20
	errorPreviewLength = 100

	headerRequestID = "X-Request-ID"
)

type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	UserAgent      string
}

// Client talks to the healthcare REST API. Every call is bounded by the
// configured timeout; only transport failures are retried, and only when
// MaxAttempts is above one.
type Client struct {
	baseURL        string
	timeout        time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	userAgent      string
	http           *http.Client
	logger         zerolog.Logger
}

var _ ports.HealthcareAPI = (*Client)(nil)

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type userPayload struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginData struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type registerData struct {
	User userPayload `json:"user"`
}

type generateDailyRequest struct {
	Date string `json:"date"`
}

type generateDailyData struct {
	Count int `json:"count"`
}

type profileRequest struct {
	FullName         string `json:"fullName"`
	Specialization   string `json:"specialization"`
	MedicalLicenseID string `json:"medicalLicenseId"`
	ClinicAddress    string `json:"clinicAddress"`
	Bio              string `json:"bio"`
}

type profileData struct {
	Status string `json:"status"`
}

type verificationRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"adminNotes"`
}

type usersData struct {
	Users []userPayload `json:"users"`
}

type rawResponse struct {
	status int
	body   []byte
}

func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = 500 * time.Millisecond
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "pdseed"
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		timeout:        timeout,
		maxAttempts:    max(cfg.MaxAttempts, 1),
		initialBackoff: initialBackoff,
		userAgent:      userAgent,
		http:           httpClient,
		logger:         logger,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (domain.Session, error) {
	response, err := c.do(ctx, http.MethodPost, "/auth/login", "", credentialsRequest{Email: email, Password: password})
	if err != nil {
		return domain.Session{}, fmt.Errorf("login %s: %w", email, err)
	}

	if response.status != http.StatusOK {
		return domain.Session{}, fmt.Errorf("login %s: %w", email, &domain.APIError{
			Kind:       domain.ErrAuthFailed,
			StatusCode: response.status,
			Message:    messageFromBody(response.body, preview(response.body)),
		})
	}

	var payload envelope[loginData]
	if err := json.Unmarshal(response.body, &payload); err != nil {
		return domain.Session{}, fmt.Errorf("login %s: %w", email, malformed(err))
	}
	if !payload.Success {
		return domain.Session{}, fmt.Errorf("login %s: %w", email, &domain.APIError{
			Kind:    domain.ErrAuthFailed,
			Message: orDefault(payload.Message, "success flag missing"),
		})
	}
	if strings.TrimSpace(payload.Data.Token) == "" {
		return domain.Session{}, fmt.Errorf("login %s: %w", email, &domain.APIError{
			Kind:    domain.ErrMalformedResponse,
			Message: "token missing from login response",
		})
	}

	claims := ParseTokenClaims(payload.Data.Token)
	accountID := payload.Data.User.ID
	if accountID == "" {
		accountID = claims.UserID
	}

	return domain.Session{
		Token:     payload.Data.Token,
		AccountID: domain.AccountID(accountID),
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (c *Client) GenerateDailySlots(ctx context.Context, session domain.Session, date time.Time) (domain.SlotResult, error) {
	day := date.Format(domain.DateLayout)
	response, err := c.do(ctx, http.MethodPost, "/appointments/availability/generate-daily", session.Token, generateDailyRequest{Date: day})
	if err != nil {
		return domain.SlotResult{}, fmt.Errorf("generate slots for %s: %w", day, err)
	}

	switch response.status {
	case http.StatusOK, http.StatusCreated:
		var payload envelope[generateDailyData]
		if err := json.Unmarshal(response.body, &payload); err != nil {
			return domain.SlotResult{}, fmt.Errorf("generate slots for %s: %w", day, malformed(err))
		}
		if !payload.Success {
			return domain.SlotResult{}, fmt.Errorf("generate slots for %s: %w", day, &domain.APIError{
				Kind:       domain.ErrRejected,
				StatusCode: response.status,
				Message:    orDefault(payload.Message, "Unknown error"),
			})
		}
		return domain.SlotResult{Count: max(payload.Data.Count, 0)}, nil
	case http.StatusConflict:
		return domain.SlotResult{AlreadyExisted: true}, nil
	default:
		return domain.SlotResult{}, fmt.Errorf("generate slots for %s: %w", day, &domain.APIError{
			Kind:       domain.ErrServer,
			StatusCode: response.status,
			Message:    messageFromBody(response.body, fmt.Sprintf("Error %d", response.status)),
		})
	}
}

func (c *Client) Register(ctx context.Context, email, password string, role domain.Role) (domain.AccountID, error) {
	response, err := c.do(ctx, http.MethodPost, "/auth/register", "", credentialsRequest{Email: email, Password: password, Role: string(role)})
	if err != nil {
		return "", fmt.Errorf("register %s: %w", email, err)
	}

	if response.status == http.StatusConflict {
		return "", fmt.Errorf("register %s: %w", email, &domain.APIError{
			Kind:       domain.ErrConflict,
			StatusCode: response.status,
			Message:    messageFromBody(response.body, "email already registered"),
		})
	}
	if !isSuccessStatus(response.status) {
		return "", fmt.Errorf("register %s: %w", email, statusError(response))
	}

	var payload envelope[registerData]
	if err := json.Unmarshal(response.body, &payload); err != nil {
		return "", fmt.Errorf("register %s: %w", email, malformed(err))
	}
	if !payload.Success || payload.Data.User.ID == "" {
		return "", fmt.Errorf("register %s: %w", email, &domain.APIError{
			Kind:    domain.ErrRejected,
			Message: orDefault(payload.Message, "user id missing from response"),
		})
	}

	return domain.AccountID(payload.Data.User.ID), nil
}

func (c *Client) CreateDoctorProfile(ctx context.Context, session domain.Session, profile domain.DoctorProfile) (string, error) {
	response, err := c.do(ctx, http.MethodPost, "/doctors/profile", session.Token, profileRequest{
		FullName:         profile.FullName,
		Specialization:   profile.Specialization,
		MedicalLicenseID: profile.MedicalLicenseID,
		ClinicAddress:    profile.ClinicAddress,
		Bio:              profile.Bio,
	})
	if err != nil {
		return "", fmt.Errorf("create doctor profile: %w", err)
	}

	if response.status == http.StatusConflict {
		return "", fmt.Errorf("create doctor profile: %w", &domain.APIError{
			Kind:       domain.ErrConflict,
			StatusCode: response.status,
			Message:    messageFromBody(response.body, "profile already exists"),
		})
	}
	if !isSuccessStatus(response.status) {
		return "", fmt.Errorf("create doctor profile: %w", statusError(response))
	}

	var payload envelope[profileData]
	if err := json.Unmarshal(response.body, &payload); err != nil {
		return "", fmt.Errorf("create doctor profile: %w", malformed(err))
	}
	if !payload.Success {
		return "", fmt.Errorf("create doctor profile: %w", &domain.APIError{Kind: domain.ErrRejected, Message: payload.Message})
	}

	return payload.Data.Status, nil
}

func (c *Client) GetDoctorProfile(ctx context.Context, session domain.Session) (json.RawMessage, error) {
	response, err := c.do(ctx, http.MethodGet, "/doctors/profile", session.Token, nil)
	if err != nil {
		return nil, fmt.Errorf("get doctor profile: %w", err)
	}
	if !isSuccessStatus(response.status) {
		return nil, fmt.Errorf("get doctor profile: %w", statusError(response))
	}
	if !json.Valid(response.body) {
		return nil, fmt.Errorf("get doctor profile: %w", &domain.APIError{Kind: domain.ErrMalformedResponse, Message: "profile body is not JSON"})
	}

	return json.RawMessage(response.body), nil
}

func (c *Client) VerifyDoctor(ctx context.Context, admin domain.Session, id domain.AccountID, status, notes string) error {
	path := "/doctors/" + url.PathEscape(string(id)) + "/verification"
	response, err := c.do(ctx, http.MethodPatch, path, admin.Token, verificationRequest{Status: status, AdminNotes: notes})
	if err != nil {
		return fmt.Errorf("verify doctor %s: %w", id, err)
	}
	if response.status != http.StatusOK {
		return fmt.Errorf("verify doctor %s: %w", id, statusError(response))
	}

	var payload envelope[json.RawMessage]
	if err := json.Unmarshal(response.body, &payload); err != nil {
		return fmt.Errorf("verify doctor %s: %w", id, malformed(err))
	}
	if !payload.Success {
		return fmt.Errorf("verify doctor %s: %w", id, &domain.APIError{Kind: domain.ErrRejected, Message: payload.Message})
	}

	return nil
}

func (c *Client) ListUsers(ctx context.Context, admin domain.Session, role domain.Role, limit int) ([]domain.User, error) {
	query := url.Values{}
	if role != "" {
		query.Set("role", string(role))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	response, err := c.do(ctx, http.MethodGet, "/users?"+query.Encode(), admin.Token, nil)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if response.status != http.StatusOK {
		return nil, fmt.Errorf("list users: %w", statusError(response))
	}

	var payload envelope[usersData]
	if err := json.Unmarshal(response.body, &payload); err != nil {
		return nil, fmt.Errorf("list users: %w", malformed(err))
	}

	users := make([]domain.User, 0, len(payload.Data.Users))
	for _, user := range payload.Data.Users {
		users = append(users, domain.User{
			ID:     domain.AccountID(user.ID),
			Email:  user.Email,
			Role:   domain.Role(user.Role),
			Active: user.IsActive,
		})
	}

	return users, nil
}

// do sends one request and returns whatever status the server answered.
// The returned error is always a network failure.
func (c *Client) do(ctx context.Context, method, path, token string, payload any) (rawResponse, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return rawResponse{}, fmt.Errorf("encode request: %w", err)
		}
		body = encoded
	}

	attempt := 0
	send := func() (rawResponse, error) {
		attempt++
		response, err := c.roundTrip(ctx, method, path, token, body)
		if err != nil {
			c.logger.Debug().Err(err).Str("method", method).Str("path", path).Int("attempt", attempt).Msg("request failed")
			return rawResponse{}, err
		}
		c.logger.Trace().Str("method", method).Str("path", path).Int("status", response.status).Msg("request done")
		return response, nil
	}

	if c.maxAttempts <= 1 {
		return send()
	}

	operation := func() (rawResponse, error) {
		response, err := send()
		if err != nil && ctx.Err() != nil {
			return rawResponse{}, backoff.Permanent(err)
		}
		return response, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxAttempts-1)), ctx)

	response, err := backoff.RetryWithData(operation, retry)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			return rawResponse{}, err
		}
		return rawResponse{}, &domain.APIError{Kind: domain.ErrNetwork, Message: err.Error()}
	}

	return response, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, body []byte) (rawResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+path, reader)
	if err != nil {
		return rawResponse{}, &domain.APIError{Kind: domain.ErrNetwork, Message: fmt.Sprintf("create request: %v", err)}
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	request.Header.Set("User-Agent", c.userAgent)
	request.Header.Set(headerRequestID, uuid.NewString())

	response, err := c.http.Do(request)
	if err != nil {
		return rawResponse{}, &domain.APIError{Kind: domain.ErrNetwork, Message: err.Error()}
	}
	defer response.Body.Close()

	data, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return rawResponse{}, &domain.APIError{Kind: domain.ErrNetwork, Message: fmt.Sprintf("read response: %v", err)}
	}

	return rawResponse{status: response.StatusCode, body: data}, nil
}

func isSuccessStatus(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated
}

func statusError(response rawResponse) error {
	return &domain.APIError{
		Kind:       domain.ErrServer,
		StatusCode: response.status,
		Message:    messageFromBody(response.body, fmt.Sprintf("Error %d", response.status)),
	}
}

func malformed(err error) error {
	return &domain.APIError{Kind: domain.ErrMalformedResponse, Message: err.Error()}
}

// messageFromBody extracts the "message" field of an error body, falling
// back when the body is not JSON or has no message.
func messageFromBody(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(payload.Error); msg != "" {
		return msg
	}

	return fallback
}

func preview(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > errorPreviewLength {
		return text[:errorPreviewLength]
	}
	return text
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
