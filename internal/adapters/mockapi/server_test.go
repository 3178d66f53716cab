package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(Options{Secret: "test-secret", Logger: zerolog.Nop()})
}

func call(t *testing.T, s *Server, method, path, token, body string) (int, response) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func login(t *testing.T, s *Server, email, password string) string {
	t.Helper()

	code, out := call(t, s, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, code, out.Message)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &data))
	return data.Token
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	body := `{"email":"bs.a@pdhealth.com","password":"Doctor123","role":"doctor"}`

	code, out := call(t, s, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, out.Success)
	assert.Contains(t, string(out.Data), `"role":"doctor"`)

	code, out = call(t, s, http.MethodPost, "/api/auth/register", "", `{"email":"BS.A@pdhealth.com","password":"Doctor123","role":"doctor"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, out.Success)
	assert.Equal(t, "Email already registered", out.Message)
}

func TestRegisterValidatesInput(t *testing.T) {
	s := newTestServer(t)

	code, _ := call(t, s, http.MethodPost, "/api/auth/register", "", `{"email":"nope","password":"Doctor123"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, s, http.MethodPost, "/api/auth/register", "", `{"email":"a@b.c","password":"123"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, s, http.MethodPost, "/api/auth/register", "", `{"email":"a@b.c","password":"Doctor123","role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.SeedDoctor("bs.a@pdhealth.com", "Doctor123", true)

	code, out := call(t, s, http.MethodPost, "/api/auth/login", "", `{"email":"bs.a@pdhealth.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid email or password", out.Message)

	s.SetActive("bs.a@pdhealth.com", false)
	code, _ = call(t, s, http.MethodPost, "/api/auth/login", "", `{"email":"bs.a@pdhealth.com","password":"Doctor123"}`)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestGenerateDailyCreatesSlotsOncePerDate(t *testing.T) {
	s := newTestServer(t)
	s.SeedDoctor("bs.a@pdhealth.com", "Doctor123", true)
	token := login(t, s, "bs.a@pdhealth.com", "Doctor123")

	code, out := call(t, s, http.MethodPost, "/api/appointments/availability/generate-daily", token, `{"date":"2025-11-22"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, out.Success)

	var data struct {
		Count int        `json:"count"`
		Slots []slotView `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &data))
	assert.Equal(t, 10, data.Count)
	require.Len(t, data.Slots, 10)
	assert.Equal(t, time.Date(2025, 11, 22, 8, 0, 0, 0, time.UTC), data.Slots[0].StartTime)
	assert.Equal(t, time.Date(2025, 11, 22, 21, 0, 0, 0, time.UTC), data.Slots[9].EndTime)

	code, out = call(t, s, http.MethodPost, "/api/appointments/availability/generate-daily", token, `{"date":"2025-11-22"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, out.Success)
	assert.Equal(t, 10, s.GeneratedSlots("bs.a@pdhealth.com"))
}

func TestGenerateDailyRequiresApprovedDoctor(t *testing.T) {
	s := newTestServer(t)
	s.SeedDoctor("bs.b@pdhealth.com", "Doctor123", false)
	token := login(t, s, "bs.b@pdhealth.com", "Doctor123")

	code, out := call(t, s, http.MethodPost, "/api/appointments/availability/generate-daily", token, `{"date":"2025-11-22"}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Doctor profile is not approved", out.Message)

	code, _ = call(t, s, http.MethodPost, "/api/appointments/availability/generate-daily", "", `{"date":"2025-11-22"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, s, http.MethodPost, "/api/appointments/availability/generate-daily", "forged.token.value", `{"date":"2025-11-22"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestGenerateDailyRejectsBadDate(t *testing.T) {
	s := newTestServer(t)
	s.SeedDoctor("bs.a@pdhealth.com", "Doctor123", true)
	token := login(t, s, "bs.a@pdhealth.com", "Doctor123")

	code, _ := call(t, s, http.MethodPost, "/api/appointments/availability/generate-daily", token, `{"date":"22/11/2025"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestProfileAndVerificationFlow(t *testing.T) {
	s := newTestServer(t)

	code, out := call(t, s, http.MethodPost, "/api/auth/register", "", `{"email":"bs.c@pdhealth.com","password":"Doctor123","role":"doctor"}`)
	require.Equal(t, http.StatusCreated, code)
	var registered struct {
		User userView `json:"user"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &registered))

	doctorToken := login(t, s, "bs.c@pdhealth.com", "Doctor123")
	code, _ = call(t, s, http.MethodGet, "/api/doctors/profile", doctorToken, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, out = call(t, s, http.MethodPost, "/api/doctors/profile", doctorToken, `{"fullName":"BS. C","medicalLicenseId":"BS001236","specialization":"Nhi khoa"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Contains(t, string(out.Data), `"status":"pending"`)

	code, _ = call(t, s, http.MethodPost, "/api/doctors/profile", doctorToken, `{"fullName":"BS. C","medicalLicenseId":"BS001236"}`)
	assert.Equal(t, http.StatusConflict, code)

	path := "/api/doctors/" + registered.User.ID + "/verification"
	code, _ = call(t, s, http.MethodPatch, path, doctorToken, `{"status":"approved"}`)
	assert.Equal(t, http.StatusForbidden, code)

	adminToken := login(t, s, DefaultAdminEmail, DefaultAdminPassword)
	code, _ = call(t, s, http.MethodPatch, path, adminToken, `{"status":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = call(t, s, http.MethodPatch, path, adminToken, `{"status":"approved","adminNotes":"ok"}`)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, out.Success)
	assert.Equal(t, "approved", s.VerificationStatus("bs.c@pdhealth.com"))

	code, _ = call(t, s, http.MethodPatch, "/api/doctors/unknown/verification", adminToken, `{"status":"approved"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListUsersFiltersByRoleAndLimit(t *testing.T) {
	s := newTestServer(t)
	s.SeedDoctor("bs.a@pdhealth.com", "Doctor123", true)
	s.SeedDoctor("bs.b@pdhealth.com", "Doctor123", true)
	s.SeedDoctor("bs.c@pdhealth.com", "Doctor123", true)
	adminToken := login(t, s, DefaultAdminEmail, DefaultAdminPassword)

	code, out := call(t, s, http.MethodGet, "/api/users?role=doctor&limit=2", adminToken, "")
	require.Equal(t, http.StatusOK, code)

	var data struct {
		Users []userView `json:"users"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &data))
	require.Len(t, data.Users, 2)
	assert.Equal(t, "bs.a@pdhealth.com", data.Users[0].Email)
	assert.Equal(t, "doctor", data.Users[1].Role)

	code, _ = call(t, s, http.MethodGet, "/api/users?limit=-1", adminToken, "")
	assert.Equal(t, http.StatusBadRequest, code)

	doctorToken := login(t, s, "bs.a@pdhealth.com", "Doctor123")
	code, _ = call(t, s, http.MethodGet, "/api/users", doctorToken, "")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	now := time.Date(2025, 11, 22, 9, 0, 0, 0, time.UTC)
	s := New(Options{Secret: "test-secret", TokenTTL: time.Hour, Now: func() time.Time { return now }})
	s.SeedDoctor("bs.a@pdhealth.com", "Doctor123", true)
	token := login(t, s, "bs.a@pdhealth.com", "Doctor123")

	now = now.Add(2 * time.Hour)
	code, out := call(t, s, http.MethodPost, "/api/appointments/availability/generate-daily", token, `{"date":"2025-11-22"}`)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid or expired token", out.Message)
}
