package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pdhealth/pdseed/internal/domain"
)

// Authenticator exchanges credentials for a session.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.Session, error)
}

// SlotGenerator asks the server to create one day's appointment slots.
// A 409 answer is not an error: it returns a result flagged AlreadyExisted.
type SlotGenerator interface {
	GenerateDailySlots(ctx context.Context, session domain.Session, date time.Time) (domain.SlotResult, error)
}

type DoctorDirectory interface {
	Register(ctx context.Context, email, password string, role domain.Role) (domain.AccountID, error)
	CreateDoctorProfile(ctx context.Context, session domain.Session, profile domain.DoctorProfile) (string, error)
	GetDoctorProfile(ctx context.Context, session domain.Session) (json.RawMessage, error)
	VerifyDoctor(ctx context.Context, admin domain.Session, id domain.AccountID, status, notes string) error
	ListUsers(ctx context.Context, admin domain.Session, role domain.Role, limit int) ([]domain.User, error)
}

type HealthcareAPI interface {
	Authenticator
	SlotGenerator
	DoctorDirectory
}
