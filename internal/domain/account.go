package domain

import (
	"fmt"
	"strings"
)

type AccountID string

type Role string

const (
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
)

// Account is a login identity on the remote API. Profile is only needed when
// the account is provisioned as a doctor.
type Account struct {
	Email    string
	Password string
	Name     string
	Profile  *DoctorProfile
}

type DoctorProfile struct {
	FullName         string
	Specialization   string
	MedicalLicenseID string
	ClinicAddress    string
	Bio              string
}

// User is an account as reported by the remote users listing.
type User struct {
	ID     AccountID
	Email  string
	Role   Role
	Active bool
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(a.Email, "@") {
		return fmt.Errorf("email %q is not an address", a.Email)
	}
	if a.Password == "" {
		return fmt.Errorf("password is required for %s", a.Email)
	}

	return nil
}

func (a Account) DisplayName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	if a.Profile != nil && strings.TrimSpace(a.Profile.FullName) != "" {
		return strings.TrimSpace(a.Profile.FullName)
	}

	return strings.TrimSpace(a.Email)
}

// NormalizeAccounts trims emails and drops blank or duplicate entries,
// keeping the first occurrence of each email.
func NormalizeAccounts(accounts []Account) []Account {
	normalized := make([]Account, 0, len(accounts))
	seen := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		account.Email = strings.TrimSpace(account.Email)
		if account.Email == "" {
			continue
		}
		key := strings.ToLower(account.Email)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, account)
	}

	return normalized
}
