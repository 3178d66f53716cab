package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported roster schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	Email    string         `toml:"email"`
	Password string         `toml:"password"`
	Name     string         `toml:"name,omitempty"`
	Profile  *profileSchema `toml:"profile,omitempty"`
}

type profileSchema struct {
	FullName         string `toml:"full_name"`
	Specialization   string `toml:"specialization,omitempty"`
	MedicalLicenseID string `toml:"medical_license_id"`
	ClinicAddress    string `toml:"clinic_address,omitempty"`
	Bio              string `toml:"bio,omitempty"`
}
