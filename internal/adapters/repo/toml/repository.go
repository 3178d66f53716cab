package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/pdhealth/pdseed/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	RosterPathKey = "roster.path"

	rosterFileMode   = 0o600
	rosterDirMode    = 0o700
	rosterConfigDir  = ".pdseed"
	rosterConfigFile = "roster.toml"
	tempFilePattern  = ".roster-*.toml.tmp"
)

// Repository stores the seeding roster as a TOML file. Passwords are kept in
// plain text, so the file is written with owner-only permissions.
type Repository struct {
	rosterPath string
	mu         *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.RosterRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(RosterPathKey, filepath.Join(homeDir, rosterConfigDir, rosterConfigFile))

	rosterPath := cfg.GetString(RosterPathKey)
	if strings.TrimSpace(rosterPath) == "" {
		return nil, errors.New("roster path is empty")
	}
	rosterPath, err = normalizeRosterPath(rosterPath, homeDir)
	if err != nil {
		return nil, err
	}

	return &Repository{rosterPath: rosterPath, mu: lockForPath(rosterPath)}, nil
}

func (r *Repository) Path() string {
	return r.rosterPath
}

func (r *Repository) Exists() bool {
	_, err := os.Stat(r.rosterPath)
	return err == nil
}

// Save inserts the account or replaces the entry with the same email.
func (r *Repository) Save(ctx context.Context, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := account.Validate(); err != nil {
		return fmt.Errorf("save roster account: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toSchema(account)
	updated := false
	for i := range file.Accounts {
		if strings.EqualFold(file.Accounts[i].Email, encoded.Email) {
			file.Accounts[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Accounts = append(file.Accounts, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) Replace(ctx context.Context, accounts []domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file := fileSchema{Accounts: make([]accountSchema, 0, len(accounts))}
	for _, account := range domain.NormalizeAccounts(accounts) {
		if err := account.Validate(); err != nil {
			return fmt.Errorf("replace roster: %w", err)
		}
		file.Accounts = append(file.Accounts, toSchema(account))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeSchema(file)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Account{}, err
	}

	email = strings.TrimSpace(email)
	for _, entry := range file.Accounts {
		if strings.EqualFold(strings.TrimSpace(entry.Email), email) {
			return fromSchema(entry), nil
		}
	}

	return domain.Account{}, domain.ErrAccountNotFound
}

// List returns the roster in file order with blank and duplicate emails
// removed.
func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, fromSchema(entry))
	}

	return domain.NormalizeAccounts(accounts), nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.rosterPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read roster file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode roster file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func normalizeRosterPath(path, homeDir string) (string, error) {
	if path == "~" {
		path = homeDir
	} else if rest, ok := strings.CutPrefix(path, "~/"); ok {
		path = filepath.Join(homeDir, rest)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve roster path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.rosterPath), rosterDirMode); err != nil {
		return fmt.Errorf("create roster directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode roster file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.rosterPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp roster file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp roster file: %w", err)
	}
	if err := tempFile.Chmod(rosterFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp roster file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp roster file: %w", err)
	}
	if err := os.Rename(tempName, r.rosterPath); err != nil {
		return fmt.Errorf("replace roster file: %w", err)
	}

	cleanup = false

	return nil
}

func toSchema(account domain.Account) accountSchema {
	encoded := accountSchema{
		Email:    strings.TrimSpace(account.Email),
		Password: account.Password,
		Name:     account.Name,
	}
	if p := account.Profile; p != nil {
		encoded.Profile = &profileSchema{
			FullName:         p.FullName,
			Specialization:   p.Specialization,
			MedicalLicenseID: p.MedicalLicenseID,
			ClinicAddress:    p.ClinicAddress,
			Bio:              p.Bio,
		}
	}

	return encoded
}

func fromSchema(entry accountSchema) domain.Account {
	account := domain.Account{
		Email:    strings.TrimSpace(entry.Email),
		Password: entry.Password,
		Name:     entry.Name,
	}
	if p := entry.Profile; p != nil {
		account.Profile = &domain.DoctorProfile{
			FullName:         p.FullName,
			Specialization:   p.Specialization,
			MedicalLicenseID: p.MedicalLicenseID,
			ClinicAddress:    p.ClinicAddress,
			Bio:              p.Bio,
		}
	}

	return account
}
