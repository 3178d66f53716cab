package application

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tomlrepo "github.com/pdhealth/pdseed/internal/adapters/repo/toml"
	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRosterService(t *testing.T) (*RosterService, string) {
	t.Helper()

	rosterPath := filepath.Join(t.TempDir(), "roster.toml")
	cfg := viper.New()
	cfg.Set(tomlrepo.RosterPathKey, rosterPath)
	repo, err := tomlrepo.NewRepository(cfg)
	require.NoError(t, err)

	return NewRosterService(repo), rosterPath
}

func TestRosterFallsBackToBuiltInDoctors(t *testing.T) {
	t.Parallel()

	svc, _ := newRosterService(t)
	accounts, fromFile, err := svc.Accounts(context.Background())
	require.NoError(t, err)

	assert.False(t, fromFile)
	require.Len(t, accounts, 10)
	assert.Equal(t, "bs.nguyenvana@pdhealth.com", accounts[0].Email)
	assert.Equal(t, "BS. Nguyễn Văn A", accounts[0].Name)
	assert.Equal(t, "Doctor123", accounts[9].Password)
	require.NotNil(t, accounts[9].Profile)
	assert.Equal(t, "BS001243", accounts[9].Profile.MedicalLicenseID)
}

func TestRosterInitWritesFileOnce(t *testing.T) {
	t.Parallel()

	svc, rosterPath := newRosterService(t)
	path, err := svc.Init(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, rosterPath, path)

	info, err := os.Stat(rosterPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	accounts, fromFile, err := svc.Accounts(context.Background())
	require.NoError(t, err)
	assert.True(t, fromFile)
	assert.Equal(t, DefaultDoctorRoster(), accounts)

	_, err = svc.Init(context.Background(), false)
	assert.ErrorIs(t, err, ErrRosterExists)

	_, err = svc.Init(context.Background(), true)
	assert.NoError(t, err)
}

func TestRosterAddAppendsAccount(t *testing.T) {
	t.Parallel()

	svc, _ := newRosterService(t)
	added, err := svc.Add(context.Background(), domain.Account{Email: "bs.new@pdhealth.com", Password: "Doctor123", Name: "BS. New"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.Add(context.Background(), domain.Account{Email: "BS.NEW@pdhealth.com", Password: "Doctor123", Name: "BS. New"})
	require.NoError(t, err)
	assert.False(t, added)

	accounts, fromFile, err := svc.Accounts(context.Background())
	require.NoError(t, err)
	assert.True(t, fromFile)
	require.Len(t, accounts, 1)
	assert.Equal(t, "BS. New", accounts[0].Name)

	_, err = svc.Add(context.Background(), domain.Account{Email: "not-an-address", Password: "x"})
	assert.Error(t, err)
}

func TestRosterRejectsInvalidFile(t *testing.T) {
	t.Parallel()

	svc, rosterPath := newRosterService(t)
	require.NoError(t, os.WriteFile(rosterPath, []byte(`
version = 1

[[accounts]]
email = "bs.a@pdhealth.com"
`), 0o600))

	_, _, err := svc.Accounts(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "password is required")
}
