package e2e

import (
	"bytes"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/pdhealth/pdseed/internal/adapters/mockapi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)

	server := mockapi.New(mockapi.Options{Logger: zerolog.Nop()})
	server.SeedDoctor("bs.smoke@pdhealth.com", "Doctor123", true)
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	env := []string{
		"HOME=" + home,
		"PDSEED_API_BASE_URL=" + httpServer.URL + "/api",
		"PDSEED_SCHEDULE_START_DATE=2025-12-24",
		"PDSEED_SCHEDULE_END_DATE=2025-12-26",
		"PDSEED_SCHEDULE_PAUSE_BETWEEN_DATES=0s",
	}

	_, stderr, err := runPdseed(t, binaryPath, env, "account", "add", "bs.smoke@pdhealth.com", "Doctor123", "BS. Smoke")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err := runPdseed(t, binaryPath, env, "schedule", "generate", "--yes", "--mode", "concurrent")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "BS. Smoke (bs.smoke@pdhealth.com)")
	assert.Contains(t, stdout, "total slots: 30")
	assert.Equal(t, 30, server.GeneratedSlots("bs.smoke@pdhealth.com"))

	_, _, err = runPdseed(t, binaryPath, env, "schedule", "single", "bs.smoke@pdhealth.com")
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "pdseed-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/pdseed")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build pdseed binary: %s", string(output))
	return binaryPath
}

func runPdseed(t *testing.T, binaryPath string, env []string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
