package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv(WorkersEnv, "")
	t.Setenv(PolicyParallelismEnv, "")
	t.Setenv(OUIFileEnv, "")

	options := &Options{}
	require.NoError(t, options.loadEnv())
	require.Equal(t, defaultWorkers, options.Workers)
	require.Equal(t, defaultPolicyParallelism, options.PolicyParallelism)
	require.Empty(t, options.OUIFile)
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv(WorkersEnv, "3")
	t.Setenv(PolicyParallelismEnv, "")
	t.Setenv(OUIFileEnv, "")

	envFile := filepath.Join(t.TempDir(), ".env")
	content := WorkersEnv + "=7\n" + PolicyParallelismEnv + "=4\n" + OUIFileEnv + "=/tmp/oui.jsonl\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	// values from the file override the process environment
	options := &Options{EnvFile: envFile}
	require.NoError(t, options.loadEnv())
	require.Equal(t, 7, options.Workers)
	require.Equal(t, 4, options.PolicyParallelism)
	require.Equal(t, "/tmp/oui.jsonl", options.OUIFile)

	// explicit flags win over the environment
	options = &Options{EnvFile: envFile, Workers: 1, OUIFile: "custom.jsonl"}
	require.NoError(t, options.loadEnv())
	require.Equal(t, 1, options.Workers)
	require.Equal(t, "custom.jsonl", options.OUIFile)
}

func TestLoadEnvMissingFile(t *testing.T) {
	options := &Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")}
	require.ErrorContains(t, options.loadEnv(), "Unable to load environment variables from file")
}
