package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudpath/webdav-go/internal/config"
)

// resetFlags restores the global flag state tests mutate.
func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagAccount = ""
		flagURL = ""
		flagUser = ""
		flagPasswordEnv = ""
		flagInsecure = false
		loadedCfg = nil
	})
}

func TestResolveTarget_FromFlags(t *testing.T) {
	resetFlags(t)
	t.Setenv("TEST_PW", "secret")

	flagURL = "https://dav.example.com"
	flagUser = "alice"
	flagPasswordEnv = "TEST_PW"
	flagInsecure = true

	target, err := resolveTarget()
	require.NoError(t, err)
	assert.Equal(t, "https://dav.example.com", target.account.ServerURL)
	assert.Equal(t, "alice", target.account.User)
	assert.Equal(t, "secret", target.password)
	assert.True(t, target.insecure)
	assert.Equal(t, "alice@dav.example.com", target.label())
}

func TestResolveTarget_FlagPasswordEnvUnset(t *testing.T) {
	resetFlags(t)

	flagURL = "https://dav.example.com"
	flagUser = "alice"
	flagPasswordEnv = "TEST_PW_DEFINITELY_UNSET"

	_, err := resolveTarget()
	assert.Error(t, err)
}

func TestResolveTarget_FromConfig(t *testing.T) {
	resetFlags(t)
	t.Setenv("HOME_PW", "hunter2")

	loadedCfg = &config.Config{Accounts: map[string]config.Account{
		"home": {
			URL:         "https://cloud.example.com/remote.php/webdav",
			Username:    "alice",
			PasswordEnv: "HOME_PW",
			Insecure:    true,
		},
	}}

	target, err := resolveTarget()
	require.NoError(t, err)
	assert.Equal(t, "alice", target.account.User)
	assert.Equal(t, "hunter2", target.password)
	assert.True(t, target.insecure)
	assert.Equal(t, "alice@cloud.example.com", target.label())
}

func TestResolveTarget_UnknownAccount(t *testing.T) {
	resetFlags(t)

	loadedCfg = &config.Config{Accounts: map[string]config.Account{}}
	flagAccount = "nope"

	_, err := resolveTarget()
	assert.Error(t, err)
}

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"ls", "get", "put", "mkdir", "rm", "history"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}
