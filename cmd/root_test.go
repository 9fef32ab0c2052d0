package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/regform/internal/config"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/registration"
)

// execute runs the root command against a fresh default config file.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(cfgPath))

	return executeWithConfig(t, cfgPath, args...)
}

func executeWithConfig(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default so values from an earlier
// Execute do not leak into the next one.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestCheck_ValidYAML(t *testing.T) {
	out, err := execute(t, "check",
		"--username", "alice",
		"--password", "AAAaaa999999",
		"--password-again", "AAAaaa999999",
		"-o", "yaml")
	require.NoError(t, err)

	require.Contains(t, out, "is_valid: true")
	require.Contains(t, out, "password_level_message: veryStrong")
	require.Contains(t, out, "password_level_color: green")
}

func TestCheck_InvalidJSON(t *testing.T) {
	out, err := execute(t, "check",
		"--username", "ab",
		"--password", "Abc123",
		"--password-again", "Abc123",
		"-o", "json")
	require.ErrorIs(t, err, errFormInvalid)

	line, _, _ := strings.Cut(out, "\n")
	var state registration.FormState
	require.NoError(t, json.Unmarshal([]byte(line), &state))

	require.Equal(t, registration.Evaluate(registration.Fields{
		Username:      "ab",
		Password:      "Abc123",
		PasswordAgain: "Abc123",
	}), state)
	require.False(t, state.IsValid)
	require.Equal(t, registration.UsernameMessage, state.UsernameMessage)
}

func TestCheck_FromFile(t *testing.T) {
	input := filepath.Join(t.TempDir(), "form.yaml")
	require.NoError(t, os.WriteFile(input, []byte("username: alice\npassword: abc\npassword_again: xyz\n"), 0o600))

	out, err := execute(t, "check", "--from", input, "-o", "yaml")
	require.ErrorIs(t, err, errFormInvalid)
	require.Contains(t, out, "password_message: Password don't match")
}

func TestCheck_BadOutputFormat(t *testing.T) {
	_, err := execute(t, "check", "--username", "alice", "-o", "toml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported output format")
}

func TestCheck_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("debounce:\n  username: -1s\n"), 0o600))

	_, err := executeWithConfig(t, cfgPath, "check",
		"--username", "alice", "--password", "x", "--password-again", "x", "-o", "yaml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "debounce.username")
}

func TestCheck_MalformedConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("debounce: [\n"), 0o600))

	_, err := executeWithConfig(t, cfgPath, "check", "--username", "alice", "-o", "yaml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading config "+cfgPath)

	// A later run with a good file is not affected
	out, err := execute(t, "check", "--username", "alice", "-o", "yaml")
	require.ErrorIs(t, err, errFormInvalid)
	require.Contains(t, out, "is_valid: false")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	require.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfigTemplate(), string(data))

	_, err = execute(t, "config", "init", path)
	require.Error(t, err, "refuses to overwrite without --force")
}

func TestConfigDebounce(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(cfgPath))

	_, err := executeWithConfig(t, cfgPath, "config", "debounce", "--username", "300ms", "--strength", "0s")
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "username: 300ms")
	require.Contains(t, string(data), "strength: 0s")
	require.Contains(t, string(data), "# UI settings", "other sections keep their comments")
}

// syncBuffer is a bytes.Buffer safe for concurrent Write and String.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.yaml")
	require.NoError(t, os.WriteFile(path, []byte("username: ab\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, &out, outputJSON, nil, nil, registration.NoDebounce())
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), registration.UsernameMessage)
	}, 3*time.Second, 20*time.Millisecond)

	// Give the watcher time to register before editing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path,
		[]byte("username: alice\npassword: AAAaaa999999\npassword_again: AAAaaa999999\n"), 0o600))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"is_valid":true`)
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watchFile did not return after cancel")
	}
}

func TestWatchFile_StreamsLogEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.yaml")
	require.NoError(t, os.WriteFile(path, []byte("username: alice\n"), 0o600))

	cleanup := log.InitWriter(io.Discard)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logs := log.Subscribe(ctx)

	var out, errOut syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, &out, outputJSON, logs, &errOut, registration.NoDebounce())
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(errOut.String(), "[INFO] [watcher] watching input file path="+path)
	}, 3*time.Second, 20*time.Millisecond)
	require.NotContains(t, out.String(), "watching input file", "log entries stay off the document stream")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watchFile did not return after cancel")
	}
}
