// Package testutil holds the integration harness shared by package tests:
// temporary definition trees, captured logs and recording handlers.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/cmdgrid/internal/app"
	"github.com/vk/cmdgrid/internal/hcl"
	"github.com/vk/cmdgrid/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness describes one integration run.
type Harness struct {
	// Files maps relative paths to HCL content.
	Files    map[string]string
	Commands []string
	Values   []string

	EnvPrefix     string
	MaxCycleDepth int
	// Modules replaces the core modules when non-empty.
	Modules []registry.Module
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// Run writes the definition files, builds the app and runs it.
func Run(t *testing.T, h Harness) *HarnessResult {
	t.Helper()
	return run(t, h, func(a *app.App) error { return a.Run(context.Background()) })
}

// Plan is like Run but only resolves the schedule, which is written to the
// returned result's LogOutput after the logs.
func Plan(t *testing.T, h Harness) *HarnessResult {
	t.Helper()
	var out bytes.Buffer
	res := run(t, h, func(a *app.App) error { return a.Plan(context.Background(), &out) })
	res.LogOutput += out.String()
	return res
}

func run(t *testing.T, h Harness, act func(a *app.App) error) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range h.Files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg, err := app.NewConfig(app.Config{
		Definitions:   []string{dir},
		Commands:      h.Commands,
		Values:        h.Values,
		EnvPrefix:     h.EnvPrefix,
		MaxCycleDepth: h.MaxCycleDepth,
		LogLevel:      "debug",
		LogFormat:     "text",
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, cfg, hcl.NewLoader(), h.Modules...)
	}()
	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := act(testApp)
	if os.Getenv("CMDGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}
	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}
