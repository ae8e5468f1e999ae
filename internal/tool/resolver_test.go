package tool

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomizedcoder/go-dotnet-harness/internal/logging"
)

// =============================================================================
// Test helpers
// =============================================================================

type fakeCommand struct {
	calls  [][]string
	stdout string
	stderr string
	err    error
}

func (f *fakeCommand) run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.stdout), []byte(f.stderr), f.err
}

type fakeRecorder struct {
	results []bool
}

func (f *fakeRecorder) RecordToolCheck(_ string, installed bool) {
	f.results = append(f.results, installed)
}

func newTestResolver(spec Spec, cmd *fakeCommand, buf *bytes.Buffer) *Resolver {
	return NewResolver(Config{
		Spec:    spec,
		Logger:  logging.NewLoggerWithWriter(buf, "text", "debug"),
		Command: cmd.run,
	})
}

var dotnetSpec = Spec{Name: "dotnet", Path: "dotnet"}

// =============================================================================
// CheckInstalled
// =============================================================================

func TestCheckInstalled_Success(t *testing.T) {
	var buf bytes.Buffer
	cmd := &fakeCommand{stdout: "8.0.100\n"}
	r := newTestResolver(dotnetSpec, cmd, &buf)

	require.True(t, r.CheckInstalled(context.Background()))
	require.Len(t, cmd.calls, 1)
	assert.Equal(t, []string{"dotnet", "--version"}, cmd.calls[0])
	assert.Equal(t, "8.0.100", r.Version())
	assert.NotContains(t, buf.String(), "level=WARN")
}

func TestCheckInstalled_InvocationFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", exec.ErrNotFound},
		{"permission denied", errors.New("fork/exec dotnet: permission denied")},
		{"nonzero exit", errors.New("exit status 1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			rec := &fakeRecorder{}
			cmd := &fakeCommand{err: tt.err}
			r := NewResolver(Config{
				Spec:     dotnetSpec,
				Logger:   logging.NewLoggerWithWriter(&buf, "text", "debug"),
				Command:  cmd.run,
				Recorder: rec,
			})

			assert.False(t, r.CheckInstalled(context.Background()))
			assert.Contains(t, buf.String(), "level=WARN")
			assert.Contains(t, buf.String(), "tool_check_failed")
			assert.Equal(t, []bool{false}, rec.results)
		})
	}
}

func TestCheckInstalled_StderrIsWarningOnly(t *testing.T) {
	var buf bytes.Buffer
	cmd := &fakeCommand{stdout: "2.1.0", stderr: "telemetry notice"}
	r := newTestResolver(dotnetSpec, cmd, &buf)

	assert.True(t, r.CheckInstalled(context.Background()))
	assert.Contains(t, buf.String(), "tool_check_stderr")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestCheckInstalled_RealMissingBinary(t *testing.T) {
	var buf bytes.Buffer
	r := NewResolver(Config{
		Spec:   Spec{Name: "missing", Path: "definitely-not-a-real-tool-4f1c"},
		Logger: logging.NewLoggerWithWriter(&buf, "text", "debug"),
	})

	assert.False(t, r.CheckInstalled(context.Background()))
	assert.Contains(t, buf.String(), "tool_check_failed")
}

// =============================================================================
// Install / Ensure
// =============================================================================

func TestInstall_NotInstallable(t *testing.T) {
	var buf bytes.Buffer
	r := newTestResolver(dotnetSpec, &fakeCommand{}, &buf)

	err := r.Install(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotInstallable)
	assert.Contains(t, err.Error(), `"dotnet"`)
}

func TestInstall_InstallableWithoutInstaller(t *testing.T) {
	var buf bytes.Buffer
	spec := dotnetSpec
	spec.Installable = true
	r := newTestResolver(spec, &fakeCommand{}, &buf)

	assert.ErrorIs(t, r.Install(context.Background()), ErrNotInstallable)
}

func TestInstall_RunsInstallerAndRechecks(t *testing.T) {
	var buf bytes.Buffer
	cmd := &fakeCommand{stdout: "8.0.100"}
	installed := 0
	r := NewResolver(Config{
		Spec:    Spec{Name: "dotnet", Path: "dotnet", Installable: true},
		Logger:  logging.NewLoggerWithWriter(&buf, "text", "debug"),
		Command: cmd.run,
		Install: func(context.Context, Spec) error {
			installed++
			return nil
		},
	})

	require.NoError(t, r.Install(context.Background()))
	assert.Equal(t, 1, installed)
	assert.Len(t, cmd.calls, 1)
}

func TestEnsure(t *testing.T) {
	tests := []struct {
		name    string
		cmdErr  error
		wantErr error
	}{
		{"installed", nil, nil},
		{"missing", exec.ErrNotFound, ErrNotInstallable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := newTestResolver(dotnetSpec, &fakeCommand{stdout: "8.0", err: tt.cmdErr}, &buf)

			err := r.Ensure(context.Background())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"8.0.100\n", "8.0.100"},
		{"\n\n  6.0.1  \nextra", "6.0.1"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, firstLine([]byte(tt.in)))
		})
	}
}
