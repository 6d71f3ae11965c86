package execute

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
)

func testContext() context.Context {
	logger := zerolog.Nop()
	return buildenv.WithLogger(context.Background(), &logger)
}

func TestRunShellCapturesOutput(t *testing.T) {
	result, err := Run(testContext(), []string{"echo", "hello"}, Options{Shell: true})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunShellExitStatus(t *testing.T) {
	result, err := Run(testContext(), []string{"exit", "3"}, Options{Shell: true})
	require.Error(t, err)
	assert.Equal(t, 3, result.ExitCode)
}

func TestRunShellStderr(t *testing.T) {
	result, err := Run(testContext(), []string{"echo oops >&2; exit 1"}, Options{Shell: true})
	require.Error(t, err)
	assert.Equal(t, "oops\n", result.Stderr)
	assert.Equal(t, 1, result.ExitCode)
}

func TestRunShellEnvOverride(t *testing.T) {
	result, err := Run(testContext(), []string{"echo", "$GREETING"}, Options{
		Shell: true,
		Env:   []string{"GREETING=hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi\n", result.Stdout)
}

func TestRunEmptyCommand(t *testing.T) {
	_, err := Run(testContext(), nil, Options{})
	require.Error(t, err)
}

func TestOutputTrims(t *testing.T) {
	out, err := Output(testContext(), []string{"echo", "  padded  "}, Options{Shell: true}, true)
	require.NoError(t, err)
	assert.Equal(t, "padded", out)
}

func TestOutputNonFatalKeepsPartialOutput(t *testing.T) {
	out, err := Output(testContext(), []string{"echo partial; exit 1"}, Options{Shell: true}, false)
	require.NoError(t, err)
	assert.Equal(t, "partial", out)
}
