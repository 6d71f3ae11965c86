// Package execute wraps external command invocation behind a single typed
// entry point that captures stdout/stderr and normalizes failures.
package execute

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
)

// Result carries the outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Options control how a command is run.
type Options struct {
	// Shell interprets the command as a shell script instead of an argv
	// list. The script runs in a builtin interpreter, not /bin/sh, so it
	// behaves the same on every platform.
	Shell bool
	// Dir is the working directory (defaults to the current one).
	Dir string
	// Env holds extra NAME=VALUE pairs appended to the inherited
	// environment.
	Env []string
	// PrependPath entries are placed in front of $PATH for this command.
	PrependPath []string
}

func buildEnv(opts Options) []string {
	envVars := os.Environ()

	if len(opts.PrependPath) > 0 {
		path := strings.Join(opts.PrependPath, string(os.PathListSeparator)) +
			string(os.PathListSeparator) + os.Getenv("PATH")
		envVars = append(envVars, "PATH="+path)
	}

	return append(envVars, opts.Env...)
}

// Run executes the given command and returns its captured output. A nonzero
// exit status is returned as an error carrying the captured stderr text; the
// Result is valid in that case as well.
func Run(ctx context.Context, command []string, opts Options) (Result, error) {
	if len(command) == 0 {
		return Result{}, eris.New("empty command")
	}

	if opts.Shell {
		return runShell(ctx, strings.Join(command, " "), opts)
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = buildEnv(opts)

	stdout := strings.Builder{}
	stderr := strings.Builder{}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		return result, eris.Wrapf(err, "%s failed: %s", command[0], strings.TrimSpace(result.Stderr))
	}
	return result, nil
}

func runShell(ctx context.Context, script string, opts Options) (Result, error) {
	parser := syntax.NewParser()
	prog, err := parser.Parse(strings.NewReader(script), "command")
	if err != nil {
		return Result{}, eris.Wrapf(err, "failed to parse command %s", script)
	}

	stdout := strings.Builder{}
	stderr := strings.Builder{}

	runner, err := interp.New(
		interp.Dir(opts.Dir),
		interp.Env(expand.ListEnviron(buildEnv(opts)...)),
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return Result{}, eris.Wrap(err, "failed to initialize runner")
	}

	err = runner.Run(ctx, prog)
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if status, ok := interp.IsExitStatus(err); ok {
		result.ExitCode = int(status)
	}

	if err != nil {
		return result, eris.Wrapf(err, "command failed: %s", strings.TrimSpace(result.Stderr))
	}
	return result, nil
}

// Output runs the command and returns its trimmed stdout. Errors are either
// propagated (fatal) or logged as a warning, in which case the partial
// output is still returned.
func Output(ctx context.Context, command []string, opts Options, fatal bool) (string, error) {
	result, err := Run(ctx, command, opts)
	if err != nil && !fatal {
		buildenv.Log(ctx).Warn().Msgf("Error running %s: %s", command[0], result.Stderr)
		err = nil
	}

	return strings.TrimSpace(result.Stdout), err
}
