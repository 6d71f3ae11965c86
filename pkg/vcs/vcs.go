// Package vcs answers "what version is this checkout?" for the supported
// version control backends.
package vcs

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/eupsci/eupsbuild/pkg/execute"
)

// Backend queries a working copy for version information.
type Backend interface {
	// GuessVersionName returns the backend's best guess at a human readable
	// version: the nearest tag if there is one, otherwise something derived
	// from the current branch and revision.
	GuessVersionName(ctx context.Context) (string, error)
	// GuessFingerprint returns a unique revision identifier and whether the
	// working copy contains uncommitted changes.
	GuessFingerprint(ctx context.Context) (string, bool, error)
}

// ForName maps a backend keyword from a version string ("git", "hg",
// "mercurial") to the matching backend.
func ForName(name string) (Backend, bool) {
	switch strings.ToLower(name) {
	case "git":
		return Git{}, true
	case "hg", "mercurial":
		return Hg{}, true
	default:
		return nil, false
	}
}

// Git queries the git working copy in Dir ("." if empty).
type Git struct {
	Dir string
}

func (g Git) GuessVersionName(ctx context.Context) (string, error) {
	name, err := execute.Output(ctx, []string{"git", "describe", "--tags", "--always"}, execute.Options{Dir: g.Dir}, true)
	if err != nil {
		return "", eris.Wrap(err, "failed to query git for a version name")
	}
	if name == "" {
		return "", eris.New("git returned an empty version name")
	}
	return name, nil
}

func (g Git) GuessFingerprint(ctx context.Context) (string, bool, error) {
	opts := execute.Options{Dir: g.Dir}

	fingerprint, err := execute.Output(ctx, []string{"git", "rev-parse", "HEAD"}, opts, true)
	if err != nil {
		return "", false, eris.Wrap(err, "failed to query git for a fingerprint")
	}

	status, err := execute.Output(ctx, []string{"git", "status", "--porcelain"}, opts, true)
	if err != nil {
		return "", false, eris.Wrap(err, "failed to check the git working copy state")
	}

	return fingerprint, status != "", nil
}

// Hg queries the mercurial working copy in Dir ("." if empty).
type Hg struct {
	Dir string
}

func (h Hg) GuessVersionName(ctx context.Context) (string, error) {
	opts := execute.Options{Dir: h.Dir}

	tagOutput, err := execute.Output(ctx, []string{"hg", "identify", "--tags"}, opts, true)
	if err != nil {
		return "", eris.Wrap(err, "failed to query hg for tags")
	}

	tags := strings.Fields(tagOutput)
	if len(tags) > 0 && tags[0] != "tip" {
		return tags[0], nil
	}

	branch, err := execute.Output(ctx, []string{"hg", "identify", "--branch"}, opts, true)
	if err != nil {
		return "", eris.Wrap(err, "failed to query hg for the branch")
	}

	id, err := execute.Output(ctx, []string{"hg", "identify", "--id"}, opts, true)
	if err != nil {
		return "", eris.Wrap(err, "failed to query hg for the revision id")
	}

	return branch + "+" + strings.TrimSuffix(id, "+"), nil
}

func (h Hg) GuessFingerprint(ctx context.Context) (string, bool, error) {
	id, err := execute.Output(ctx, []string{"hg", "identify", "--id"}, execute.Options{Dir: h.Dir}, true)
	if err != nil {
		return "", false, eris.Wrap(err, "failed to query hg for a fingerprint")
	}

	modified := strings.HasSuffix(id, "+")
	return strings.TrimSuffix(id, "+"), modified, nil
}
