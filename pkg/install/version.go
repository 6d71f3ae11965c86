// Package install implements the EUPS installation conventions: version and
// prefix resolution, directory installation, metadata expansion and product
// declaration.
package install

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
	"github.com/eupsci/eupsbuild/pkg/vcs"
)

var (
	cvsNameRe = regexp.MustCompile(`^\$Name:\s+([^ $]*)`)
	headURLRe = regexp.MustCompile(`^\$HeadURL:\s+(.*)`)
)

// DetermineVersion resolves a canonical version identifier from an explicit
// override or a raw version string: a CVS/SVN keyword expansion tag, the
// name of a VCS backend, or nothing at all ("unknown"). Slashes are replaced
// with underscores so the result is always safe inside a registry path.
func DetermineVersion(ctx context.Context, env *buildenv.Env, versionString string) (string, error) {
	version := "unknown"

	switch {
	case env.Version != "":
		version = env.Version
	case versionString == "":
		version = "unknown"
	case cvsNameRe.MatchString(versionString):
		// CVS keyword expansion, extract the tag name
		version = cvsNameRe.FindStringSubmatch(versionString)[1]
		if version == "" {
			version = "cvs"
		}
	case headURLRe.MatchString(versionString):
		// SVN keyword expansion, guess the tag from the URL. The URL points
		// at the file holding the keyword, so drop the last segment first.
		url := strings.TrimSpace(headURLRe.FindStringSubmatch(versionString)[1])
		url = strings.TrimSpace(strings.TrimSuffix(url, "$"))
		name, err := vcs.SvnVersionName(path.Dir(url))
		if err != nil {
			return "unknown", err
		}
		version = name
	default:
		backend, ok := vcs.ForName(versionString)
		if !ok {
			break
		}

		name, err := backend.GuessVersionName(ctx)
		if err != nil {
			return "unknown", eris.Wrapf(err, "failed to determine a version via %s", strings.ToLower(versionString))
		}
		version = name
	}

	return strings.ReplaceAll(version, "/", "_"), nil
}

// Fingerprint returns a unique revision id for the checkout (plus a marker
// when the working copy is modified), or an empty string when the version
// string doesn't name a VCS backend.
func Fingerprint(ctx context.Context, versionString string) string {
	backend, ok := vcs.ForName(versionString)
	if !ok {
		return ""
	}

	fingerprint, modified, err := backend.GuessFingerprint(ctx)
	if err != nil {
		buildenv.Log(ctx).Warn().Msgf("Failed to determine a fingerprint: %s", eris.ToString(err, false))
		return ""
	}

	if fingerprint != "" && modified {
		fingerprint += " *"
	}
	return fingerprint
}
