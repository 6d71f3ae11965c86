package install

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
)

var placeholderRe = regexp.MustCompile(`%(\w)`)

// MakeProductPath expands a path template containing %-placeholders:
// %P registry root, %f flavor, %p product name, %v version, %c current
// working directory. Unrecognized placeholders are left untouched.
func MakeProductPath(env *buildenv.Env, pathFormat string) string {
	cwd := buildenv.Cwd()

	eupsPath := cwd
	if env.EupsPath != "" {
		eupsPath = env.EupsPath
	}

	values := map[string]string{
		"P": eupsPath,
		"f": env.Flavor,
		"p": env.Product,
		"v": env.Version,
		"c": cwd,
	}

	return placeholderRe.ReplaceAllStringFunc(pathFormat, func(match string) string {
		value, ok := values[match[1:]]
		if !ok {
			return match
		}
		return value
	})
}

// SetPrefix resolves the version from versionString, stores it in env and
// computes the installation prefix for the product. eupsProductPath, if not
// empty, is a path template that overrides the registry derived location.
func SetPrefix(ctx context.Context, env *buildenv.Env, versionString, eupsProductPath string) (string, error) {
	version, err := DetermineVersion(ctx, env, versionString)
	if err != nil {
		env.Version = "unknown"
		if (env.Installing || env.Declaring) && !env.Force {
			return "", env.Report.Fail(ctx,
				"%s\nFound problem with version number; update or specify --force to proceed", err)
		}
		env.Report.Warn(ctx, "Failed to determine a version, falling back to \"unknown\": %s", err)
	} else {
		env.Version = version
	}

	if env.NoEups {
		if env.Prefix != "" {
			return env.Prefix, nil
		}
		return "/usr/local", nil
	}

	var eupsPrefix string
	switch {
	case eupsProductPath != "":
		eupsPrefix = MakeProductPath(env, eupsProductPath)
	case env.EupsPath != "":
		eupsPrefix = env.EupsPath
	default:
		return "", env.Report.Fail(ctx, "Unable to determine the prefix from eupsProductPath or EUPS_PATH")
	}

	// A registry root that already ends in the flavor segment is taken as a
	// fully specified prefix; otherwise flavor, product and version are
	// appended.
	if !strings.HasSuffix(eupsPrefix, "/"+env.Flavor) {
		prodPath := env.Product
		if env.ProductPath != "" {
			prodPath = env.ProductPath
		}
		eupsPrefix = filepath.Join(eupsPrefix, env.Flavor, prodPath, env.Version)
	}

	if env.Prefix != "" {
		explicit := MakeProductPath(env, env.Prefix)
		if env.Version != "unknown" && eupsPrefix != explicit {
			env.Report.Warn(ctx, "Ignoring prefix %s from EUPS_PATH", eupsPrefix)
		}
		return explicit, nil
	}

	return eupsPrefix, nil
}
