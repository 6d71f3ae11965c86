package buildenv

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Env collects the configuration every install helper reads. It's filled
// from the product definition, environment variables and command line flags
// (in that order, later sources win) and passed around explicitly.
type Env struct {
	// Product is the name the product is declared under.
	Product string
	// Version is an explicit version override. If set, version resolution
	// returns it unchanged.
	Version string
	// VersionString is the raw version source: a VCS keyword expansion tag,
	// the name of a VCS backend ("git", "hg", ...) or a literal version.
	VersionString string
	// BaseVersion is the upstream version a patched release is based on.
	BaseVersion string
	// Flavor is the platform identifier used to namespace registry paths.
	Flavor string
	// EupsPath is the registry root (usually from $EUPS_PATH).
	EupsPath string
	// ProductPath overrides the product segment inside the registry.
	ProductPath string
	// Prefix is an explicit installation prefix override. May contain
	// %-placeholders.
	Prefix string
	// Tag is an optional registry tag applied at declare time.
	Tag string

	// NoEups disables all registry interaction.
	NoEups bool
	// Force tolerates version resolution failures.
	Force bool
	// Installing is true when the current invocation installs files.
	Installing bool
	// Declaring is true when the current invocation declares products.
	Declaring bool

	Report *Reporter
}

// New returns an Env seeded from the process environment.
func New() *Env {
	env := &Env{
		Flavor: os.Getenv("EUPS_FLAVOR"),
		Report: &Reporter{},
	}

	if path := os.Getenv("EUPS_PATH"); path != "" {
		// EUPS_PATH can hold several colon separated roots; only the first
		// one receives new products.
		env.EupsPath = strings.Split(path, string(os.PathListSeparator))[0]
	}

	if env.Flavor == "" {
		env.Flavor = defaultFlavor()
	}

	return env
}

func defaultFlavor() string {
	switch runtime.GOOS {
	case "linux":
		if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
			return "Linux64"
		}
		return "Linux"
	case "darwin":
		return "DarwinX86"
	default:
		return runtime.GOOS
	}
}

// Cwd returns the directory prefixes are computed relative to. $PWD is
// preferred over os.Getwd because it preserves symlinked checkouts.
func Cwd() string {
	if pwd := os.Getenv("PWD"); pwd != "" {
		return pwd
	}

	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// EupsBinPath returns the bin directory of the eups installation pointed to
// by $EUPS_DIR, or an empty string if the variable isn't set.
func EupsBinPath() string {
	dir := os.Getenv("EUPS_DIR")
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "bin")
}
