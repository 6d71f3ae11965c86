package install

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
	"github.com/eupsci/eupsbuild/pkg/target"
)

// DefaultIgnorePattern excludes editor backups, compiled Python files and
// object files from installation.
const DefaultIgnorePattern = `(~$|\.pyc$|\.os?$)`

var vcsMetaDirs = map[string]bool{
	".svn": true,
	".git": true,
	".hg":  true,
}

// DirectoryInstaller recursively copies a directory tree during the build
// tool's execution phase rather than at configure time, so it sees the
// files as they exist when installation actually runs.
type DirectoryInstaller struct {
	IgnoreRegex  *regexp.Regexp
	Recursive    bool
	ShowProgress bool
}

// Install mirrors the tree below src into dest, creating directories as
// needed and overwriting existing files. Files matching IgnoreRegex and VCS
// metadata directories are skipped.
func (inst DirectoryInstaller) Install(ctx context.Context, dest, src string) error {
	logger := buildenv.Log(ctx)

	if _, err := os.Stat(dest); err != nil {
		logger.Info().Msgf("Creating directory %s", dest)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return eris.Wrapf(err, "failed to create %s", dest)
	}

	var bar *progressbar.ProgressBar
	if inst.ShowProgress {
		bar = newProgressBar(int64(inst.countFiles(src)), "Copying "+src)
	}

	err := filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return eris.Wrapf(err, "failed to read %s", path)
		}
		if path == src {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return eris.Wrapf(err, "failed to relativize %s", path)
		}
		destPath := filepath.Join(dest, rel)

		if entry.IsDir() {
			if !inst.Recursive || vcsMetaDirs[entry.Name()] {
				return filepath.SkipDir
			}

			if _, err := os.Stat(destPath); err != nil {
				logger.Info().Msgf("Creating directory %s", destPath)
			}
			return os.MkdirAll(destPath, 0o755)
		}

		if inst.IgnoreRegex.MatchString(entry.Name()) {
			return nil
		}

		logger.Info().Msgf("Copying %s to %s", path, filepath.Dir(destPath))
		if err := copyFile(path, destPath); err != nil {
			return err
		}

		if bar != nil {
			_ = bar.Add(1)
		}
		return nil
	})

	if bar != nil {
		_ = bar.Finish()
	}
	return err
}

func (inst DirectoryInstaller) countFiles(src string) int {
	count := 0
	_ = filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != src && (!inst.Recursive || vcsMetaDirs[entry.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !inst.IgnoreRegex.MatchString(entry.Name()) {
			count++
		}
		return nil
	})
	return count
}

func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return eris.Wrapf(err, "failed to check %s", src)
	}

	source, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "failed to open %s", src)
	}
	defer source.Close()

	destFile, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return eris.Wrapf(err, "failed to create %s", dest)
	}

	_, err = io.Copy(destFile, source)
	if err != nil {
		destFile.Close()
		return eris.Wrapf(err, "failed to copy %s to %s", src, dest)
	}

	return destFile.Close()
}

func newProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.Default(length, desc)
}

// InstallDir registers a target that copies dir into prefix. The target is
// always rebuilt since the dependency graph can't see the individual files
// the copy depends on.
func InstallDir(ctx context.Context, env *buildenv.Env, graph *target.Graph, prefix, dir string, ignoreRegex string, recursive bool) (*target.Target, error) {
	if !env.Installing {
		return nil, nil
	}

	if ignoreRegex == "" {
		ignoreRegex = DefaultIgnorePattern
	}
	ignore, err := regexp.Compile(ignoreRegex)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid ignore pattern %s", ignoreRegex)
	}

	inst := DirectoryInstaller{IgnoreRegex: ignore, Recursive: recursive, ShowProgress: true}
	dest := filepath.Join(prefix, dir)

	t := &target.Target{
		Name:        "install:" + dir,
		Dest:        dest,
		Sources:     []string{dir},
		AlwaysBuild: true,
		Action: func(ctx context.Context) error {
			return inst.Install(ctx, dest, dir)
		},
	}

	err = graph.Add(t)
	if err != nil {
		return nil, err
	}
	return t, nil
}
