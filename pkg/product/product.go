// Package product loads the product.star definition file that describes
// what a product is called, where its version comes from and which
// directories get installed.
package product

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

// Definition is the processed result of the product() call in product.star.
type Definition struct {
	// Name is the product name used for registry declarations.
	Name string
	// Version is an explicit version; usually empty in favor of
	// VersionString.
	Version string
	// VersionString is the raw version source handed to the version
	// resolver (a VCS keyword tag or a backend name like "git").
	VersionString string
	// BaseVersion is the upstream version a patched release is based on.
	BaseVersion string
	// Dirs lists the relative directories to install.
	Dirs []string
	// Ignore overrides the default installation exclusion pattern.
	Ignore string
	// Presetup pins dependency versions during table expansion.
	Presetup map[string]string
	// EupsProductPath is a %-template overriding the registry location.
	EupsProductPath string
}

func (d *Definition) String() string {
	return fmt.Sprintf("<Product %s>", d.Name)
}

func (d *Definition) Type() string {
	return "product"
}

func (d *Definition) Freeze() {}

func (d *Definition) Truth() starlark.Bool {
	return starlark.True
}

func (d *Definition) Hash() (uint32, error) {
	return 0, eris.New("product is not a hashable type")
}

// ScriptOption describes an option() declared by the definition file.
type ScriptOption struct {
	DefaultValue starlark.String
	Help         string
}

func (o ScriptOption) Default() string {
	return o.DefaultValue.GoString()
}
