package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
)

func TestMakeProductPath(t *testing.T) {
	env := testEnv()
	env.EupsPath = "/registry"
	env.Version = "1.2"

	assert.Equal(t, "/registry/Linux64/widget/1.2", MakeProductPath(env, "%P/%f/%p/%v"))
}

func TestMakeProductPathUnknownPlaceholder(t *testing.T) {
	env := testEnv()
	env.EupsPath = "/registry"

	assert.Equal(t, "/registry/%x", MakeProductPath(env, "%P/%x"))
}

func TestMakeProductPathFallsBackToCwd(t *testing.T) {
	env := testEnv()
	t.Setenv("PWD", "/work/widget")

	assert.Equal(t, "/work/widget/widget", MakeProductPath(env, "%P/%p"))
}

func TestSetPrefixNoEups(t *testing.T) {
	env := testEnv()
	env.NoEups = true
	env.EupsPath = "/registry"

	prefix, err := SetPrefix(testContext(), env, "", "")
	require.NoError(t, err)
	assert.Equal(t, "/usr/local", prefix)

	env.Prefix = "/opt/widget"
	prefix, err = SetPrefix(testContext(), env, "", "")
	require.NoError(t, err)
	assert.Equal(t, "/opt/widget", prefix)
}

func TestSetPrefixFromEupsPath(t *testing.T) {
	env := testEnv()
	env.EupsPath = "/registry"
	env.Version = "1.2"

	prefix, err := SetPrefix(testContext(), env, "", "")
	require.NoError(t, err)
	assert.Equal(t, "/registry/Linux64/widget/1.2", prefix)
}

func TestSetPrefixProductPathOverride(t *testing.T) {
	env := testEnv()
	env.EupsPath = "/registry"
	env.Version = "1.2"
	env.ProductPath = "devtools/widget"

	prefix, err := SetPrefix(testContext(), env, "", "")
	require.NoError(t, err)
	assert.Equal(t, "/registry/Linux64/devtools/widget/1.2", prefix)
}

func TestSetPrefixFullySpecifiedRoot(t *testing.T) {
	env := testEnv()
	env.EupsPath = "/registry/Linux64"
	env.Version = "1.2"

	prefix, err := SetPrefix(testContext(), env, "", "")
	require.NoError(t, err)
	assert.Equal(t, "/registry/Linux64", prefix)
}

func TestSetPrefixExplicitWins(t *testing.T) {
	env := testEnv()
	env.EupsPath = "/registry"
	env.Version = "1.2"
	env.Prefix = "/opt/%p-%v"

	prefix, err := SetPrefix(testContext(), env, "", "")
	require.NoError(t, err)
	assert.Equal(t, "/opt/widget-1.2", prefix)
}

func TestSetPrefixProductPathTemplate(t *testing.T) {
	env := testEnv()
	env.EupsPath = "/registry"
	env.Version = "2.0"

	prefix, err := SetPrefix(testContext(), env, "", "%P/custom/%p/%v")
	require.NoError(t, err)
	assert.Equal(t, "/registry/custom/widget/2.0/Linux64/widget/2.0", prefix)
}

func TestSetPrefixUnresolvable(t *testing.T) {
	env := testEnv()

	_, err := SetPrefix(testContext(), env, "", "")
	require.Error(t, err)
}

func TestSetPrefixVersionFailureWithoutForce(t *testing.T) {
	env := testEnv()
	env.EupsPath = "/registry"
	env.Installing = true

	_, err := SetPrefix(testContext(), env, "$HeadURL: https://example/svn/widget/weird/ups $", "")
	require.Error(t, err)
}

func TestSetPrefixVersionFailureWithForce(t *testing.T) {
	env := testEnv()
	env.EupsPath = "/registry"
	env.Installing = true
	env.Force = true

	prefix, err := SetPrefix(testContext(), env, "$HeadURL: https://example/svn/widget/weird/ups $", "")
	require.NoError(t, err)
	assert.Equal(t, "unknown", env.Version)
	assert.Equal(t, "/registry/Linux64/widget/unknown", prefix)
}

func TestSetPrefixStoresVersion(t *testing.T) {
	env := &buildenv.Env{
		Product: "widget",
		Flavor:  "Linux64",
		NoEups:  true,
		Report:  &buildenv.Reporter{Traceback: true},
	}

	_, err := SetPrefix(testContext(), env, "$Name: v3 $", "")
	require.NoError(t, err)
	assert.Equal(t, "v3", env.Version)
}
