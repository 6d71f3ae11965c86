package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eupsci/eupsbuild/pkg/target"
)

func TestDeclareCommand(t *testing.T) {
	env := testEnv()
	prod := Product{Name: "widget", Version: "1.2"}

	assert.Equal(t,
		[]string{"eups", "declare", "--force", "--flavor", "Linux64", "--root", "/prefix", "widget", "1.2"},
		DeclareCommand(env, "/prefix", prod, false, false))

	env.EupsPath = "/registry"
	assert.Equal(t,
		[]string{"eups", "declare", "--force", "--flavor", "Linux64", "--root", "/prefix", "-Z", "/registry", "widget", "1.2", "--current"},
		DeclareCommand(env, "/prefix", prod, true, false))

	env.Tag = "stable"
	assert.Equal(t,
		[]string{"eups", "declare", "--force", "--flavor", "Linux64", "--root", "/prefix", "-Z", "/registry", "widget", "1.2", "--tag=stable"},
		DeclareCommand(env, "/prefix", prod, false, true))
}

func TestUndeclareCommand(t *testing.T) {
	env := testEnv()
	prod := Product{Name: "widget", Version: "1.2"}

	assert.Equal(t,
		[]string{"eups", "undeclare", "--flavor", "Linux64", "widget", "1.2"},
		UndeclareCommand(env, prod, false))
	assert.Equal(t,
		[]string{"eups", "undeclare", "--flavor", "Linux64", "widget", "1.2", "--current"},
		UndeclareCommand(env, prod, true))
}

func TestDeclareRegistersTargets(t *testing.T) {
	env := testEnv()
	env.Version = "1.2"
	graph := target.NewGraph()

	err := Declare(testContext(), env, graph, "/prefix", nil, Requested{Declare: true})
	require.NoError(t, err)

	_, ok := graph.Target("declare:widget:1.2")
	assert.True(t, ok)

	// making a version current requires it to be declared first
	current, ok := graph.Target("current:widget:1.2")
	require.True(t, ok)
	assert.Equal(t, []string{"declare:widget:1.2"}, current.Deps)
}

func TestDeclareCurrentOnly(t *testing.T) {
	env := testEnv()
	env.Version = "1.2"
	graph := target.NewGraph()

	err := Declare(testContext(), env, graph, "/prefix", nil, Requested{Current: true})
	require.NoError(t, err)

	_, ok := graph.Target("current:widget:1.2")
	assert.True(t, ok)
	// current already declares the product, no separate declare target
	_, ok = graph.Target("declare:widget:1.2")
	assert.False(t, ok)
}

func TestUndeclareUnknownVersion(t *testing.T) {
	env := testEnv()
	env.Version = "unknown"
	graph := target.NewGraph()

	err := Declare(testContext(), env, graph, "/prefix", nil, Requested{Undeclare: true})
	require.NoError(t, err)

	assert.Empty(t, graph.Targets())
}

func TestDeclareMultipleProducts(t *testing.T) {
	env := testEnv()
	env.Version = "1.2"
	graph := target.NewGraph()

	products := []Product{
		{Name: "widget", Version: "1.2"},
		{Name: "widget-data"},
	}

	err := Declare(testContext(), env, graph, "/prefix", products, Requested{Undeclare: true})
	require.NoError(t, err)

	_, ok := graph.Target("undeclare:widget:1.2")
	assert.True(t, ok)
	_, ok = graph.Target("undeclare:widget-data:1.2")
	assert.True(t, ok)
}
