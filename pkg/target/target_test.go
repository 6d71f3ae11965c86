package target

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
)

func testContext() context.Context {
	logger := zerolog.Nop()
	return buildenv.WithLogger(context.Background(), &logger)
}

func record(runs *[]string, name string) *Target {
	return &Target{
		Name:        name,
		AlwaysBuild: true,
		Action: func(ctx context.Context) error {
			*runs = append(*runs, name)
			return nil
		},
	}
}

func TestGraphRejectsDuplicates(t *testing.T) {
	graph := NewGraph()
	require.NoError(t, graph.Add(&Target{Name: "a"}))
	assert.Error(t, graph.Add(&Target{Name: "a"}))
}

func TestGraphAutoNames(t *testing.T) {
	graph := NewGraph()

	first := &Target{}
	second := &Target{}
	require.NoError(t, graph.Add(first))
	require.NoError(t, graph.Add(second))

	assert.NotEmpty(t, first.Name)
	assert.NotEqual(t, first.Name, second.Name)
}

func TestRunnerExecutesDepsFirst(t *testing.T) {
	graph := NewGraph()
	runs := []string{}

	require.NoError(t, graph.Add(record(&runs, "dep")))
	top := record(&runs, "top")
	top.Deps = []string{"dep"}
	require.NoError(t, graph.Add(top))

	require.NoError(t, NewRunner(graph).Run(testContext(), "top"))
	assert.Equal(t, []string{"dep", "top"}, runs)
}

func TestRunnerRunsEachTargetOnce(t *testing.T) {
	graph := NewGraph()
	runs := []string{}

	require.NoError(t, graph.Add(record(&runs, "shared")))
	for _, name := range []string{"a", "b"} {
		tgt := record(&runs, name)
		tgt.Deps = []string{"shared"}
		require.NoError(t, graph.Add(tgt))
	}
	graph.Alias("all", "a", "b")

	require.NoError(t, NewRunner(graph).Run(testContext(), "all"))
	assert.Equal(t, []string{"shared", "a", "b"}, runs)
}

func TestRunnerDetectsCycles(t *testing.T) {
	graph := NewGraph()

	a := &Target{Name: "a", Deps: []string{"b"}, AlwaysBuild: true}
	b := &Target{Name: "b", Deps: []string{"a"}, AlwaysBuild: true}
	require.NoError(t, graph.Add(a))
	require.NoError(t, graph.Add(b))

	err := NewRunner(graph).Run(testContext(), "a")
	require.Error(t, err)
}

func TestRunnerUpToDateSkip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dest := filepath.Join(dir, "dest.txt")

	require.NoError(t, os.WriteFile(src, []byte("src"), 0o644))
	require.NoError(t, os.WriteFile(dest, []byte("dest"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, old, old))

	graph := NewGraph()
	ran := false
	require.NoError(t, graph.Add(&Target{
		Name:    "copy",
		Dest:    dest,
		Sources: []string{src},
		Action: func(ctx context.Context) error {
			ran = true
			return nil
		},
	}))

	require.NoError(t, NewRunner(graph).Run(testContext(), "copy"))
	assert.False(t, ran)

	// force overrides the check
	runner := NewRunner(graph)
	runner.Force = true
	require.NoError(t, runner.Run(testContext(), "copy"))
	assert.True(t, ran)
}

func TestRunnerAlwaysBuild(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dest := filepath.Join(dir, "dest.txt")

	require.NoError(t, os.WriteFile(src, []byte("src"), 0o644))
	require.NoError(t, os.WriteFile(dest, []byte("dest"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, old, old))

	graph := NewGraph()
	ran := false
	require.NoError(t, graph.Add(&Target{
		Name:        "copy",
		Dest:        dest,
		Sources:     []string{src},
		AlwaysBuild: true,
		Action: func(ctx context.Context) error {
			ran = true
			return nil
		},
	}))

	require.NoError(t, NewRunner(graph).Run(testContext(), "copy"))
	assert.True(t, ran)
}

func TestRunnerDryRun(t *testing.T) {
	graph := NewGraph()
	runs := []string{}
	require.NoError(t, graph.Add(record(&runs, "a")))

	runner := NewRunner(graph)
	runner.DryRun = true
	require.NoError(t, runner.Run(testContext(), "a"))
	assert.Empty(t, runs)
}

func TestRunnerUnknownTarget(t *testing.T) {
	err := NewRunner(NewGraph()).Run(testContext(), "missing")
	require.Error(t, err)
}

func TestSideEffectSerialization(t *testing.T) {
	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock := lockSideEffects([]string{"registry-test"})
			defer unlock()

			current := atomic.AddInt32(&active, 1)
			for {
				seen := atomic.LoadInt32(&maxActive)
				if current <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, current) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
}

func TestSideEffectLockOrderIndependent(t *testing.T) {
	done := make(chan struct{}, 2)

	for _, markers := range [][]string{{"ord-a", "ord-b"}, {"ord-b", "ord-a"}} {
		go func(markers []string) {
			for i := 0; i < 100; i++ {
				unlock := lockSideEffects(markers)
				unlock()
			}
			done <- struct{}{}
		}(markers)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("side effect locks deadlocked")
		}
	}
}

func TestCleanPaths(t *testing.T) {
	graph := NewGraph()
	graph.Clean("install", "/prefix")
	graph.Clean("install", "/other")

	assert.Equal(t, []string{"/prefix", "/other"}, graph.CleanPaths("install"))
}
