package find

import (
	"bytes"
	"context"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/asynkron/hiertext/internal/source"
	"github.com/asynkron/hiertext/pkg/tree"
)

func fixture(t *testing.T) *source.VirtualDir {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("conf/app.yaml")
	require.NoError(t, err)
	_, err = w.Write([]byte("k: v\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	root := source.FromMap("root", map[string]string{
		"readme.md":   "# hi\n",
		"src/main.go": "package main\n",
		"src/util.go": "package main\n\n",
		"src/empty/":  "",
	})
	root.Add("lib", source.FromBytes("bundle.zip", buf.Bytes(), source.DefaultOptions()))
	return root
}

func find(t *testing.T, opts Options) []string {
	t.Helper()
	f, err := New(opts)
	require.NoError(t, err)
	entries, err := f.Find(context.Background(), fixture(t))
	require.NoError(t, err)
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label
	}
	return labels
}

func TestFindEverything(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{
		"root",
		"root/lib",
		"root/lib/bundle.zip",
		"root/lib/bundle.zip/conf",
		"root/lib/bundle.zip/conf/app.yaml",
		"root/readme.md",
		"root/src",
		"root/src/empty",
		"root/src/main.go",
		"root/src/util.go",
	}, find(t, Options{}))
}

func TestFindByNameAndKind(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"root/lib/bundle.zip/conf/app.yaml", "root/src/main.go", "root/src/util.go"},
		find(t, Options{Names: []string{"*.go", "*.yaml"}}))

	kinds, err := ParseKinds("a,d")
	require.NoError(t, err)
	require.Equal(t, []string{"root", "root/lib", "root/lib/bundle.zip", "root/lib/bundle.zip/conf", "root/src", "root/src/empty"},
		find(t, Options{Kinds: kinds}))

	require.Equal(t, []string{"root/lib/bundle.zip"}, find(t, Options{Kinds: []tree.Kind{tree.Archive}}))
}

func TestMaxDepth(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"root", "root/lib", "root/readme.md", "root/src"}, find(t, Options{MaxDepth: 1}))
}

func TestWriteLong(t *testing.T) {
	t.Parallel()

	f, err := New(Options{Names: []string{"util.go", "src"}})
	require.NoError(t, err)
	entries, err := f.Find(context.Background(), fixture(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries, true))
	require.Equal(t, "directory          - root/src\ndocument          14 root/src/util.go\n", buf.String())
}

func TestParseKindsRejectsUnknown(t *testing.T) {
	t.Parallel()

	_, err := ParseKinds("dx")
	require.Error(t, err)
}
