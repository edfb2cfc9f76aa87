package source

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/asynkron/hiertext/pkg/tree"
)

func mustWriteFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func tarGzBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(files[name])), Typeflag: tar.TypeReg}))
		_, err := tw.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data string) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll([]byte(data), nil)
}

// listing walks src and returns "tagged path=content" for documents and
// the tagged path for containers.
func listing(t *testing.T, src tree.Source) []string {
	t.Helper()
	got, err := tree.Walk[string](context.Background(), tree.NewRoot(src), func(ctx context.Context, n *tree.Node) ([]string, bool, error) {
		if n.Kind.HasChildren() {
			return []string{n.Tagged() + "/"}, true, nil
		}
		data, err := n.ReadAll(ctx)
		if err != nil {
			return nil, false, err
		}
		return []string{n.Tagged() + "=" + string(data)}, false, nil
	}, tree.Options{Sequential: true})
	require.NoError(t, err)
	return got
}

func TestDirectoryWithArchives(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustWriteFile(t, dir, "a.txt", []byte("alpha"))
	mustWriteFile(t, dir, "sub/b.txt", []byte("beta"))
	mustWriteFile(t, dir, "lib.jar", zipBytes(t, map[string]string{"META-INF/MANIFEST.MF": "v1", "x.txt": "ex"}))
	mustWriteFile(t, dir, "bundle.tgz", tarGzBytes(t, map[string][]byte{
		"docs/readme": []byte("read"),
		"inner.zip":   zipBytes(t, map[string]string{"deep.txt": "deep"}),
	}))
	mustWriteFile(t, dir, "notes.txt.gz", gzipBytes(t, "unzipped"))
	mustWriteFile(t, dir, "log.zst", zstdBytes(t, "zstd text"))

	src, err := Open(dir, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, dir, src.Name())

	require.Equal(t, []string{
		"f/",
		"fa.txt=alpha",
		"fbundle.tgz/",
		"abundle.tgz/docs/",
		"abundle.tgz/docs/readme=read",
		"abundle.tgz/inner.zip/",
		"abundle.tgz/inner.zip/deep.txt=deep",
		"flib.jar/",
		"alib.jar/META-INF/",
		"alib.jar/META-INF/MANIFEST.MF=v1",
		"alib.jar/x.txt=ex",
		"flog.zst=zstd text",
		"fnotes.txt.gz=unzipped",
		"fsub/",
		"fsub/b.txt=beta",
	}, listing(t, src))
}

func TestArchivesAsDocuments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := gzipBytes(t, "compressed")
	mustWriteFile(t, dir, "n.gz", raw)
	mustWriteFile(t, dir, "z.zip", zipBytes(t, map[string]string{"a": "b"}))

	src, err := Open(dir, Options{})
	require.NoError(t, err)
	got := listing(t, src)
	require.Len(t, got, 3)
	require.Equal(t, "fn.gz="+string(raw), got[1])
	require.True(t, strings.HasPrefix(got[2], "fz.zip=PK"))
}

func TestOpenSingleArchiveFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// no archive suffix: the zip magic classifies it
	mustWriteFile(t, dir, "payload.bin", zipBytes(t, map[string]string{"k/v.txt": "value"}))

	src, err := Open(filepath.Join(dir, "payload.bin"), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, tree.Archive, src.Kind())
	require.Equal(t, []string{"f/", "ak/", "ak/v.txt=value"}, listing(t, src))
}

func TestZipEntryDigest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustWriteFile(t, dir, "d.zip", zipBytes(t, map[string]string{"e.txt": "hello"}))
	src, err := Open(filepath.Join(dir, "d.zip"), DefaultOptions())
	require.NoError(t, err)

	children, err := tree.NewRoot(src).Children(context.Background(), tree.Options{})
	require.NoError(t, err)
	require.Len(t, children, 1)
	entry, ok := children[0].Source.(*ZipEntry)
	require.True(t, ok)
	size, _, ok := entry.Digest()
	require.True(t, ok)
	require.Equal(t, int64(5), size)
}

func TestFromMap(t *testing.T) {
	t.Parallel()

	src := FromMap("mem", map[string]string{"a/b.txt": "1", "c.txt": "2", "empty/": ""})
	require.Equal(t, []string{"f/", "fa/", "fa/b.txt=1", "fc.txt=2", "fempty/"}, listing(t, src))
}

func TestProbe(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		head []byte
		want Format
	}{
		{"x.tar.gz", nil, TarGzip},
		{"X.TGZ", nil, TarGzip},
		{"x.tar.zst", nil, TarZstd},
		{"x.tar", nil, Tar},
		{"x.war", nil, Zip},
		{"x.gz", []byte{0x1f, 0x8b, 8}, Gzip},
		{"x.zst", nil, Zstd},
		{"x.txt", []byte("hello"), Plain},
		{"blob", []byte("PK\x03\x04rest"), Zip},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Probe(tc.name, tc.head).Format, tc.name)
	}
	require.Equal(t, "gzip (suffix .gz; gzip magic)", FormatSummary(Probe("x.gz", []byte{0x1f, 0x8b})))
	require.Equal(t, "plain", FormatSummary(Probe("x.txt", nil)))
}
