package archive

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	members := make(map[string]string)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		members[hdr.Name] = string(data)
	}
	return members
}

func TestWriteCategory(t *testing.T) {
	corpus := t.TempDir()
	a := filepath.Join(corpus, "a.pdf")
	b := filepath.Join(corpus, "sub", "b.pdf")
	require.NoError(t, os.WriteFile(a, []byte("%PDF-a"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Dir(b), 0o755))
	require.NoError(t, os.WriteFile(b, []byte("%PDF-b"), 0o644))

	out := t.TempDir()
	w := &Writer{OutputDir: out}
	size, err := w.WriteCategory("xfa", []string{a, b})
	require.NoError(t, err)
	assert.Positive(t, size)

	members := readArchive(t, filepath.Join(out, "xfa.tar.gz"))
	require.Len(t, members, 2)

	// Member names are relative: the leading slash of the absolute corpus
	// path is stripped, contents are the original bytes.
	assert.Equal(t, "%PDF-a", members[normalizeName(a)])
	assert.Equal(t, "%PDF-b", members[normalizeName(b)])
	for name := range members {
		assert.NotEqual(t, byte('/'), name[0])
	}
}

func TestWriteCategoryEmptyList(t *testing.T) {
	out := t.TempDir()
	w := &Writer{OutputDir: out}
	_, err := w.WriteCategory("js", nil)
	require.NoError(t, err)

	assert.Empty(t, readArchive(t, filepath.Join(out, "js.tar.gz")))
}

func TestWriteCategoryMissingDocumentFails(t *testing.T) {
	w := &Writer{OutputDir: t.TempDir()}
	_, err := w.WriteCategory("tagged", []string{"/no/such/doc.pdf"})
	assert.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "corpus/a.pdf", normalizeName("/corpus/a.pdf"))
	assert.Equal(t, "corpus/a.pdf", normalizeName("./corpus/a.pdf"))
	assert.Equal(t, "corpus/a.pdf", normalizeName("../../corpus/a.pdf"))
}
