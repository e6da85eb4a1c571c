package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arhipvp/docrouter/internal/cache"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(t.TempDir(), nil, zaptest.NewLogger(t))
}

func mkdirs(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(p)), 0o755))
	}
}

func TestEndpointsScansExactlyFourLevels(t *testing.T) {
	s := newTestService(t)
	mkdirs(t, s.Root(),
		"Finance/AcmeGmbH/2026/Invoices",
		"Finance/AcmeGmbH/2026/Contracts",
		"Legal/Notary/2025/Deeds",
		"Finance/AcmeGmbH/2026",       // depth 3, not an endpoint
		"TooDeep/a/b/c/d",             // depth 5: only the depth-4 prefix counts
		"Shallow",                     // depth 1
	)

	endpoints, err := s.Endpoints()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"Finance/AcmeGmbH/2026/Invoices",
		"Finance/AcmeGmbH/2026/Contracts",
		"Legal/Notary/2025/Deeds",
		"TooDeep/a/b/c",
	}, endpoints)
}

func TestEndpointsIgnoresFilesAndMissingRoot(t *testing.T) {
	s := newTestService(t)
	mkdirs(t, s.Root(), "A/B/C/D")
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "A", "B", "C", "stray.pdf"), []byte("x"), 0o644))

	endpoints, err := s.Endpoints()
	require.NoError(t, err)
	assert.Equal(t, []string{"A/B/C/D"}, endpoints)

	missing := NewService(filepath.Join(t.TempDir(), "does-not-exist"), nil, zaptest.NewLogger(t))
	endpoints, err = missing.Endpoints()
	require.NoError(t, err)
	assert.Empty(t, endpoints)
}

func TestTreeIsRecursiveAndSorted(t *testing.T) {
	s := newTestService(t)
	mkdirs(t, s.Root(), "beta/inner", "Alpha", "gamma")

	tree, err := s.Tree()
	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, "", tree.PathRel)
	require.Len(t, tree.Children, 3)

	// Case-insensitive name ordering.
	assert.Equal(t, "Alpha", tree.Children[0].Name)
	assert.Equal(t, "beta", tree.Children[1].Name)
	assert.Equal(t, "gamma", tree.Children[2].Name)

	require.Len(t, tree.Children[1].Children, 1)
	assert.Equal(t, "beta/inner", tree.Children[1].Children[0].PathRel)
}

func TestTreeMissingRootIsNil(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "nope"), nil, zaptest.NewLogger(t))
	tree, err := s.Tree()
	require.NoError(t, err)
	assert.Nil(t, tree)
}

func TestApplyRouteBuildsDatePrefixedName(t *testing.T) {
	s := newTestService(t)
	s.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	target, err := s.ApplyRoute("Invoice: Acme*2026?.pdf", "/Finance/AcmeGmbH/2026/Invoices/")
	require.NoError(t, err)
	assert.Equal(t, "Finance/AcmeGmbH/2026/Invoices", target.FinalRelPath)
	assert.Equal(t, filepath.Join(s.Root(), "Finance", "AcmeGmbH", "2026", "Invoices"), target.FinalPath)
	assert.Equal(t, "2026-08-30__Invoice_ Acme_2026_.pdf", target.FinalName)
}

func TestApplyRouteDefaultsInboxName(t *testing.T) {
	s := newTestService(t)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	target, err := s.ApplyRoute("  ", "a/b/c/d")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02__document.pdf", target.FinalName)
}

func TestApplyRouteRejectsEmptyAndTraversal(t *testing.T) {
	s := newTestService(t)

	_, err := s.ApplyRoute("doc.pdf", "   ")
	assert.ErrorIs(t, err, ErrRelPathRequired)

	_, err = s.ApplyRoute("doc.pdf", "a/../../outside")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestMoveRenamesIntoCreatedDir(t *testing.T) {
	s := newTestService(t)
	src := filepath.Join(t.TempDir(), "inbox.pdf")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))

	destDir := filepath.Join(s.Root(), "Finance", "AcmeGmbH", "2026", "Invoices")
	dest, err := s.Move(src, destDir, `2026-08-30__inv<oice>.pdf`)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "2026-08-30__inv_oice_.pdf"), dest)

	moved, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "content", string(moved))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source must be gone after move")
}

func TestMoveMissingSource(t *testing.T) {
	s := newTestService(t)
	_, err := s.Move(filepath.Join(t.TempDir(), "ghost.pdf"), s.Root(), "x.pdf")
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestMkdirCreatesAndTolerateExisting(t *testing.T) {
	s := newTestService(t)

	dir, err := s.Mkdir(`Finance\AcmeGmbH\2026\Invoices`)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "Finance", "AcmeGmbH", "2026", "Invoices"), dir)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Second call is idempotent.
	_, err = s.Mkdir("Finance/AcmeGmbH/2026/Invoices")
	assert.NoError(t, err)
}

func TestMkdirRejectsTraversal(t *testing.T) {
	s := newTestService(t)
	_, err := s.Mkdir("../escape")
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = s.Mkdir("//")
	assert.ErrorIs(t, err, ErrRelPathRequired)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e_f_g_h_i", SanitizeName(`a\b/c:d*e?f"g<h>i`))
	assert.Equal(t, "trimmed", SanitizeName("  trimmed  "))

	long := strings.Repeat("я", 100)
	assert.Equal(t, 80, len([]rune(SanitizeName(long))))
}

func TestScansAreCachedUntilWrite(t *testing.T) {
	scanCache := cache.NewShardedCache(4, 60)
	root := t.TempDir()
	s := NewService(root, scanCache, zaptest.NewLogger(t))
	mkdirs(t, root, "A/B/C/D")

	endpoints, err := s.Endpoints()
	require.NoError(t, err)
	assert.Equal(t, []string{"A/B/C/D"}, endpoints)

	// A scan created behind the cache's back stays invisible...
	mkdirs(t, root, "E/F/G/H")
	endpoints, err = s.Endpoints()
	require.NoError(t, err)
	assert.Equal(t, []string{"A/B/C/D"}, endpoints)

	// ...until a write goes through the service and invalidates it.
	_, err = s.Mkdir("I/J/K/L")
	require.NoError(t, err)
	endpoints, err = s.Endpoints()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A/B/C/D", "E/F/G/H", "I/J/K/L"}, endpoints)
}
