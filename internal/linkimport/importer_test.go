package linkimport

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/orderdesk/internal/domain/link"
)

// --- Mock implementations ---

type memStore struct {
	links   []link.Link
	batches int
	err     error
}

func (m *memStore) Import(_ context.Context, links []link.Link) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.batches++
	m.links = append(m.links, links...)
	return int64(len(links)), nil
}

func (m *memStore) tokens() []string {
	out := make([]string, 0, len(m.links))
	for _, l := range m.links {
		out = append(out, l.Token)
	}
	slices.Sort(out)
	return out
}

// --- Helpers ---

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func newTestImporter(t *testing.T, store Store, batch int) *Importer {
	t.Helper()
	im, err := New(Config{ManagerID: "m-1", BloomCapacity: 1000, BatchSize: batch}, store, zap.NewNop())
	require.NoError(t, err)
	return im
}

const ts = "2024-03-10T09:00:00Z"

// --- Tests ---

func TestParseLine(t *testing.T) {
	l, err := ParseLine("c-1, tok-1 ,"+ts+",a-7", "m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", l.ManagerID)
	assert.Equal(t, "c-1", l.CustomerID)
	assert.Equal(t, "tok-1", l.Token)
	assert.Equal(t, "a-7", l.AgentID)
	assert.True(t, l.CreatedAt.Equal(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)))
	assert.NotEmpty(t, l.ID)

	l, err = ParseLine("c-1,tok-1,"+ts, "m-1")
	require.NoError(t, err)
	assert.Empty(t, l.AgentID)

	for _, bad := range []string{
		"c-1,tok-1",
		",tok-1," + ts,
		"c-1,," + ts,
		"c-1,tok-1,yesterday",
		"c-1,tok-1," + ts + ",a,b",
	} {
		_, err := ParseLine(bad, "m-1")
		assert.Error(t, err, bad)
	}
}

func TestRun_SkipsTokensSharedAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeGz(t, dir, "a.gz",
		"c-1,tok-a1,"+ts,
		"c-1,tok-shared,"+ts,
		"not a record",
	)
	b := writeGz(t, dir, "b.gz",
		"c-2,tok-b1,"+ts,
		"c-2,tok-shared,"+ts,
		"c-2,tok-b2,"+ts+",a-1",
	)

	store := &memStore{}
	res, err := newTestImporter(t, store, 100).Run(context.Background(), []string{a, b})
	require.NoError(t, err)

	assert.Equal(t, []string{"tok-a1", "tok-b1", "tok-b2"}, store.tokens())
	assert.Equal(t, Result{Lines: 6, Invalid: 1, Shared: 1, Inserted: 3}, res)
}

func TestRun_Batches(t *testing.T) {
	dir := t.TempDir()
	lines := make([]string, 0, 5)
	for _, tok := range []string{"t1", "t2", "t3", "t4", "t5"} {
		lines = append(lines, "c-1,"+tok+","+ts)
	}
	path := writeGz(t, dir, "one.gz", lines...)

	store := &memStore{}
	res, err := newTestImporter(t, store, 2).Run(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Equal(t, 3, store.batches)
	assert.Equal(t, int64(5), res.Inserted)
}

func TestRun_StoreError(t *testing.T) {
	path := writeGz(t, t.TempDir(), "one.gz", "c-1,t1,"+ts)

	store := &memStore{err: errors.New("db down")}
	_, err := newTestImporter(t, store, 10).Run(context.Background(), []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestRun_MissingFile(t *testing.T) {
	_, err := newTestImporter(t, &memStore{}, 10).Run(context.Background(), []string{filepath.Join(t.TempDir(), "nope.gz")})
	require.Error(t, err)
}

func TestNew_RequiresManager(t *testing.T) {
	_, err := New(Config{}, &memStore{}, zap.NewNop())
	require.Error(t, err)
}
