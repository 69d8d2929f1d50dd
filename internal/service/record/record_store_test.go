package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/weiwangfds/javanotes/internal/errors"
	"github.com/weiwangfds/javanotes/internal/kv"
)

// flakyStore 可以按需让读写失败，并统计写入次数
type flakyStore struct {
	*kv.Memory
	mu      sync.Mutex
	getErr  error
	setErr  error
	setCall int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Memory: kv.NewMemory()}
}

func (s *flakyStore) Get(key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Memory.Get(key)
}

func (s *flakyStore) Set(key string, value []byte) error {
	s.mu.Lock()
	s.setCall++
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Memory.Set(key, value)
}

func (s *flakyStore) sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCall
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T, backend kv.Store) *Store {
	t.Helper()
	s, err := NewStore(backend, "", WithClock(fixedClock), WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	return s
}

func TestStoreEmptyOnMissingKey(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.List())
	assert.Empty(t, s.Warnings())
}

func TestStoreAddAndFind(t *testing.T) {
	backend := kv.NewMemory()
	s := newTestStore(t, backend)

	r, err := s.Add("Main.java", "public class Main {}", "homework", 20)
	require.NoError(t, err)
	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, "20 Bytes", r.Size)
	assert.Equal(t, "2024-01-15T10:00:00.000Z", r.UploadDate)

	got, ok := s.FindByID("id-1")
	require.True(t, ok)
	assert.Same(t, r, got)

	_, ok = s.FindByID("nope")
	assert.False(t, ok)

	raw, err := backend.Get(DefaultKey)
	require.NoError(t, err)
	var stored []map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 1)
	assert.ElementsMatch(t,
		[]string{"id", "name", "content", "category", "size", "lastModified", "uploadDate"},
		keysOf(stored[0]))
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestStoreUniqueIDs(t *testing.T) {
	ids := []string{"dup", "dup", "other"}
	i := 0
	s, err := NewStore(kv.NewMemory(), "", WithIDGenerator(func() string {
		id := ids[i]
		i++
		return id
	}))
	require.NoError(t, err)

	a, err := s.Add("A.java", "", "homework", 0)
	require.NoError(t, err)
	b, err := s.Add("B.java", "", "homework", 0)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "other", b.ID)
}

func TestStoreDefaultIDsAreUUIDs(t *testing.T) {
	s, err := NewStore(kv.NewMemory(), "")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		r, err := s.Add(fmt.Sprintf("F%d.java", i), "", "practice", 0)
		require.NoError(t, err)
		assert.Len(t, r.ID, 36)
		assert.False(t, seen[r.ID])
		seen[r.ID] = true
	}
}

func TestStoreRoundTrip(t *testing.T) {
	backend := kv.NewMemory()
	s := newTestStore(t, backend)

	_, err := s.Add("A.java", "class A {}", "homework", 10)
	require.NoError(t, err)
	_, err = s.Add("B.java", "class B { String s = \"<b>\"; }", "project", 1536)
	require.NoError(t, err)
	_, err = s.Add("C.java", "", "practice", 0)
	require.NoError(t, err)

	reloaded, err := NewStore(backend, "")
	require.NoError(t, err)
	assert.Equal(t, s.List(), reloaded.List(), "重新加载后记录与顺序保持不变")
}

func TestStoreListIsCopy(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	_, _ = s.Add("A.java", "", "homework", 0)
	_, _ = s.Add("B.java", "", "homework", 0)

	list := s.List()
	list[0], list[1] = list[1], list[0]

	assert.Equal(t, "A.java", s.List()[0].Name)
}

func TestStoreFilter(t *testing.T) {
	s := newTestStore(t, kv.NewMemory())
	_, _ = s.Add("Main.java", "", "homework", 0)
	_, _ = s.Add("Util.java", "", "project", 0)
	_, _ = s.Add("HomeScreen.java", "", "practice", 0)

	names := func(rs []*FileRecord) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Main.java", "HomeScreen.java"}, names(s.Filter("HOME")))
	assert.Equal(t, []string{"Main.java", "Util.java", "HomeScreen.java"}, names(s.Filter("java")))
	assert.Equal(t, []string{"Util.java"}, names(s.Filter("Proj")))
	assert.Len(t, s.Filter(""), 3)
	assert.Empty(t, s.Filter("kotlin"))
}

func TestStoreDelete(t *testing.T) {
	backend := newFlakyStore()
	s := newTestStore(t, backend)
	_, _ = s.Add("A.java", "", "homework", 0)
	_, _ = s.Add("B.java", "", "homework", 0)
	_, _ = s.Add("C.java", "", "homework", 0)

	t.Run("missing id is a no-op", func(t *testing.T) {
		before := backend.sets()
		removed, err := s.DeleteByID("nope")
		require.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, 3, s.Len())
		assert.Equal(t, before, backend.sets(), "未命中时不写存储")
	})

	t.Run("removes and persists", func(t *testing.T) {
		removed, err := s.DeleteByID("id-2")
		require.NoError(t, err)
		assert.True(t, removed)

		reloaded, err := NewStore(backend, "")
		require.NoError(t, err)
		require.Equal(t, 2, reloaded.Len())
		assert.Equal(t, "A.java", reloaded.List()[0].Name)
		assert.Equal(t, "C.java", reloaded.List()[1].Name)
	})

	t.Run("last record leaves empty array", func(t *testing.T) {
		_, _ = s.DeleteByID("id-1")
		_, _ = s.DeleteByID("id-3")
		raw, err := backend.Get(DefaultKey)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(raw))
	})
}

func TestStorePersistFailure(t *testing.T) {
	backend := newFlakyStore()
	s := newTestStore(t, backend)
	_, err := s.Add("A.java", "", "homework", 0)
	require.NoError(t, err)

	backend.setErr = errors.New("quota exceeded")
	r, err := s.Add("B.java", "", "homework", 0)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrPersistFailed))
	require.NotNil(t, r, "写入失败时仍返回记录")
	assert.Equal(t, 2, s.Len(), "内存中的记录保留")
	assert.True(t, s.Dirty())

	raw, _ := backend.Memory.Get(DefaultKey)
	var stored []FileRecord
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Len(t, stored, 1)

	t.Run("flush catches up", func(t *testing.T) {
		require.Error(t, s.Flush())

		backend.setErr = nil
		require.NoError(t, s.Flush())
		assert.False(t, s.Dirty())

		reloaded, err := NewStore(backend, "")
		require.NoError(t, err)
		assert.Equal(t, 2, reloaded.Len())
	})

	t.Run("flush when clean does not write", func(t *testing.T) {
		before := backend.sets()
		require.NoError(t, s.Flush())
		assert.Equal(t, before, backend.sets())
	})
}

func TestStoreMalformedState(t *testing.T) {
	backend := kv.NewMemory()
	require.NoError(t, backend.Set(DefaultKey, []byte("{not json")))

	s, err := NewStore(backend, "")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	require.Len(t, s.Warnings(), 1)
	assert.Contains(t, s.Warnings()[0], "malformed")

	backup, err := backend.Get(DefaultKey + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup))

	_, err = s.Add("A.java", "", "homework", 0)
	require.NoError(t, err)
	backup, err = backend.Get(DefaultKey + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(backup), "后续写入不会覆盖备份")
}

func TestStoreDropsInvalidEntries(t *testing.T) {
	backend := kv.NewMemory()
	require.NoError(t, backend.Set(DefaultKey, []byte(
		`[{"id":"a","name":"A.java"},null,{"id":"","name":"B.java"},{"id":"a","name":"C.java"},{"id":"d","name":"D.java"}]`)))

	s, err := NewStore(backend, "")
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, "A.java", s.List()[0].Name)
	assert.Equal(t, "D.java", s.List()[1].Name)
	assert.Len(t, s.Warnings(), 3)
}

func TestStoreBackendUnavailable(t *testing.T) {
	backend := newFlakyStore()
	backend.getErr = errors.New("connection refused")

	s, err := NewStore(backend, "")
	assert.Nil(t, s)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrStorageUnavailable))
}

func TestStoreConcurrentAdds(t *testing.T) {
	backend := kv.NewMemory()
	s, err := NewStore(backend, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Add(fmt.Sprintf("F%d.java", i), "", "homework", 0)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	reloaded, err := NewStore(backend, "")
	require.NoError(t, err)
	assert.Equal(t, s.List(), reloaded.List(), "持久化顺序与内存顺序一致")
}
