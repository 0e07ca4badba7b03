package sqlite

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lectern/internal/core/domain"
	"github.com/custodia-labs/lectern/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })

	return store, dir
}

func collection(t *testing.T, store *Store, name string) driven.VectorCollection {
	t.Helper()
	c, err := store.Collection(name)
	require.NoError(t, err)
	return c
}

func chunkRecord(id, course string, lesson *int, emb ...float32) driven.VectorRecord {
	metadata := map[string]any{
		driven.MetaCourseTitle: course,
		driven.MetaChunkIndex:  0,
	}
	if lesson != nil {
		metadata[driven.MetaLessonNumber] = *lesson
	}
	return driven.VectorRecord{ID: id, Document: "doc " + id, Embedding: emb, Metadata: metadata}
}

func TestNewStore(t *testing.T) {
	store, dir := setupTestStore(t)
	assert.Contains(t, store.Path(), dir)
	assert.Contains(t, store.Path(), "index.db")
}

func TestStore_Collection(t *testing.T) {
	store, _ := setupTestStore(t)

	c := collection(t, store, driven.CollectionCatalog)
	assert.Equal(t, driven.CollectionCatalog, c.Name())

	_, err := store.Collection("users; DROP TABLE x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVectorCollection_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)
	c := collection(t, store, driven.CollectionCatalog)

	record := driven.VectorRecord{
		ID:        "Intro to X",
		Document:  "Intro to X\nAda",
		Embedding: []float32{0.25, -0.5, 1},
		Metadata: map[string]any{
			driven.MetaCourseTitle: "Intro to X",
			driven.MetaInstructor:  "Ada",
			driven.MetaLessonsJSON: `[{"lesson_number":1,"lesson_title":"A"}]`,
			driven.MetaLessonCount: 1,
		},
	}
	require.NoError(t, c.Upsert(ctx, []driven.VectorRecord{record}))

	got, err := c.Get(ctx, "Intro to X")
	require.NoError(t, err)
	assert.Equal(t, record.Document, got.Document)
	assert.Equal(t, record.Embedding, got.Embedding)
	assert.Equal(t, "Ada", got.Metadata[driven.MetaInstructor])
	assert.Equal(t, record.Metadata[driven.MetaLessonsJSON], got.Metadata[driven.MetaLessonsJSON])

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVectorCollection_QueryWithFilters(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)
	c := collection(t, store, driven.CollectionContent)

	require.NoError(t, c.Upsert(ctx, []driven.VectorRecord{
		chunkRecord("A_0", "A", domain.IntPtr(1), 1, 0),
		chunkRecord("A_1", "A", domain.IntPtr(2), 1, 0.1),
		chunkRecord("A_2", "A", nil, 0, 1),
		chunkRecord("B_0", "B", domain.IntPtr(2), 1, 0),
	}))

	all, err := c.Query(ctx, []float32{1, 0}, nil, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "A_0", all[0].Record.ID)
	assert.Equal(t, "A_2", all[3].Record.ID)

	lesson2, err := c.Query(ctx, []float32{1, 0}, driven.VectorFilter{
		driven.MetaCourseTitle:  "A",
		driven.MetaLessonNumber: 2,
	}, 10)
	require.NoError(t, err)
	require.Len(t, lesson2, 1)
	assert.Equal(t, "A_1", lesson2[0].Record.ID)
	assert.Equal(t, 2, lesson2[0].Record.Metadata[driven.MetaLessonNumber])

	limited, err := c.Query(ctx, []float32{1, 0}, driven.VectorFilter{driven.MetaCourseTitle: "A"}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = c.Query(ctx, []float32{1, 0}, nil, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorCollection_ResidualFilter(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)
	c := collection(t, store, driven.CollectionCatalog)

	require.NoError(t, c.Upsert(ctx, []driven.VectorRecord{
		{ID: "A", Document: "A", Metadata: map[string]any{driven.MetaCourseTitle: "A", driven.MetaInstructor: "Ada"}},
		{ID: "B", Document: "B", Metadata: map[string]any{driven.MetaCourseTitle: "B", driven.MetaInstructor: "Bob"}},
	}))

	records, err := c.List(ctx, driven.VectorFilter{driven.MetaInstructor: "Bob"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "B", records[0].ID)

	require.NoError(t, c.Delete(ctx, driven.VectorFilter{driven.MetaInstructor: "Ada"}))
	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestVectorCollection_Replace(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)
	c := collection(t, store, driven.CollectionContent)
	filterA := driven.VectorFilter{driven.MetaCourseTitle: "A"}

	require.NoError(t, c.Upsert(ctx, []driven.VectorRecord{
		chunkRecord("A_0", "A", domain.IntPtr(1), 1),
		chunkRecord("A_1", "A", domain.IntPtr(1), 1),
		chunkRecord("A_2", "A", domain.IntPtr(1), 1),
		chunkRecord("B_0", "B", domain.IntPtr(1), 1),
	}))

	require.NoError(t, c.Replace(ctx, filterA, []driven.VectorRecord{
		chunkRecord("A_0", "A", domain.IntPtr(1), 1),
	}))

	a, err := c.List(ctx, filterA)
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "A_0", a[0].ID)

	count, _ := c.Count(ctx)
	assert.Equal(t, 2, count)
}

func TestVectorCollection_ReplaceRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)
	c := collection(t, store, driven.CollectionContent)
	filterA := driven.VectorFilter{driven.MetaCourseTitle: "A"}

	require.NoError(t, c.Upsert(ctx, []driven.VectorRecord{
		chunkRecord("A_0", "A", domain.IntPtr(1), 1),
		chunkRecord("A_1", "A", domain.IntPtr(1), 1),
	}))

	err := c.Replace(ctx, filterA, []driven.VectorRecord{
		chunkRecord("A_0", "A", domain.IntPtr(1), 1),
		{Document: "no id"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	a, err := c.List(ctx, filterA)
	require.NoError(t, err)
	assert.Len(t, a, 2)
}

func TestVectorCollection_ConcurrentReadersSeeWholeCourse(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)
	c := collection(t, store, driven.CollectionContent)
	filterA := driven.VectorFilter{driven.MetaCourseTitle: "A"}
	batch := []driven.VectorRecord{
		chunkRecord("A_0", "A", domain.IntPtr(1), 1),
		chunkRecord("A_1", "A", domain.IntPtr(1), 1),
		chunkRecord("A_2", "A", domain.IntPtr(2), 1),
	}
	require.NoError(t, c.Upsert(ctx, batch))

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				records, err := c.List(ctx, filterA)
				if assert.NoError(t, err) {
					assert.Len(t, records, 3)
				}
			}
		}
	}()

	for i := 0; i < 20; i++ {
		require.NoError(t, c.Replace(ctx, filterA, batch))
	}
	close(done)
	wg.Wait()
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	c, err := store.Collection(driven.CollectionContent)
	require.NoError(t, err)
	require.NoError(t, c.Upsert(ctx, []driven.VectorRecord{
		chunkRecord("A_0", "A", domain.IntPtr(3), 0.5, 0.5),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	c, err = reopened.Collection(driven.CollectionContent)
	require.NoError(t, err)
	got, err := c.Get(ctx, "A_0")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, got.Embedding)
	assert.Equal(t, 3, got.Metadata[driven.MetaLessonNumber])
}

func TestFloat32Conversion(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 1e30}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}

func TestSplitFilter(t *testing.T) {
	where, args, residual := splitFilter(driven.VectorFilter{
		driven.MetaCourseTitle:  "A",
		driven.MetaLessonNumber: 2,
		driven.MetaInstructor:   "Ada",
	})

	assert.Equal(t, " WHERE course_title = ? AND lesson_number = ?", where)
	assert.Equal(t, []any{"A", int64(2)}, args)
	assert.Equal(t, driven.VectorFilter{driven.MetaInstructor: "Ada"}, residual)

	where, args, residual = splitFilter(nil)
	assert.Empty(t, where)
	assert.Nil(t, args)
	assert.Empty(t, residual)
}
