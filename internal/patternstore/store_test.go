package patternstore

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/opconvert/internal/converter/pattern"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "patterns.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func named(p string, length, in, out int, starts ...int) *pattern.Pattern {
	ptn := pattern.New(p, length, in, out)
	for _, s := range starts {
		ptn.Insert(s)
	}
	return ptn
}

func TestRecordAndTop(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	block := named("MatMul->Add->Relu", 3, 3, 1, 0, 3)
	pair := named("MatMul->Add", 2, 3, 1, 0, 3)
	require.NoError(t, s.Record(ctx, "mlp", "session-1", []*pattern.Pattern{block, pair}))

	again := named("MatMul->Add->Relu", 3, 3, 1, 0, 3, 6)
	require.NoError(t, s.Record(ctx, "deep-mlp", "session-2", []*pattern.Pattern{again}))

	entries, err := s.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, pattern.Key{Pattern: "MatMul->Add->Relu", InDegree: 3, OutDegree: 1}, entries[0].Key)
	assert.Equal(t, 3, entries[0].Length)
	assert.Equal(t, 5, entries[0].Occurrences)
	assert.Equal(t, 2, entries[0].Graphs)

	assert.Equal(t, "MatMul->Add", entries[1].Key.Pattern)
	assert.Equal(t, 2, entries[1].Occurrences)
	assert.Equal(t, 1, entries[1].Graphs)

	limited, err := s.Top(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecord_DistinctDegreesStaySeparate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "g", "s", []*pattern.Pattern{
		named("Add->Relu", 2, 2, 1, 0, 2),
		named("Add->Relu", 2, 1, 1, 4, 6),
	}))

	entries, err := s.Top(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTop_Empty(t *testing.T) {
	entries, err := setupTestStore(t).Top(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecord_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO pattern_occurrences").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO pattern_occurrences").
		WillReturnError(stderrors.New("disk I/O error"))
	mock.ExpectRollback()

	s := New(db)
	err = s.Record(context.Background(), "g", "s", []*pattern.Pattern{
		named("MatMul->Add", 2, 3, 1, 0, 2),
		named("Add->Relu", 2, 2, 1, 1, 3),
	})
	assert.ErrorContains(t, err, "failed to record pattern Add->Relu")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTop_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT pattern").WithArgs(3).WillReturnError(stderrors.New("no such table"))

	_, err = New(db).Top(context.Background(), 3)
	assert.ErrorContains(t, err, "failed to query patterns")
	assert.NoError(t, mock.ExpectationsWereMet())
}
