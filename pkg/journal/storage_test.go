package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "journal.json")
	s, err := NewStorage(path)
	require.NoError(t, err)
	return s, path
}

func TestRecordAssignsIdentity(t *testing.T) {
	s, path := newTestStorage(t)

	e := &Entry{BatchID: "b1", Index: 0, Pair: "ETH->USDC", From: "ETH", To: "USDC", Amount: "2450000000000000"}
	require.NoError(t, s.Record(e))

	require.NotEmpty(t, e.ID)
	require.False(t, e.Timestamp.IsZero())
	require.Equal(t, StatusPending, e.Status)
	require.Equal(t, 1, s.Count())

	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestRecordRejectsDuplicateID(t *testing.T) {
	s, _ := newTestStorage(t)

	require.NoError(t, s.Record(&Entry{ID: "fixed"}))
	require.Error(t, s.Record(&Entry{ID: "fixed"}))
}

func TestUpdateAndReload(t *testing.T) {
	s, path := newTestStorage(t)

	ok := &Entry{BatchID: "b1", Index: 0, Pair: "ETH->USDC"}
	bad := &Entry{BatchID: "b1", Index: 1, Pair: "USDC->ETH"}
	require.NoError(t, s.Record(ok))
	require.NoError(t, s.Record(bad))

	ok.Complete("0xabc")
	require.NoError(t, s.Update(ok))
	bad.Fail(errors.New("no route after retries"))
	require.NoError(t, s.Update(bad))

	reopened, err := NewStorage(path)
	require.NoError(t, err)
	require.Equal(t, 2, reopened.Count())

	got, err := reopened.Get(ok.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.Equal(t, "0xabc", got.TxHash)

	failed := reopened.ListByStatus(StatusFailed)
	require.Len(t, failed, 1)
	require.Equal(t, "no route after retries", failed[0].Error)
}

func TestUpdateUnknownEntry(t *testing.T) {
	s, _ := newTestStorage(t)
	require.Error(t, s.Update(&Entry{ID: "missing"}))

	_, err := s.Get("missing")
	require.Error(t, err)
}

func TestListOrdering(t *testing.T) {
	s, _ := newTestStorage(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(&Entry{BatchID: "b2", Index: 0, Timestamp: base.Add(time.Hour)}))
	require.NoError(t, s.Record(&Entry{BatchID: "b1", Index: 1, Timestamp: base}))
	require.NoError(t, s.Record(&Entry{BatchID: "b1", Index: 0, Timestamp: base}))

	all := s.List()
	require.Len(t, all, 3)
	require.Equal(t, "b1", all[0].BatchID)
	require.Equal(t, 0, all[0].Index)
	require.Equal(t, 1, all[1].Index)
	require.Equal(t, "b2", all[2].BatchID)

	batch := s.ListByBatch("b1")
	require.Len(t, batch, 2)
	require.Equal(t, 0, batch[0].Index)
}

func TestNewStorageCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewStorage(path)
	require.Error(t, err)
}
