package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"swap-cycler/pkg/journal"
)

func TestFilterEntries(t *testing.T) {
	entries := []*journal.Entry{
		{BatchID: "a", Index: 0, Status: journal.StatusCompleted},
		{BatchID: "a", Index: 1, Status: journal.StatusFailed},
		{BatchID: "b", Index: 0, Status: journal.StatusCompleted},
		{BatchID: "b", Index: 1, Status: journal.StatusCompleted},
	}

	require.Len(t, filterEntries(entries, "", "", 0), 4)
	require.Len(t, filterEntries(entries, "a", "", 0), 2)
	require.Len(t, filterEntries(entries, "", journal.StatusFailed, 0), 1)

	latest := filterEntries(entries, "", journal.StatusCompleted, 2)
	require.Len(t, latest, 2)
	require.Equal(t, "b", latest[0].BatchID)
	require.Equal(t, 1, latest[1].Index)
}

func TestShortID(t *testing.T) {
	require.Equal(t, "3f0c9a1b", shortID("3f0c9a1b-5d2e-4c1a-9b7e-2f3a4b5c6d7e"))
	require.Equal(t, "abc", shortID("abc"))
}
