package tui

import (
	"github.com/jask/modelhub/internal/journal"
	"github.com/jask/modelhub/internal/session"
)

type snapshotMsg session.Snapshot

type uploadDoneMsg struct {
	name string
	err  error
}

// resyncMsg is posted from the aggregation builder's timer goroutine.
type resyncMsg struct{}

type fetchDoneMsg struct {
	nftID string
	path  string
	size  int64
	err   error
}

type historyMsg []journal.Entry

type journalRecordedMsg struct{}
