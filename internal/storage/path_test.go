package storage

import (
	"testing"
	"time"
)

func TestBuildTranscriptPath(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 4, 5, 0, 0, time.FixedZone("x", -5*3600))
	key, err := BuildTranscriptPath("alice", ts)
	if err != nil {
		t.Fatalf("BuildTranscriptPath() error = %v", err)
	}
	want := "transcripts/session=alice/date=2026-02-19/transcript-1771491900000.parquet"
	if key != want {
		t.Fatalf("BuildTranscriptPath() = %q, want %q", key, want)
	}
}

func TestBuildTranscriptPathRejectsInvalidSession(t *testing.T) {
	for _, sessionID := range []string{"", "../oops", "a/b", "-leading"} {
		if _, err := BuildTranscriptPath(sessionID, time.Now()); err == nil {
			t.Fatalf("session id %q should be rejected", sessionID)
		}
	}
}
