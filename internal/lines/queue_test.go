package lines_test

import (
	"errors"
	"sync"
	"testing"

	"voicequeue/internal/lines"
)

func assertContiguous(t *testing.T, q *lines.Queue) {
	t.Helper()
	seen := make(map[string]struct{})
	for i, line := range q.List() {
		if line.Index != i {
			t.Fatalf("line %s has index %d at position %d", line.ID, line.Index, i)
		}
		if _, dup := seen[line.ID]; dup {
			t.Fatalf("duplicate id %s", line.ID)
		}
		seen[line.ID] = struct{}{}
	}
}

func texts(q *lines.Queue) []string {
	var out []string
	for _, line := range q.List() {
		out = append(out, line.Text)
	}
	return out
}

func TestAppendAssignsIDsAndIndices(t *testing.T) {
	q := lines.NewQueue()
	first := q.Append([]string{"one", "two"}, lines.AppendOptions{SourceFile: "a.txt"})
	second := q.Append([]string{"three"}, lines.AppendOptions{VoiceID: "v1", VoiceName: "Rachel"})

	if len(first) != 2 || len(second) != 1 {
		t.Fatalf("unexpected append results: %d %d", len(first), len(second))
	}
	if second[0].Index != 2 {
		t.Fatalf("expected trailing index 2, got %d", second[0].Index)
	}
	for _, line := range q.List() {
		if line.Status != lines.StatusPending {
			t.Fatalf("expected pending, got %s", line.Status)
		}
		if line.ID == "" {
			t.Fatal("expected id to be assigned")
		}
		if line.OriginalText != line.Text {
			t.Fatalf("expected original text to match, got %q vs %q", line.OriginalText, line.Text)
		}
	}
	if !second[0].HasVoice() || first[0].HasVoice() {
		t.Fatal("voice assignment not carried from append options")
	}
	assertContiguous(t, q)
}

func TestDeleteReindexesAndPrunesSelection(t *testing.T) {
	q := lines.NewQueue()
	added := q.Append([]string{"a", "b", "c", "d"}, lines.AppendOptions{})
	q.Select([]string{added[1].ID, added[3].ID, "unknown"})

	removed := q.Delete([]string{added[1].ID, "missing"})
	if len(removed) != 1 || removed[0] != added[1].ID {
		t.Fatalf("unexpected removed ids: %v", removed)
	}
	assertContiguous(t, q)
	if got := texts(q); len(got) != 3 || got[0] != "a" || got[1] != "c" || got[2] != "d" {
		t.Fatalf("unexpected order after delete: %v", got)
	}
	sel := q.Selection()
	if len(sel) != 1 || sel[0] != added[3].ID {
		t.Fatalf("expected selection pruned to remaining id, got %v", sel)
	}
}

func TestReorderMovesLine(t *testing.T) {
	q := lines.NewQueue()
	q.Append([]string{"a", "b", "c", "d"}, lines.AppendOptions{})

	if err := q.Reorder(0, 2); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if got := texts(q); got[0] != "b" || got[1] != "c" || got[2] != "a" || got[3] != "d" {
		t.Fatalf("unexpected order after forward move: %v", got)
	}
	if err := q.Reorder(3, 0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if got := texts(q); got[0] != "d" || got[1] != "b" || got[2] != "c" || got[3] != "a" {
		t.Fatalf("unexpected order after backward move: %v", got)
	}
	assertContiguous(t, q)

	if err := q.Reorder(0, 9); !errors.Is(err, lines.ErrIndexOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestSetStatusKeepsFieldsConsistent(t *testing.T) {
	q := lines.NewQueue()
	id := q.Append([]string{"hello"}, lines.AppendOptions{})[0].ID

	if err := q.SetStatus(id, lines.StatusError, "boom"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	line, _ := q.Get(id)
	if line.ErrorMessage != "boom" {
		t.Fatalf("expected error message, got %q", line.ErrorMessage)
	}

	if err := q.MarkDone(id, "/out/00001.mp3", 1.5, "m1"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	line, _ = q.Get(id)
	if line.ErrorMessage != "" || line.OutputPath != "/out/00001.mp3" || line.AudioDuration != 1.5 {
		t.Fatalf("unexpected done line: %+v", line)
	}

	if err := q.SetStatus(id, lines.StatusPending, "ignored"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	line, _ = q.Get(id)
	if line.ErrorMessage != "" || line.OutputPath != "" {
		t.Fatalf("expected result fields cleared, got %+v", line)
	}

	if err := q.SetStatus("nope", lines.StatusDone, ""); !errors.Is(err, lines.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateRejectsStatusAndPreservesOriginal(t *testing.T) {
	q := lines.NewQueue()
	id := q.Append([]string{"first"}, lines.AppendOptions{})[0].ID

	text := "edited"
	voice := "v2"
	updated, err := q.Update(id, lines.Patch{Text: &text, VoiceID: &voice})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Text != "edited" || updated.OriginalText != "first" || updated.VoiceID != "v2" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	done := lines.StatusDone
	if _, err := q.Update(id, lines.Patch{Status: &done}); !errors.Is(err, lines.ErrStatusViaUpdate) {
		t.Fatalf("expected status rejection, got %v", err)
	}
}

func TestRetryResetsFailedLines(t *testing.T) {
	q := lines.NewQueue()
	added := q.Append([]string{"a", "b", "c"}, lines.AppendOptions{})
	_ = q.SetStatus(added[0].ID, lines.StatusError, "x")
	_ = q.SetStatus(added[2].ID, lines.StatusError, "y")
	_ = q.MarkDone(added[1].ID, "/o", 1, "")

	reset := q.Retry([]string{added[0].ID, added[1].ID})
	if len(reset) != 1 || reset[0] != added[0].ID {
		t.Fatalf("expected only the failed line reset, got %v", reset)
	}
	line, _ := q.Get(added[0].ID)
	if line.Status != lines.StatusPending || line.ErrorMessage != "" || line.RetryCount != 1 {
		t.Fatalf("unexpected retried line: %+v", line)
	}

	reset = q.Retry(nil)
	if len(reset) != 1 || reset[0] != added[2].ID {
		t.Fatalf("expected remaining failed line reset, got %v", reset)
	}
}

func TestReplaceAndClearNotifyObservers(t *testing.T) {
	q := lines.NewQueue()
	var mu sync.Mutex
	var kinds []lines.MutationKind
	cancel := q.Subscribe(func(m lines.Mutation) {
		mu.Lock()
		kinds = append(kinds, m.Kind)
		mu.Unlock()
	})

	q.Replace([]lines.Line{
		{ID: "x", Index: 7, Text: "restored", Status: lines.StatusDone},
		{ID: "y", Index: 3, Text: "other", Status: lines.StatusPending},
		{ID: "x", Text: "duplicate"},
	})
	assertContiguous(t, q)
	if q.Len() != 2 {
		t.Fatalf("expected duplicate id dropped, got %d lines", q.Len())
	}
	q.Clear()
	cancel()
	q.Append([]string{"after cancel"}, lines.AppendOptions{})

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != 2 || kinds[0] != lines.MutationReplaced || kinds[1] != lines.MutationCleared {
		t.Fatalf("unexpected mutation kinds: %v", kinds)
	}
}

func TestSplitTextDropsBlankLines(t *testing.T) {
	got := lines.SplitText("first\r\n\n  second  \n\t\nthird")
	if len(got) != 3 || got[0] != "first" || got[1] != "second" || got[2] != "third" {
		t.Fatalf("unexpected split: %q", got)
	}
	if lines.CharCount("héllo") != 5 {
		t.Fatalf("expected rune count 5, got %d", lines.CharCount("héllo"))
	}
	if lines.Snippet("abcdef", 3) != "abc" {
		t.Fatalf("unexpected snippet %q", lines.Snippet("abcdef", 3))
	}
}
