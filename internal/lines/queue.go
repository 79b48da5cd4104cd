package lines

import (
	"sync"

	"github.com/google/uuid"
)

// Queue is the ordered, mutable collection of lines plus the user's selection.
// All mutations are serialized; observers run after the lock is released.
type Queue struct {
	mu        sync.RWMutex
	items     []*Line
	byID      map[string]*Line
	selection map[string]struct{}

	obsMu     sync.Mutex
	observers map[int]func(Mutation)
	nextObs   int
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		byID:      make(map[string]*Line),
		selection: make(map[string]struct{}),
		observers: make(map[int]func(Mutation)),
	}
}

// Subscribe registers fn for every mutation and returns a function removing it.
func (q *Queue) Subscribe(fn func(Mutation)) func() {
	q.obsMu.Lock()
	id := q.nextObs
	q.nextObs++
	q.observers[id] = fn
	q.obsMu.Unlock()
	return func() {
		q.obsMu.Lock()
		delete(q.observers, id)
		q.obsMu.Unlock()
	}
}

func (q *Queue) notify(m Mutation) {
	q.obsMu.Lock()
	fns := make([]func(Mutation), 0, len(q.observers))
	for _, fn := range q.observers {
		fns = append(fns, fn)
	}
	q.obsMu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

// Append adds one pending line per text at the end of the queue.
func (q *Queue) Append(texts []string, opts AppendOptions) []Line {
	if len(texts) == 0 {
		return nil
	}
	q.mu.Lock()
	added := make([]Line, 0, len(texts))
	ids := make([]string, 0, len(texts))
	for _, raw := range texts {
		text := normalizeText(raw)
		line := &Line{
			ID:           uuid.NewString(),
			Index:        len(q.items),
			Text:         text,
			OriginalText: text,
			VoiceID:      opts.VoiceID,
			VoiceName:    opts.VoiceName,
			Status:       StatusPending,
			SourceFile:   opts.SourceFile,
		}
		q.items = append(q.items, line)
		q.byID[line.ID] = line
		added = append(added, *line)
		ids = append(ids, line.ID)
	}
	n := len(q.items)
	q.mu.Unlock()

	q.notify(Mutation{Kind: MutationAppended, IDs: ids, Len: n})
	return added
}

// Get returns a copy of the line with id.
func (q *Queue) Get(id string) (Line, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	line, ok := q.byID[id]
	if !ok {
		return Line{}, false
	}
	return *line, true
}

// List returns copies of all lines in index order.
func (q *Queue) List() []Line {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Line, len(q.items))
	for i, line := range q.items {
		out[i] = *line
	}
	return out
}

// Len returns the number of lines.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// IDsWithStatus returns ids of lines in status, ordered by index.
func (q *Queue) IDsWithStatus(status Status) []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var ids []string
	for _, line := range q.items {
		if line.Status == status {
			ids = append(ids, line.ID)
		}
	}
	return ids
}

// Update applies a non-status edit to one line.
func (q *Queue) Update(id string, patch Patch) (Line, error) {
	q.mu.Lock()
	line, ok := q.byID[id]
	if !ok {
		q.mu.Unlock()
		return Line{}, notFound(id)
	}
	if err := patch.apply(line); err != nil {
		q.mu.Unlock()
		return Line{}, err
	}
	updated := *line
	n := len(q.items)
	q.mu.Unlock()

	q.notify(Mutation{Kind: MutationUpdated, IDs: []string{id}, Len: n})
	return updated, nil
}

// SetStatus moves a line to status. The error message is kept only for
// StatusError and the output fields only for StatusDone.
func (q *Queue) SetStatus(id string, status Status, errMsg string) error {
	q.mu.Lock()
	line, ok := q.byID[id]
	if !ok {
		q.mu.Unlock()
		return notFound(id)
	}
	line.Status = status
	if status == StatusError {
		line.ErrorMessage = errMsg
	} else {
		line.ErrorMessage = ""
	}
	if status != StatusDone {
		line.OutputPath = ""
		line.AudioDuration = 0
	}
	n := len(q.items)
	q.mu.Unlock()

	q.notify(Mutation{Kind: MutationStatus, IDs: []string{id}, Len: n})
	return nil
}

// MarkDone records a successful synthesis for a line.
func (q *Queue) MarkDone(id, outputPath string, durationSeconds float64, modelID string) error {
	q.mu.Lock()
	line, ok := q.byID[id]
	if !ok {
		q.mu.Unlock()
		return notFound(id)
	}
	line.Status = StatusDone
	line.ErrorMessage = ""
	line.OutputPath = outputPath
	line.AudioDuration = durationSeconds
	if modelID != "" {
		line.ModelID = modelID
	}
	n := len(q.items)
	q.mu.Unlock()

	q.notify(Mutation{Kind: MutationStatus, IDs: []string{id}, Len: n})
	return nil
}

// Retry resets failed lines to pending and bumps their retry counters. With
// no ids every failed line is reset. The ids actually reset are returned.
func (q *Queue) Retry(ids []string) []string {
	q.mu.Lock()
	var targets []*Line
	if len(ids) == 0 {
		for _, line := range q.items {
			if line.Status == StatusError {
				targets = append(targets, line)
			}
		}
	} else {
		for _, id := range ids {
			if line, ok := q.byID[id]; ok && line.Status == StatusError {
				targets = append(targets, line)
			}
		}
	}
	reset := make([]string, 0, len(targets))
	for _, line := range targets {
		line.Status = StatusPending
		line.ErrorMessage = ""
		line.RetryCount++
		reset = append(reset, line.ID)
	}
	n := len(q.items)
	q.mu.Unlock()

	if len(reset) > 0 {
		q.notify(Mutation{Kind: MutationStatus, IDs: reset, Len: n})
	}
	return reset
}

// Delete removes lines by id, prunes them from the selection and re-derives
// indices. Unknown ids are ignored; the removed ids are returned.
func (q *Queue) Delete(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	q.mu.Lock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := q.byID[id]; ok {
			drop[id] = struct{}{}
		}
	}
	if len(drop) == 0 {
		q.mu.Unlock()
		return nil
	}
	removed := make([]string, 0, len(drop))
	kept := q.items[:0]
	for _, line := range q.items {
		if _, ok := drop[line.ID]; ok {
			delete(q.byID, line.ID)
			delete(q.selection, line.ID)
			removed = append(removed, line.ID)
			continue
		}
		kept = append(kept, line)
	}
	clear(q.items[len(kept):])
	q.items = kept
	q.reindexLocked()
	n := len(q.items)
	q.mu.Unlock()

	q.notify(Mutation{Kind: MutationDeleted, IDs: removed, Len: n})
	return removed
}

// Reorder moves the line at position from to position to.
func (q *Queue) Reorder(from, to int) error {
	q.mu.Lock()
	n := len(q.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		q.mu.Unlock()
		return ErrIndexOutOfRange
	}
	if from == to {
		q.mu.Unlock()
		return nil
	}
	moved := q.items[from]
	if from < to {
		copy(q.items[from:to], q.items[from+1:to+1])
	} else {
		copy(q.items[to+1:from+1], q.items[to:from])
	}
	q.items[to] = moved
	q.reindexLocked()
	q.mu.Unlock()

	q.notify(Mutation{Kind: MutationReorder, IDs: []string{moved.ID}, Len: n})
	return nil
}

// Clear removes every line and the selection.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.byID = make(map[string]*Line)
	q.selection = make(map[string]struct{})
	q.mu.Unlock()

	q.notify(Mutation{Kind: MutationCleared})
}

// Replace swaps the whole content for lines, keeping their ids and order.
// Indices are re-derived from position.
func (q *Queue) Replace(lines []Line) {
	q.mu.Lock()
	q.items = make([]*Line, 0, len(lines))
	q.byID = make(map[string]*Line, len(lines))
	q.selection = make(map[string]struct{})
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		line := l
		if line.ID == "" {
			line.ID = uuid.NewString()
		}
		if _, dup := q.byID[line.ID]; dup {
			continue
		}
		q.items = append(q.items, &line)
		q.byID[line.ID] = &line
		ids = append(ids, line.ID)
	}
	q.reindexLocked()
	n := len(q.items)
	q.mu.Unlock()

	q.notify(Mutation{Kind: MutationReplaced, IDs: ids, Len: n})
}

// Select replaces the selection with the known ids among ids.
func (q *Queue) Select(ids []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.selection = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := q.byID[id]; ok {
			q.selection[id] = struct{}{}
		}
	}
}

// Selection returns selected ids in index order.
func (q *Queue) Selection() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]string, 0, len(q.selection))
	for _, line := range q.items {
		if _, ok := q.selection[line.ID]; ok {
			out = append(out, line.ID)
		}
	}
	return out
}

func (q *Queue) reindexLocked() {
	for i, line := range q.items {
		line.Index = i
	}
}
