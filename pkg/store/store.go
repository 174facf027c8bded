package store

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const (
	viewsDir = "views"
	lockFile = ".taskdir.lock"
)

// Store is the filesystem-backed task repository. Each status owns one
// directory under Root and a task file lives in exactly one of them.
type Store struct {
	root            string
	log             *zap.Logger
	clock           func() time.Time
	host            string
	slugFilenames   bool
	defaultPriority Priority
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for mutations and skipped records.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = now }
}

// WithHost sets the host label embedded in new ids.
func WithHost(host string) Option {
	return func(s *Store) { s.host = host }
}

// WithSlugFilenames appends a slug of the title to new filenames.
func WithSlugFilenames(on bool) Option {
	return func(s *Store) { s.slugFilenames = on }
}

// WithDefaultPriority sets the priority used when a caller omits one.
func WithDefaultPriority(p Priority) Option {
	return func(s *Store) { s.defaultPriority = p }
}

// Open returns a Store rooted at root, creating the status directories if
// they don't exist.
func Open(root string, opts ...Option) (*Store, error) {
	s := &Store{
		root:            root,
		log:             zap.NewNop(),
		clock:           time.Now,
		defaultPriority: PriorityNormal,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.defaultPriority.Valid() {
		return nil, ValidationError{Field: "default_priority", Value: s.defaultPriority.String(), Reason: "must be 0-3"}
	}
	s.host = hostLabel(s.host)

	for _, dir := range append(s.statusDirs(), filepath.Join(root, viewsDir)) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return s, nil
}

// Root returns the data root.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory holding tasks with the given status.
func (s *Store) Dir(st Status) string {
	return filepath.Join(s.root, string(st))
}

// ViewsDir returns the directory for persisted view snapshots.
func (s *Store) ViewsDir() string {
	return filepath.Join(s.root, viewsDir)
}

// Logger returns the store's logger.
func (s *Store) Logger() *zap.Logger {
	return s.log
}

func (s *Store) statusDirs() []string {
	dirs := make([]string, 0, len(Statuses))
	for _, st := range Statuses {
		dirs = append(dirs, s.Dir(st))
	}
	return dirs
}

// now returns the current time truncated to the precision stored on disk.
func (s *Store) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// touch advances Modified, never letting it stand still or go backwards.
func (s *Store) touch(t *Task) {
	now := s.now()
	if !now.After(t.Modified) {
		now = t.Modified.Add(time.Microsecond)
	}
	t.Modified = now
}

func (s *Store) withLock(fn func() error) error {
	lock := flock.New(filepath.Join(s.root, lockFile))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking %s: %w", s.root, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.log.Warn("releasing lock", zap.Error(err))
		}
	}()
	return fn()
}

// NewTask holds the caller-supplied fields for Create.
type NewTask struct {
	Title          string
	Priority       *Priority
	Status         Status
	Project        string
	Classification string
	Due            *Date
	Tags           []string
	Body           string
	Checklist      []ChecklistItem
}

// Create validates fields, assigns a fresh id and writes a new file. It
// never overwrites an existing record.
func (s *Store) Create(nt NewTask) (*Task, error) {
	title, err := validateTitle(nt.Title)
	if err != nil {
		return nil, err
	}
	priority := s.defaultPriority
	if nt.Priority != nil {
		priority = *nt.Priority
	}
	if !priority.Valid() {
		return nil, ValidationError{Field: "priority", Value: fmt.Sprint(int(priority)), Reason: "must be 0-3"}
	}
	status := nt.Status
	if status == "" {
		status = StatusInbox
	}
	if status != StatusInbox && status != StatusQueue {
		return nil, ValidationError{Field: "status", Value: string(status), Reason: "new tasks start in inbox or queue"}
	}
	if err := validateTags(nt.Tags); err != nil {
		return nil, err
	}
	for i := range nt.Checklist {
		if err := validateChecklistItem(&nt.Checklist[i]); err != nil {
			return nil, err
		}
	}

	now := s.now()
	t := &Task{
		ID:             GenerateID(now, s.host),
		Title:          title,
		Priority:       priority,
		Status:         status,
		Project:        strings.TrimSpace(nt.Project),
		Classification: strings.TrimSpace(nt.Classification),
		Due:            nt.Due,
		Tags:           normalizeTags(nt.Tags),
		Created:        now,
		Modified:       now,
		Body:           strings.TrimSpace(nt.Body),
		Checklist:      slices.Clone(nt.Checklist),
	}

	err = s.withLock(func() error {
		if _, _, err := s.locate(t.ID); err == nil {
			return IntegrityError{ID: t.ID, Reason: "id already in use"}
		}
		path := filepath.Join(s.Dir(status), recordFilename(t, s.slugFilenames))
		if err := s.writeNew(path, t); err != nil {
			return err
		}
		t.Path = path
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("created task", zap.String("id", t.ID), zap.String("path", t.Path))
	return t, nil
}

// Read loads a task by id.
func (s *Store) Read(id string) (*Task, error) {
	path, st, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	t, _, err := s.load(path, st)
	return t, err
}

// Patch lists the fields Update should change. Nil fields are left alone.
type Patch struct {
	Title          *string
	Priority       *Priority
	Project        *string
	Classification *string
	Due            *Date
	ClearDue       bool
	Body           *string
	AddNote        *string
	AddTags        []string
	RemoveTags     []string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Priority == nil && p.Project == nil &&
		p.Classification == nil && p.Due == nil && !p.ClearDue &&
		p.Body == nil && p.AddNote == nil && len(p.AddTags) == 0 && len(p.RemoveTags) == 0
}

// noteHeading is the heading of a note appended to the context.
const noteHeading = "## Note (%s)"

// apply merges the patch into t and returns the names of the fields it set.
// now stamps appended notes.
func (p Patch) apply(t *Task, now time.Time) ([]string, error) {
	var fields []string
	if p.Title != nil {
		title, err := validateTitle(*p.Title)
		if err != nil {
			return nil, err
		}
		t.Title = title
		fields = append(fields, "title")
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, ValidationError{Field: "priority", Value: fmt.Sprint(int(*p.Priority)), Reason: "must be 0-3"}
		}
		t.Priority = *p.Priority
		fields = append(fields, "priority")
	}
	if p.Project != nil {
		t.Project = strings.TrimSpace(*p.Project)
		fields = append(fields, "project")
	}
	if p.Classification != nil {
		t.Classification = strings.TrimSpace(*p.Classification)
		fields = append(fields, "classification")
	}
	if p.Due != nil && p.ClearDue {
		return nil, ValidationError{Field: "due", Reason: "cannot both set and clear"}
	}
	if p.Due != nil {
		due := *p.Due
		t.Due = &due
		fields = append(fields, "due")
	}
	if p.ClearDue {
		t.Due = nil
		fields = append(fields, "due")
	}
	if p.Body != nil {
		t.Body = strings.TrimSpace(*p.Body)
		fields = append(fields, "body")
	}
	if p.AddNote != nil {
		note := strings.TrimSpace(*p.AddNote)
		if note == "" {
			return nil, ValidationError{Field: "note", Reason: "must not be empty"}
		}
		heading := fmt.Sprintf(noteHeading, now.Format("2006-01-02 15:04"))
		t.Body = strings.TrimSpace(t.Body + "\n\n" + heading + "\n\n" + note)
		fields = append(fields, "notes")
	}
	if len(p.AddTags) > 0 || len(p.RemoveTags) > 0 {
		if err := validateTags(p.AddTags); err != nil {
			return nil, err
		}
		tags := append(slices.Clone(t.Tags), p.AddTags...)
		tags = slices.DeleteFunc(tags, func(tag string) bool {
			return slices.Contains(p.RemoveTags, strings.TrimSpace(tag))
		})
		t.Tags = normalizeTags(tags)
		fields = append(fields, "tags")
	}
	return fields, nil
}

// Update merges patch into the task and rewrites its file in place. It
// returns the updated task and the names of the fields that were supplied.
func (s *Store) Update(id string, patch Patch) (*Task, []string, error) {
	if patch.IsEmpty() {
		return nil, nil, ValidationError{Field: "fields", Reason: "no fields to update"}
	}
	var (
		t      *Task
		fields []string
	)
	err := s.mutate(id, func(task *Task) error {
		var err error
		fields, err = patch.apply(task, s.now())
		t = task
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Debug("updated task", zap.String("id", id), zap.Strings("fields", fields))
	return t, fields, nil
}

// AddChecklistItems appends items to the task's checklist. Items added as
// done without a completion date are stamped with today.
func (s *Store) AddChecklistItems(id string, items []ChecklistItem) (*Task, error) {
	if len(items) == 0 {
		return nil, ValidationError{Field: "checklist", Reason: "no items to add"}
	}
	var t *Task
	err := s.mutate(id, func(task *Task) error {
		today := NewDate(s.now())
		for _, item := range items {
			if err := validateChecklistItem(&item); err != nil {
				return err
			}
			if item.Done() && item.Completed == nil {
				item.Completed = &today
			}
			task.Checklist = append(task.Checklist, item)
		}
		t = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("added checklist items", zap.String("id", id), zap.Int("count", len(items)))
	return t, nil
}

// SetChecklistState changes the state of the checklist item at the 1-based
// position n. Completion is stamped on the transition to done and cleared
// when an item leaves done.
func (s *Store) SetChecklistState(id string, n int, state ItemState) (*Task, error) {
	if _, err := ParseItemState(string(state)); err != nil {
		return nil, err
	}
	var t *Task
	err := s.mutate(id, func(task *Task) error {
		if n < 1 || n > len(task.Checklist) {
			return ValidationError{Field: "item", Value: fmt.Sprint(n), Reason: fmt.Sprintf("task has %d checklist items", len(task.Checklist))}
		}
		item := &task.Checklist[n-1]
		switch {
		case state == ItemDone && !item.Done():
			today := NewDate(s.now())
			item.Completed = &today
		case state != ItemDone:
			item.Completed = nil
		}
		item.State = state
		t = task
		return nil
	})
	return t, err
}

// mutate loads a task under the lock, applies fn and rewrites the file in
// place with a bumped modification time.
func (s *Store) mutate(id string, fn func(*Task) error) error {
	return s.withLock(func() error {
		path, st, err := s.locate(id)
		if err != nil {
			return err
		}
		t, _, err := s.load(path, st)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		s.touch(t)
		return s.writeReplace(path, t)
	})
}

var transitions = map[Status][]Status{
	StatusInbox:    {StatusArchived},
	StatusQueue:    {StatusArchived},
	StatusArchived: {StatusInbox},
}

// CanTransition reports whether a task may move from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Move relocates a task to the directory of a new status. It is the only
// operation that changes Status. Archiving stamps ArchivedAt; leaving the
// archive clears it.
func (s *Store) Move(id string, to Status) (*Task, error) {
	if !to.Valid() {
		return nil, ValidationError{Field: "status", Value: string(to), Reason: "must be one of inbox, queue, archived"}
	}
	var t *Task
	err := s.withLock(func() error {
		src, st, err := s.locate(id)
		if err != nil {
			return err
		}
		task, _, err := s.load(src, st)
		if err != nil {
			return err
		}
		if !CanTransition(task.Status, to) {
			return TransitionError{ID: task.ID, From: task.Status, To: to}
		}

		task.Status = to
		if to == StatusArchived {
			at := s.now()
			task.ArchivedAt = &at
		} else {
			task.ArchivedAt = nil
		}
		s.touch(task)

		dst := filepath.Join(s.Dir(to), filepath.Base(src))
		if err := s.writeNew(dst, task); err != nil {
			return err
		}
		if err := os.Remove(src); err != nil {
			return IntegrityError{ID: task.ID, Reason: fmt.Sprintf("moved but could not remove source: %v", err), Paths: []string{src, dst}}
		}
		task.Path = dst
		t = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("moved task", zap.String("id", id), zap.String("status", string(to)))
	return t, nil
}

// FindByFilename loads the task stored under the exact base name.
func (s *Store) FindByFilename(name string) (*Task, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, NotFoundError{ID: name, Searched: s.statusDirs()}
	}
	for _, st := range Statuses {
		path := filepath.Join(s.Dir(st), name)
		if _, err := os.Stat(path); err == nil {
			t, _, err := s.load(path, st)
			return t, err
		}
	}
	return nil, NotFoundError{ID: name, Searched: s.statusDirs()}
}

// ScanMode selects how List treats records it cannot load.
type ScanMode int

const (
	// ScanStrict stops at the first unreadable, malformed or duplicate record.
	ScanStrict ScanMode = iota
	// ScanSkipMalformed reports bad records as errors and keeps scanning.
	ScanSkipMalformed
)

// Predicate selects tasks in List. A nil Predicate accepts everything.
type Predicate func(*Task) bool

// List scans the given status directories (all of them when statuses is
// empty) and yields matching tasks. Errors are yielded with a nil task; in
// ScanStrict mode the sequence ends after the first one.
func (s *Store) List(statuses []Status, pred Predicate, mode ScanMode) iter.Seq2[*Task, error] {
	if len(statuses) == 0 {
		statuses = Statuses
	}
	return func(yield func(*Task, error) bool) {
		seen := make(map[string]string)
		for _, st := range statuses {
			dir := s.Dir(st)
			entries, err := os.ReadDir(dir)
			if err != nil {
				yield(nil, fmt.Errorf("reading %s: %w", dir, err))
				return
			}
			for _, entry := range entries {
				if entry.IsDir() || !isRecordFile(entry.Name()) {
					continue
				}
				path := filepath.Join(dir, entry.Name())
				t, _, err := s.load(path, st)
				if err == nil {
					if prev, dup := seen[t.ID]; dup {
						err = IntegrityError{ID: t.ID, Reason: "duplicate id", Paths: []string{prev, path}}
					} else {
						seen[t.ID] = path
					}
				}
				if err != nil {
					if mode == ScanStrict {
						yield(nil, err)
						return
					}
					s.log.Warn("skipping record", zap.String("path", path), zap.Error(err))
					if !yield(nil, err) {
						return
					}
					continue
				}
				if pred != nil && !pred(t) {
					continue
				}
				if !yield(t, nil) {
					return
				}
			}
		}
	}
}

// Collect drains a strict scan into a slice.
func Collect(seq iter.Seq2[*Task, error]) ([]*Task, error) {
	var tasks []*Task
	for t, err := range seq {
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Problem is a record that failed a consistency check.
type Problem struct {
	Path string
	Err  error
}

// FileWarning is a checklist warning attached to the file it came from.
type FileWarning struct {
	Path string
	Warning
}

// CheckReport summarises a full consistency scan.
type CheckReport struct {
	Tasks    int
	Problems []Problem
	Warnings []FileWarning
}

// Check scans every record and reports decode failures, duplicate ids,
// status/location mismatches and checklist warnings.
func (s *Store) Check() (*CheckReport, error) {
	report := &CheckReport{}
	seen := make(map[string]string)
	for _, st := range Statuses {
		dir := s.Dir(st)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isRecordFile(entry.Name()) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			t, warnings, err := s.load(path, st)
			for _, w := range warnings {
				report.Warnings = append(report.Warnings, FileWarning{Path: path, Warning: w})
			}
			if err != nil {
				report.Problems = append(report.Problems, Problem{Path: path, Err: err})
				continue
			}
			if prev, dup := seen[t.ID]; dup {
				report.Problems = append(report.Problems, Problem{
					Path: path,
					Err:  IntegrityError{ID: t.ID, Reason: "duplicate id", Paths: []string{prev, path}},
				})
				continue
			}
			seen[t.ID] = path
			report.Tasks++
		}
	}
	return report, nil
}

// locate finds the file holding id. Ids are looked up by filename first and
// by a header scan for records whose filename doesn't carry the id.
func (s *Store) locate(id string) (string, Status, error) {
	id = strings.TrimSuffix(strings.TrimSpace(id), fileExt)
	if id == "" {
		return "", "", ValidationError{Field: "id", Reason: "must not be empty"}
	}

	type hit struct {
		path   string
		status Status
	}
	var hits []hit
	if IsID(id) {
		for _, st := range Statuses {
			dir := s.Dir(st)
			candidates := []string{filepath.Join(dir, id+fileExt)}
			slugged, _ := filepath.Glob(filepath.Join(dir, id+slugSeparator+"*"+fileExt))
			candidates = append(candidates, slugged...)
			for _, path := range candidates {
				if _, err := os.Stat(path); err == nil {
					hits = append(hits, hit{path, st})
				}
			}
		}
	}
	if len(hits) == 0 {
		// Uniqueness depends on this scan, so a record that can't be read
		// fails the lookup instead of being skipped.
		for t, err := range s.List(nil, nil, ScanStrict) {
			if err != nil {
				return "", "", err
			}
			if t.ID == id {
				hits = append(hits, hit{t.Path, t.Status})
			}
		}
	}

	switch len(hits) {
	case 0:
		return "", "", NotFoundError{ID: id, Searched: s.statusDirs()}
	case 1:
		return hits[0].path, hits[0].status, nil
	default:
		paths := make([]string, len(hits))
		for i, h := range hits {
			paths[i] = h.path
		}
		return "", "", IntegrityError{ID: id, Reason: "id stored in more than one file", Paths: paths}
	}
}

// load reads and decodes one record, checking that its status matches the
// directory it was found in.
func (s *Store) load(path string, dirStatus Status) (*Task, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	t, warnings, err := Decode(data)
	if err != nil {
		var de DecodeError
		if errors.As(err, &de) {
			de.Path = path
			return nil, nil, de
		}
		return nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	for _, w := range warnings {
		s.log.Debug("checklist warning", zap.String("path", path), zap.Int("line", w.Line), zap.String("warning", w.Message))
	}
	if t.Status != dirStatus {
		return nil, warnings, IntegrityError{
			ID:     t.ID,
			Reason: fmt.Sprintf("status %s stored in %s directory", t.Status, dirStatus),
			Paths:  []string{path},
		}
	}
	t.Path = path
	return t, warnings, nil
}

// writeNew writes t to a temp file beside path and links it into place, so
// an existing file is never replaced.
func (s *Store) writeNew(path string, t *Task) error {
	tmp, err := s.writeTemp(filepath.Dir(path), t)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return IntegrityError{ID: t.ID, Reason: "file already exists", Paths: []string{path}}
		}
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// writeReplace atomically replaces path with the encoding of t.
func (s *Store) writeReplace(path string, t *Task) error {
	tmp, err := s.writeTemp(filepath.Dir(path), t)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func (s *Store) writeTemp(dir string, t *Task) (string, error) {
	data, err := Encode(t)
	if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}

func isRecordFile(name string) bool {
	return strings.HasSuffix(name, fileExt) && !strings.HasPrefix(name, ".")
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.ContainsAny(title, "\r\n") {
		return "", ValidationError{Field: "title", Value: title, Reason: "must be a single line"}
	}
	return title, nil
}

func validateTags(tags []string) error {
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return ValidationError{Field: "tags", Reason: "tag must not be empty"}
		}
	}
	return nil
}

func validateChecklistItem(item *ChecklistItem) error {
	item.Description = strings.TrimSpace(item.Description)
	if item.Description == "" {
		return ValidationError{Field: "description", Reason: "checklist item must not be empty"}
	}
	if strings.ContainsAny(item.Description, "\r\n") {
		return ValidationError{Field: "description", Value: item.Description, Reason: "must be a single line"}
	}
	if annotationRe.MatchString(item.Description) {
		return ValidationError{Field: "description", Value: item.Description, Reason: "must not end with an inline [key:: value] annotation"}
	}
	if item.State == "" {
		item.State = ItemTodo
	}
	if _, err := ParseItemState(string(item.State)); err != nil {
		return err
	}
	if _, err := ParseItemPriority(string(item.Priority)); err != nil {
		return err
	}
	return nil
}
