package screening

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phpscreening/screener/internal/extraction"
	"github.com/phpscreening/screener/internal/models"
	"github.com/phpscreening/screener/internal/pdf"
	"github.com/phpscreening/screener/internal/region"
)

// DefaultClassifyWindow is how much extracted text is handed to the region classifier.
const DefaultClassifyWindow = 1500

var (
	ErrOutOfRange      = errors.New("candidate index out of range")
	ErrNothingToExport = errors.New("no kept candidates to export")
)

var finalExtension = regexp.MustCompile(`\.[^/.]+$`)

// Document is the PDF collaborator.
type Document interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
	RenderPage(ctx context.Context, data []byte, pageIndex int, scale float64) (*pdf.Page, error)
}

// BlobStore keeps the original bytes of every candidate.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Archiver packs named blobs into one downloadable archive.
type Archiver interface {
	Build(blobs []NamedBlob) ([]byte, error)
}

// NamedBlob is one archive entry.
type NamedBlob struct {
	Name string
	Data []byte
}

// EventPublisher receives review events. Implementations must not block.
type EventPublisher interface {
	Publish(ev models.ReviewEvent)
}

// UploadedFile is one file offered for ingestion.
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// IngestResult lists what ingestion did with a batch.
type IngestResult struct {
	Added   []string `json:"added"`
	Skipped int      `json:"skipped"`
	Failed  []string `json:"failed,omitempty"`
}

// Session holds the whole screening state: candidates, focus, history and filters.
// Every mutation happens under mu; extraction runs outside it and applies its result atomically.
type Session struct {
	mu         sync.Mutex
	candidates []*models.Candidate
	byID       map[string]int
	focus      int
	history    []models.HistoryEntry
	filter     models.FilterState

	doc       Document
	store     BlobStore
	archiver  Archiver
	publisher EventPublisher
	queue     *extraction.Queue
	log       *slog.Logger

	classifyWindow int
	archiveFolder  string
	now            func() time.Time
}

// Option customises a Session.
type Option func(*Session)

// WithClassifyWindow sets how many leading characters feed the region classifier.
func WithClassifyWindow(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.classifyWindow = n
		}
	}
}

// WithArchiveFolder sets the folder kept files are placed in inside the export archive.
func WithArchiveFolder(folder string) Option {
	return func(s *Session) {
		s.archiveFolder = strings.Trim(folder, "/")
	}
}

// WithPublisher sets where review events go.
func WithPublisher(p EventPublisher) Option {
	return func(s *Session) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithExtractTimeout bounds a single extraction. Zero leaves it unbounded.
func WithExtractTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.queue.SetTimeout(d)
	}
}

// NewSession creates an empty session. Call Run to start background extraction.
func NewSession(doc Document, store BlobStore, archiver Archiver, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{
		byID:           make(map[string]int),
		focus:          -1,
		filter:         models.FilterState{SelectedRegion: models.RegionAll},
		doc:            doc,
		store:          store,
		archiver:       archiver,
		publisher:      nopPublisher{},
		log:            logger,
		classifyWindow: DefaultClassifyWindow,
		archiveFolder:  "Selected_Candidates",
		now:            time.Now,
	}
	s.queue = extraction.NewQueue(s.ExtractOne, logger)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run drains the extraction queue until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	s.queue.Run(ctx)
}

// CandidateID derives a candidate id from a file name by dropping its final extension.
func CandidateID(name string) string {
	return finalExtension.ReplaceAllString(name, "")
}

// IsPDF reports whether a declared media type is PDF.
func IsPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/pdf"
}

// Ingest adds every new PDF in files as a pending candidate and queues it for extraction.
// Non-PDF files and ids already present are skipped.
func (s *Session) Ingest(ctx context.Context, files []UploadedFile) IngestResult {
	var res IngestResult

	type accepted struct {
		id   string
		key  string
		file UploadedFile
	}

	s.mu.Lock()
	seen := make(map[string]struct{}, len(files))
	batch := make([]accepted, 0, len(files))
	for _, f := range files {
		if !IsPDF(f.ContentType) {
			res.Skipped++
			continue
		}
		id := CandidateID(f.Name)
		if _, ok := s.byID[id]; ok {
			res.Skipped++
			continue
		}
		if _, ok := seen[id]; ok {
			res.Skipped++
			continue
		}
		seen[id] = struct{}{}
		batch = append(batch, accepted{id: id, key: uuid.NewString(), file: f})
	}
	s.mu.Unlock()

	stored := make([]accepted, 0, len(batch))
	for _, a := range batch {
		if err := s.store.Put(ctx, a.key, a.file.ContentType, a.file.Data); err != nil {
			s.log.Warn("store source file", slog.String("id", a.id), slog.Any("err", err))
			res.Failed = append(res.Failed, a.id)
			continue
		}
		stored = append(stored, a)
	}

	s.mu.Lock()
	queued := make([]string, 0, len(stored))
	var orphaned []string
	for _, a := range stored {
		// A concurrent upload may have registered the same id while we were storing.
		if _, ok := s.byID[a.id]; ok {
			res.Skipped++
			orphaned = append(orphaned, a.key)
			continue
		}
		s.byID[a.id] = len(s.candidates)
		s.candidates = append(s.candidates, &models.Candidate{
			ID:         a.id,
			FileName:   a.file.Name,
			SourceFile: a.key,
			Status:     models.StatusPending,
		})
		queued = append(queued, a.id)
		res.Added = append(res.Added, a.id)
		s.emit(models.ReviewEvent{Type: models.EventIngested, CandidateID: a.id, Status: models.StatusPending})
	}
	if len(queued) > 0 && s.focus == -1 {
		s.selectNextPendingLocked()
	}
	s.mu.Unlock()

	for _, key := range orphaned {
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn("delete orphaned source file", slog.String("key", key), slog.Any("err", err))
		}
	}
	s.queue.Enqueue(queued...)
	s.log.Info("ingested files", slog.Int("added", len(res.Added)), slog.Int("skipped", res.Skipped))
	return res
}

// ExtractOne extracts and classifies one candidate. Failures are absorbed:
// the candidate ends up with empty text in the Others region.
func (s *Session) ExtractOne(ctx context.Context, id string) {
	s.mu.Lock()
	idx, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		s.log.Warn("extract unknown candidate", slog.String("id", id))
		return
	}
	c := s.candidates[idx]
	if c.Indexed() {
		s.mu.Unlock()
		return
	}
	key := c.SourceFile
	s.mu.Unlock()

	ext, err := s.extract(ctx, key)
	if err != nil {
		s.log.Warn("extraction failed", slog.String("id", id), slog.Any("err", err))
		ext = &models.Extraction{Text: "", Region: models.RegionOthers}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.Extraction = ext
	s.emit(models.ReviewEvent{Type: models.EventClassified, CandidateID: id, Region: ext.Region})
	s.log.Debug("candidate indexed", slog.String("id", id), slog.String("region", string(ext.Region)))
}

func (s *Session) extract(ctx context.Context, key string) (*models.Extraction, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load source file: %w", err)
	}
	text, err := s.doc.ExtractText(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return &models.Extraction{
		Text:   strings.ToLower(text),
		Region: region.Classify(region.Truncate(text, s.classifyWindow)),
	}, nil
}

// SetFilters replaces the filter state. rawKeywords is the search box input.
func (s *Session) SetFilters(idSubstring, rawKeywords string, selected models.Region) {
	if selected == "" {
		selected = models.RegionAll
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = models.FilterState{
		IDSubstring:    idSubstring,
		Keywords:       parseKeywords(rawKeywords),
		SelectedRegion: selected,
	}
}

// Filters returns a copy of the current filter state.
func (s *Session) Filters() models.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.filter
	f.Keywords = append([]string(nil), s.filter.Keywords...)
	return f
}

func (s *Session) emit(ev models.ReviewEvent) {
	ev.ID = uuid.NewString()
	ev.Timestamp = s.now().UTC()
	s.publisher.Publish(ev)
}

type nopPublisher struct{}

func (nopPublisher) Publish(models.ReviewEvent) {}
