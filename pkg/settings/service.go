package settings

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/utils/cache"
	"github.com/mpapenbr/iracehud-go/pkg/utils/cache/loadercache"
)

// ChangeListener is called after a document was stored
type ChangeListener func(ctx context.Context, doc *Document)

// Service gives cached access to the stored settings. Overlays without a
// stored document get their defaults, which are persisted on first access.
type Service struct {
	log       *log.Logger
	db        *sql.DB
	cache     cache.Cache[string, Document]
	listeners []ChangeListener
	now       func() time.Time
}

type ServiceOption func(s *Service)

func WithLogger(l *log.Logger) ServiceOption {
	return func(s *Service) {
		s.log = l
	}
}

func WithChangeListener(l ChangeListener) ServiceOption {
	return func(s *Service) {
		s.listeners = append(s.listeners, l)
	}
}

func NewService(db *sql.DB, opts ...ServiceOption) *Service {
	ret := &Service{
		log: log.Default().Named("settings"),
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.cache = loadercache.New(
		loadercache.WithLoader[string, Document](ret.load),
		loadercache.WithExpiration[string, Document](0),
		loadercache.WithLogger[string, Document](ret.log.Named("cache")),
	)
	return ret
}

// Get returns the current document of overlay
func (s *Service) Get(ctx context.Context, overlay string) (*Document, error) {
	if _, err := lookup(overlay); err != nil {
		return nil, err
	}
	return s.cache.Get(ctx, overlay)
}

// Put validates and stores raw as the new document of overlay
func (s *Service) Put(ctx context.Context, overlay string, raw []byte) (doc *Document, err error) {
	ctx, span := startSpan(ctx, "settings.Put", overlay)
	defer func() { endSpan(span, err) }()

	doc, err = NewDocument(overlay, raw)
	if err != nil {
		return nil, err
	}
	if err = Upsert(ctx, s.db, doc, s.now()); err != nil {
		return nil, fmt.Errorf("store %s settings: %w", overlay, err)
	}
	s.cache.Invalidate(ctx, overlay)
	s.log.Info("settings changed",
		log.String("overlay", overlay),
		log.String("digest", doc.Digest),
		log.Int("cached", s.cache.Len()))
	for _, l := range s.listeners {
		l(ctx, doc)
	}
	return doc, nil
}

// Reset drops the stored document, the next Get returns the defaults
func (s *Service) Reset(ctx context.Context, overlay string) (doc *Document, err error) {
	ctx, span := startSpan(ctx, "settings.Reset", overlay)
	defer func() { endSpan(span, err) }()

	if _, err = lookup(overlay); err != nil {
		return nil, err
	}
	if _, err = DeleteByOverlay(ctx, s.db, overlay); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, overlay)
	doc, err = s.Get(ctx, overlay)
	if err != nil {
		return nil, err
	}
	for _, l := range s.listeners {
		l(ctx, doc)
	}
	return doc, nil
}

func startSpan(ctx context.Context, name, overlay string) (context.Context, trace.Span) {
	return otel.Tracer("iracehud/settings").Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("overlay", overlay)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Standings returns the typed standings settings
func (s *Service) Standings(ctx context.Context) (*StandingsSettings, error) {
	doc, err := s.Get(ctx, Standings)
	if err != nil {
		return nil, err
	}
	return ParseStandings(doc.Data)
}

func (s *Service) load(ctx context.Context, overlay string) (*Document, error) {
	stored, err := LoadByOverlay(ctx, s.db, overlay)
	switch {
	case err == nil:
		// documents written by older versions may lack newer keys
		if doc, dErr := NewDocument(overlay, stored.Data); dErr == nil {
			return doc, nil
		} else {
			s.log.Warn("stored settings invalid, using defaults",
				log.String("overlay", overlay), log.ErrorField(dErr))
		}
	case !isNotFound(err):
		return nil, err
	}
	doc, err := DefaultDocument(overlay)
	if err != nil {
		return nil, err
	}
	if err := Upsert(ctx, s.db, doc, s.now()); err != nil {
		return nil, fmt.Errorf("store default %s settings: %w", overlay, err)
	}
	return doc, nil
}
