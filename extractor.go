package neobyte

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/alanbriolat/neobyte/generic"
	"github.com/alanbriolat/neobyte/scratch"
)

var (
	ErrDuplicateExtractor = errors.New("duplicate extractor name")
	ErrInvalidExtractor   = errors.New("invalid extractor")
	ErrNoExtractors       = errors.New("no extractors registered")
	ErrUnknownExtractor   = errors.New("unknown extractor")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

// An AttemptFunc tries to fetch the requested media into the lease, returning the produced file.
type AttemptFunc = func(ctx context.Context, req *Request, lease *scratch.Lease) (*Result, error)

// An Extractor is one strategy for getting media from a site.
type Extractor struct {
	Name    string
	Attempt AttemptFunc
	// Priority of the extractor, lower (including negative) means attempted earlier.
	Priority int16
}

// An ExtractorRegistry is an ordered chain of Extractor instances, tried in turn until one succeeds.
type ExtractorRegistry struct {
	extractors   []*Extractor
	extractorMap map[string]*Extractor
}

// Add registers an Extractor with the ExtractorRegistry. Extractor.Name and Extractor.Attempt must be set, and
// Extractor.Name must be unique within the ExtractorRegistry.
func (r *ExtractorRegistry) Add(e Extractor) error {
	if r.extractorMap == nil {
		r.extractorMap = make(map[string]*Extractor)
	}
	if e.Name == "" || e.Attempt == nil {
		return ErrInvalidExtractor
	}
	if _, ok := r.extractorMap[e.Name]; ok {
		return ErrDuplicateExtractor
	}
	r.extractorMap[e.Name] = &e
	r.extractors = append(r.extractors, r.extractorMap[e.Name])
	r.sortByPriority()
	return nil
}

// Create is a shortcut for Add(Extractor{Name: ..., Attempt: ...}).
func (r *ExtractorRegistry) Create(name string, f AttemptFunc) error {
	return r.Add(Extractor{
		Name:    name,
		Attempt: f,
	})
}

// CreatePriority is a shortcut for Add(Extractor{Name: ..., Attempt: ..., Priority: ...}).
func (r *ExtractorRegistry) CreatePriority(name string, f AttemptFunc, priority int16) error {
	return r.Add(Extractor{
		Name:     name,
		Attempt:  f,
		Priority: priority,
	})
}

// GetPriority gets the priority of the named Extractor.
func (r *ExtractorRegistry) GetPriority(name string) (int16, error) {
	if e, ok := r.extractorMap[name]; ok {
		return e.Priority, nil
	} else {
		return 0, ErrUnknownExtractor
	}
}

// List returns the names of registered extractors in priority order.
func (r *ExtractorRegistry) List() []string {
	names := make([]string, 0, len(r.extractors))
	for _, e := range r.extractors {
		names = append(names, e.Name)
	}
	return names
}

// Len is the number of registered extractors.
func (r *ExtractorRegistry) Len() int {
	return len(r.extractors)
}

// Resolve attempts each Extractor in priority order with the same request, returning the first success. After each
// failure the lease is reset so the next attempt starts clean. If every extractor fails, the returned error is a
// *multierror.Error holding one classified *Error per attempt, in order, each prefixed with its extractor's name.
func (r *ExtractorRegistry) Resolve(ctx context.Context, req *Request, lease *scratch.Lease) (*Result, error) {
	if len(r.extractors) == 0 {
		return nil, ErrNoExtractors
	}
	logger := Logger(ctx)
	var result error
	for _, e := range r.extractors {
		if err := ctx.Err(); err != nil {
			cancelled := NewError(KindFailed, err)
			cancelled.Extractor = e.Name
			result = multierror.Append(result, cancelled)
			break
		}
		logger.Info("attempting extractor", zap.String("extractor", e.Name), zap.Stringer("request", req))
		start := time.Now()
		res, err := r.attempt(ctx, e, req, lease)
		if err == nil {
			logger.Info("extractor succeeded",
				zap.String("extractor", e.Name),
				zap.String("path", res.Path),
				zap.Duration("elapsed", time.Since(start)),
			)
			return res, nil
		}
		logger.Warn("extractor failed",
			zap.String("extractor", e.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		lease.Reset()
		result = multierror.Append(result, err)
	}
	return nil, result
}

// ResolveWith attempts only the named Extractor.
func (r *ExtractorRegistry) ResolveWith(ctx context.Context, name string, req *Request, lease *scratch.Lease) (*Result, error) {
	if e, ok := r.extractorMap[name]; ok {
		res, err := r.attempt(ctx, e, req, lease)
		if err != nil {
			lease.Reset()
		}
		return res, err
	} else {
		return nil, ErrUnknownExtractor
	}
}

// attempt runs one extractor, turning panics and missing results into classified errors.
func (r *ExtractorRegistry) attempt(ctx context.Context, e *Extractor, req *Request, lease *scratch.Lease) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, &Error{Kind: KindFailed, Extractor: e.Name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	res, err = e.Attempt(ctx, req, lease)
	if err == nil && (res == nil || res.Path == "") {
		err = Errorf(KindNoMedia, "no file produced")
	}
	if err != nil {
		classified := NewError(KindFailed, err)
		classified.Extractor = e.Name
		return nil, classified
	}
	if res.Extractor == "" {
		res.Extractor = e.Name
	}
	return res, nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *ExtractorRegistry) MustAdd(e Extractor) {
	generic.Unwrap_(r.Add(e))
}

// MustCreate wraps Create but panics if there is an error.
func (r *ExtractorRegistry) MustCreate(name string, f AttemptFunc) {
	generic.Unwrap_(r.Create(name, f))
}

// MustCreatePriority wraps CreatePriority but panics if there is an error.
func (r *ExtractorRegistry) MustCreatePriority(name string, f AttemptFunc, priority int16) {
	generic.Unwrap_(r.CreatePriority(name, f, priority))
}

// SetPriority adjust the priority of a named Extractor.
func (r *ExtractorRegistry) SetPriority(name string, priority int16) error {
	if e, ok := r.extractorMap[name]; ok {
		e.Priority = priority
		r.sortByPriority()
		return nil
	} else {
		return ErrUnknownExtractor
	}
}

func (r *ExtractorRegistry) sortByPriority() {
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority < r.extractors[j].Priority
	})
}
