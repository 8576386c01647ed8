package status

import (
	"context"
	"errors"

	"mrbox/core/catalogue"
	"mrbox/core/classify"
	"mrbox/feature/verify"

	"go.uber.org/zap"
)

// ErrNoRepairer is returned by Repair when nothing can run repairs.
var ErrNoRepairer = errors.New("repairs are not available")

// DivergenceTracker reports the objects last seen with differing checksums.
type DivergenceTracker interface {
	Divergent() []string
}

// Repairer re-uploads a tracked file on behalf of the status API.
type Repairer interface {
	Repair(ctx context.Context, local string) error
}

// Health is the body of the health endpoint.
type Health struct {
	Status    string   `json:"status"`
	Objects   int64    `json:"objects"`
	Divergent []string `json:"divergent"`
}

// RepairResult lists the files queued for re-upload.
type RepairResult struct {
	Queued []string `json:"queued"`
}

// Service answers status queries.
type Service struct {
	cat      *catalogue.Catalogue
	verifier *verify.Service
	tracker  DivergenceTracker
	repairer Repairer
	logger   *zap.Logger
}

// NewService creates a status service. verifier should be read-only when an
// engine owns the catalogue. tracker and repairer may be nil.
func NewService(cat *catalogue.Catalogue, verifier *verify.Service, tracker DivergenceTracker, repairer Repairer, logger *zap.Logger) *Service {
	return &Service{
		cat:      cat,
		verifier: verifier,
		tracker:  tracker,
		repairer: repairer,
		logger:   logger,
	}
}

// Health counts the catalogue and lists the divergent objects.
func (s *Service) Health(ctx context.Context) (*Health, error) {
	n, err := s.cat.Count(ctx)
	if err != nil {
		return nil, err
	}
	h := &Health{Status: "ok", Objects: n, Divergent: []string{}}
	if s.tracker != nil {
		h.Divergent = s.tracker.Divergent()
	}
	return h, nil
}

// Catalogue lists the rows under prefix.
func (s *Service) Catalogue(ctx context.Context, prefix string) ([]catalogue.Entry, error) {
	return s.cat.List(ctx, prefix)
}

// Divergent lists the File rows whose stored checksums differ.
func (s *Service) Divergent(ctx context.Context) ([]catalogue.Entry, error) {
	return s.cat.Divergent(ctx)
}

// Verify returns a verification report, sweeping again when refresh is set or
// the cached one is stale.
func (s *Service) Verify(ctx context.Context, refresh bool) (*verify.Report, error) {
	if refresh {
		s.verifier.Invalidate()
	}
	return s.verifier.Cached(ctx)
}

// Repair queues a re-upload of every divergent file in a fresh report. The
// repairs run later on the engine loop.
func (s *Service) Repair(ctx context.Context) (*RepairResult, error) {
	if s.repairer == nil {
		return nil, ErrNoRepairer
	}
	s.verifier.Invalidate()
	report, err := s.verifier.Cached(ctx)
	if err != nil {
		return nil, err
	}

	res := &RepairResult{Queued: []string{}}
	for _, f := range report.Divergent() {
		if f.Classification != classify.File {
			continue
		}
		if err := s.repairer.Repair(ctx, f.LocalPath); err != nil {
			return res, err
		}
		res.Queued = append(res.Queued, f.LocalPath)
	}
	s.verifier.Invalidate()
	return res, nil
}
