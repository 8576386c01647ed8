package verify

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"mrbox/core/catalogue"
	"mrbox/core/checksum"
	"mrbox/core/classify"
	"mrbox/core/metrics"
	"mrbox/core/remote"
	"mrbox/core/workspace"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ErrReadOnly is returned by Fix on a read-only service.
var ErrReadOnly = errors.New("verification service is read-only")

// DefaultConcurrency bounds the objects checked at once.
const DefaultConcurrency = 8

// Status is the outcome of checking one object.
type Status string

const (
	StatusOK            Status = "ok"
	StatusDivergent     Status = "divergent"
	StatusMissingLocal  Status = "missing_local"
	StatusMissingRemote Status = "missing_remote"
	StatusUntracked     Status = "untracked_remote"
)

// Finding is one object that failed the check.
type Finding struct {
	LocalPath      string                  `json:"local_path"`
	RemotePath     string                  `json:"remote_path"`
	Classification classify.Classification `json:"classification"`
	LocalChecksum  *string                 `json:"local_checksum,omitempty"`
	RemoteChecksum *string                 `json:"remote_checksum,omitempty"`
	Status         Status                  `json:"status"`
}

// Report is the result of one sweep.
type Report struct {
	Checked  int           `json:"checked"`
	Findings []Finding     `json:"findings"`
	Built    time.Time     `json:"built"`
	Duration time.Duration `json:"duration"`
}

// Divergent returns the findings whose copies both exist but differ.
func (r *Report) Divergent() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Status == StatusDivergent {
			out = append(out, f)
		}
	}
	return out
}

// Service runs sweeps over a workspace.
type Service struct {
	ws          *workspace.Workspace
	logger      *zap.Logger
	concurrency int
	ttl         time.Duration
	readOnly    bool

	mu     sync.RWMutex
	cached *Report
	sf     singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency sets how many objects are checked at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCacheTTL sets how long Cached reuses a report. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// ReadOnly makes sweeps leave the catalogue untouched. Use it when another
// component owns the catalogue, as the running engine does.
func ReadOnly() Option {
	return func(s *Service) {
		s.readOnly = true
	}
}

// NewService creates a verification service.
func NewService(ws *workspace.Workspace, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		ws:          ws,
		logger:      logger,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep checks every catalogued object and, unless read-only, stores the
// recomputed checksums.
func (s *Service) Sweep(ctx context.Context) (*Report, error) {
	start := time.Now()
	rows, err := s.ws.Catalogue.List(ctx, "")
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		findings []Finding
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range rows {
		row := rows[i]
		g.Go(func() error {
			f, err := s.check(gctx, &row)
			if err != nil {
				return fmt.Errorf("failed to verify %s: %w", row.LocalPath, err)
			}
			if f.Status != StatusOK {
				mu.Lock()
				findings = append(findings, f)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	untracked, err := s.untracked(ctx, rows)
	if err != nil {
		return nil, err
	}
	findings = append(findings, untracked...)

	sort.Slice(findings, func(i, j int) bool { return findings[i].LocalPath < findings[j].LocalPath })
	report := &Report{
		Checked:  len(rows),
		Findings: findings,
		Built:    time.Now(),
		Duration: time.Since(start),
	}
	metrics.SetSweepDivergentObjects(len(report.Divergent()))

	s.logger.Info("Verification finished",
		zap.Int("checked", report.Checked),
		zap.Int("findings", len(report.Findings)),
		zap.Duration("duration", report.Duration),
	)

	s.mu.Lock()
	s.cached = report
	s.mu.Unlock()
	return report, nil
}

func (s *Service) check(ctx context.Context, row *catalogue.Entry) (Finding, error) {
	f := Finding{
		LocalPath:      row.LocalPath,
		RemotePath:     row.RemotePath,
		Classification: row.Classification,
		Status:         StatusOK,
	}

	exists, err := s.ws.Remote.Exists(ctx, row.RemotePath)
	metrics.RecordRemoteOperation("exists", err)
	if err != nil {
		return f, err
	}
	if !exists {
		f.Status = StatusMissingRemote
		return f, nil
	}
	if row.Classification == classify.Directory {
		return f, nil
	}

	remoteSum, err := s.ws.Remote.Checksum(ctx, row.RemotePath, row.Classification)
	metrics.RecordRemoteOperation("checksum", err)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			f.Status = StatusMissingRemote
			return f, nil
		}
		return f, err
	}
	f.RemoteChecksum = remoteSum
	if err := s.store(ctx, s.ws.Catalogue.UpdateRemoteChecksum, row.LocalPath, remoteSum); err != nil {
		return f, err
	}

	if row.Classification != classify.File {
		return f, nil
	}

	localExists, _, err := s.ws.Stat(row.LocalPath)
	if err != nil {
		return f, err
	}
	if !localExists {
		f.Status = StatusMissingLocal
		return f, nil
	}
	localSum, err := checksum.File(s.ws.FS, row.LocalPath)
	if err != nil {
		return f, err
	}
	f.LocalChecksum = &localSum
	if err := s.store(ctx, s.ws.Catalogue.UpdateLocalChecksum, row.LocalPath, &localSum); err != nil {
		return f, err
	}

	if remoteSum == nil || *remoteSum != localSum {
		f.Status = StatusDivergent
	}
	return f, nil
}

func (s *Service) store(ctx context.Context, update func(context.Context, string, *string) error, local string, sum *string) error {
	if s.readOnly {
		return nil
	}
	return update(ctx, local, sum)
}

// untracked lists the remote objects under the remote root that no row tracks.
func (s *Service) untracked(ctx context.Context, rows []catalogue.Entry) ([]Finding, error) {
	tracked := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		tracked[r.RemotePath] = struct{}{}
	}

	entries, err := s.ws.Remote.Walk(ctx, s.ws.RemoteRoot)
	metrics.RecordRemoteOperation("walk", err)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", s.ws.RemoteRoot, err)
	}

	var out []Finding
	add := func(p string, class classify.Classification) {
		if _, ok := tracked[p]; ok {
			return
		}
		local, _ := s.ws.ToLocal(p)
		out = append(out, Finding{LocalPath: local, RemotePath: p, Classification: class, Status: StatusUntracked})
	}
	for _, e := range entries {
		for _, d := range e.Subdirs {
			add(path.Join(e.Dir, d), classify.Directory)
		}
		for _, f := range e.Files {
			add(path.Join(e.Dir, f), classify.File)
		}
	}
	return out, nil
}

// Cached returns the last report while it is younger than the TTL and sweeps
// otherwise. Concurrent callers share one sweep.
func (s *Service) Cached(ctx context.Context) (*Report, error) {
	if r := s.fresh(); r != nil {
		return r, nil
	}

	v, err, _ := s.sf.Do("sweep", func() (interface{}, error) {
		if r := s.fresh(); r != nil {
			return r, nil
		}
		return s.Sweep(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}

func (s *Service) fresh() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cached == nil || s.ttl == 0 || time.Since(s.cached.Built) > s.ttl {
		return nil
	}
	return s.cached
}

// Invalidate drops the cached report.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Fix re-uploads every divergent File from its local copy and returns the
// local paths that were repaired. Other findings are left alone. Fix writes
// to the catalogue and the remote store directly; it is meant for a tree no
// engine is running on.
func (s *Service) Fix(ctx context.Context, findings []Finding) ([]string, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}
	var fixed []string
	for _, f := range findings {
		if f.Status != StatusDivergent || f.Classification != classify.File {
			continue
		}
		s.logger.Info("Re-uploading divergent file",
			zap.String("local", f.LocalPath),
			zap.String("remote", f.RemotePath),
		)
		if err := s.reupload(ctx, f); err != nil {
			return fixed, fmt.Errorf("failed to fix %s: %w", f.LocalPath, err)
		}
		fixed = append(fixed, f.LocalPath)
	}
	if len(fixed) > 0 {
		s.Invalidate()
	}
	return fixed, nil
}

func (s *Service) reupload(ctx context.Context, f Finding) error {
	err := s.ws.Remote.Rm(ctx, f.RemotePath)
	metrics.RecordRemoteOperation("rm", err)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		return err
	}

	err = s.ws.Remote.Put(ctx, f.LocalPath, f.RemotePath)
	metrics.RecordRemoteOperation("put", err)
	if err != nil {
		return err
	}

	sum, err := s.ws.Remote.Checksum(ctx, f.RemotePath, classify.File)
	metrics.RecordRemoteOperation("checksum", err)
	if err != nil {
		return err
	}
	return s.ws.Catalogue.UpdateRemoteChecksum(ctx, f.LocalPath, sum)
}
