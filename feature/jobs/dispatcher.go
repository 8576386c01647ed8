package jobs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"mrbox/core/classify"
	"mrbox/core/metrics"
	"mrbox/core/remote"
	"mrbox/core/workspace"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrJobFailed is returned when a valid job could not be run or materialized.
var ErrJobFailed = errors.New("job failed")

// Materialized is one job output child brought into the local tree.
type Materialized struct {
	Local          string                  `json:"local"`
	Remote         string                  `json:"remote"`
	Classification classify.Classification `json:"classification"`
}

// Result describes one dispatched job.
type Result struct {
	JobID        string         `json:"job_id"`
	Descriptor   string         `json:"descriptor"`
	LocalOutput  string         `json:"local_output"`
	RemoteOutput string         `json:"remote_output"`
	Output       string         `json:"output,omitempty"`
	Materialized []Materialized `json:"materialized,omitempty"`
}

// Dispatcher validates descriptors, runs their jobs and pulls the output back.
type Dispatcher struct {
	ws     *workspace.Workspace
	runner Runner
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(ws *workspace.Workspace, runner Runner, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{ws: ws, runner: runner, logger: logger}
}

// Dispatch runs the job described by the descriptor at descriptorPath.
// Validation failures wrap ErrValidation and never reach the runner; run and
// materialization failures wrap ErrJobFailed.
func (d *Dispatcher) Dispatch(ctx context.Context, descriptorPath string) (*Result, error) {
	res := &Result{JobID: uuid.NewString(), Descriptor: descriptorPath}
	l := d.logger.With(zap.String("job_id", res.JobID), zap.String("descriptor", descriptorPath))

	start := time.Now()
	err := d.dispatch(ctx, descriptorPath, res, l)
	if !errors.Is(err, ErrValidation) {
		metrics.RecordJob(time.Since(start), err)
	}
	if err != nil {
		l.Error("Job not completed", zap.Error(err))
		return res, err
	}
	l.Info("Job completed",
		zap.String("output", res.LocalOutput),
		zap.Int("materialized", len(res.Materialized)),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, descriptorPath string, res *Result, l *zap.Logger) error {
	f, err := d.ws.FS.Open(descriptorPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	desc, err := ParseDescriptor(f)
	f.Close()
	if err != nil {
		return err
	}

	mapper := d.ws.Resolve(desc.Mapper)
	reducer := d.ws.Resolve(desc.Reducer)
	input := d.ws.Resolve(desc.Input)
	for _, p := range []string{mapper, reducer, input} {
		exists, _, err := d.ws.Stat(p)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		if !exists {
			return fmt.Errorf("%w: %s does not exist", ErrValidation, p)
		}
	}

	remoteInput, ok, err := d.ws.Catalogue.LookupRemote(ctx, input)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrJobFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: input %s is not synced", ErrJobFailed, input)
	}

	res.LocalOutput = d.ws.Resolve(desc.Output)
	res.RemoteOutput, err = d.ws.ToRemote(res.LocalOutput)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	job := Job{
		ID:      res.JobID,
		Mapper:  mapper,
		Reducer: reducer,
		Input:   remoteInput,
		Output:  res.RemoteOutput,
	}
	l.Info("Issuing map-reduce job", zap.String("input", job.Input), zap.String("output", job.Output))

	out, err := d.runner.Run(ctx, job)
	res.Output = string(out)
	if err != nil {
		return fmt.Errorf("%w: %w: %s", ErrJobFailed, err, out)
	}

	if err := d.materialize(ctx, res, l); err != nil {
		return fmt.Errorf("%w: %w", ErrJobFailed, err)
	}
	return nil
}

// materialize creates the local output directory and brings in each
// immediate remote child: a full copy up to the threshold, a link above it.
func (d *Dispatcher) materialize(ctx context.Context, res *Result, l *zap.Logger) error {
	cat := d.ws.Catalogue

	if err := d.ws.FS.MkdirAll(res.LocalOutput, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", res.LocalOutput, err)
	}
	if err := cat.InsertRemote(ctx, res.LocalOutput, res.RemoteOutput, classify.Directory, nil); err != nil {
		return err
	}

	children, err := d.ws.Remote.Ls(ctx, res.RemoteOutput)
	if err != nil {
		return err
	}

	for _, child := range children {
		m, err := d.materializeChild(ctx, res.LocalOutput, child)
		if err != nil {
			return err
		}
		l.Debug("Materialized job output",
			zap.String("local", m.Local),
			zap.String("remote", m.Remote),
			zap.Stringer("classification", m.Classification),
		)
		metrics.RecordMaterialized(m.Classification.String())
		res.Materialized = append(res.Materialized, m)
	}
	return nil
}

func (d *Dispatcher) materializeChild(ctx context.Context, localDir string, child remote.Info) (Materialized, error) {
	size, err := d.ws.Remote.Size(ctx, child.Path)
	if err != nil {
		return Materialized{}, err
	}

	in := classify.Input{
		LocalPath:  filepath.Join(localDir, path.Base(child.Path)),
		RemoteSize: size,
		Threshold:  d.ws.Threshold,
		RemoteType: classify.File,
	}
	if child.IsDir {
		in.RemoteType = classify.Directory
	}
	m := Materialized{
		Local:          classify.EffectivePath(in),
		Remote:         child.Path,
		Classification: classify.Classify(in),
	}

	switch m.Classification {
	case classify.Link:
		err = d.ws.WriteLink(m.Local, m.Remote)
	case classify.Directory:
		err = d.ws.FS.MkdirAll(m.Local, 0755)
	default:
		err = d.ws.Remote.Get(ctx, m.Remote, m.Local)
	}
	if err != nil {
		return Materialized{}, fmt.Errorf("failed to materialize %s: %w", m.Remote, err)
	}

	sum, err := d.ws.Remote.Checksum(ctx, m.Remote, m.Classification)
	if err != nil {
		return Materialized{}, err
	}
	if err := d.ws.Catalogue.InsertRemote(ctx, m.Local, m.Remote, m.Classification, sum); err != nil {
		return Materialized{}, err
	}
	return m, nil
}
