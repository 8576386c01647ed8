package jobs

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// Job is one map-reduce run over remote input and output paths.
type Job struct {
	ID      string
	Mapper  string
	Reducer string
	Input   string
	Output  string
}

// Runner executes a job and returns whatever the command printed.
type Runner interface {
	Run(ctx context.Context, job Job) ([]byte, error)
}

// StreamingRunner runs jobs through the Hadoop streaming jar.
type StreamingRunner struct {
	cfg Config
}

// NewStreamingRunner creates a runner from cfg.
func NewStreamingRunner(cfg Config) *StreamingRunner {
	return &StreamingRunner{cfg: cfg}
}

// Command returns the program and arguments used for job.
func (r *StreamingRunner) Command(job Job) (string, []string) {
	jar := r.cfg.StreamingJar
	if !filepath.IsAbs(jar) {
		jar = filepath.Join(r.cfg.HadoopPath, jar)
	}
	return filepath.Join(r.cfg.HadoopPath, "bin", "hadoop"), []string{
		"jar", jar,
		"-files", job.Mapper + "," + job.Reducer,
		"-mapper", filepath.Base(job.Mapper),
		"-reducer", filepath.Base(job.Reducer),
		"-input", job.Input,
		"-output", job.Output,
	}
}

// Run implements Runner. The output is the combined stdout and stderr.
func (r *StreamingRunner) Run(ctx context.Context, job Job) ([]byte, error) {
	program, args := r.Command(job)
	out, err := exec.CommandContext(ctx, program, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("failed to run %s: %w", program, err)
	}
	return out, nil
}
