package jobs_test

import (
	"testing"

	"mrbox/feature/jobs"

	"github.com/stretchr/testify/assert"
)

func TestStreamingRunner_Command(t *testing.T) {
	r := jobs.NewStreamingRunner(jobs.Config{
		HadoopPath:   "/opt/hadoop",
		StreamingJar: "share/hadoop/tools/lib/hadoop-streaming-3.2.1.jar",
	})

	program, args := r.Command(jobs.Job{
		Mapper:  "/box/wc/mapper.py",
		Reducer: "/box/wc/reducer.py",
		Input:   "/r/data/input.txt",
		Output:  "/r/out/wc",
	})

	assert.Equal(t, "/opt/hadoop/bin/hadoop", program)
	assert.Equal(t, []string{
		"jar", "/opt/hadoop/share/hadoop/tools/lib/hadoop-streaming-3.2.1.jar",
		"-files", "/box/wc/mapper.py,/box/wc/reducer.py",
		"-mapper", "mapper.py",
		"-reducer", "reducer.py",
		"-input", "/r/data/input.txt",
		"-output", "/r/out/wc",
	}, args)
}

func TestStreamingRunner_AbsoluteJar(t *testing.T) {
	r := jobs.NewStreamingRunner(jobs.Config{HadoopPath: "/opt/hadoop", StreamingJar: "/jars/streaming.jar"})
	_, args := r.Command(jobs.Job{})
	assert.Equal(t, "/jars/streaming.jar", args[1])
}
