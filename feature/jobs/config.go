package jobs

// Config holds the settings of the external map-reduce command.
type Config struct {
	// HadoopPath is the local Hadoop installation.
	HadoopPath string `mapstructure:"hadoop_path" default:"/usr/local/hadoop"`
	// StreamingJar is the streaming jar, relative to HadoopPath unless absolute.
	StreamingJar string `mapstructure:"streaming_jar" default:"share/hadoop/tools/lib/hadoop-streaming-3.2.1.jar"`
}
