package verify

// Config holds the verification settings.
type Config struct {
	// Concurrency bounds the objects checked at once.
	Concurrency int `mapstructure:"concurrency" default:"8"`
}
