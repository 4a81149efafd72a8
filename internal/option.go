package internal

// Option is a functional option for configuring the application.
type Option func(*application)

// application collects what Run needs before wiring the diary service,
// offline cache, and HTTP server together.
type application struct {
	config *Config
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}
