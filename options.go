package needlekit

import "log/slog"

type Option func(*injectorConfig)

type injectorConfig struct {
	logger    *slog.Logger
	defaults  map[Profile][]*Module
	onResolve []ResolveHook
	onStart   []StartHook
	onStop    []StopHook
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *injectorConfig) {
		cfg.logger = logger
	}
}

// WithProfileDefaults registers modules the injector layers in when it
// resolves for profile. Their bindings only fill keys the effective set
// leaves unbound.
func WithProfileDefaults(profile Profile, modules ...*Module) Option {
	return func(cfg *injectorConfig) {
		cfg.defaults[profile] = append(cfg.defaults[profile], modules...)
	}
}

func WithResolveObserver(hook ResolveHook) Option {
	return func(cfg *injectorConfig) {
		cfg.onResolve = append(cfg.onResolve, hook)
	}
}

func WithStartObserver(hook StartHook) Option {
	return func(cfg *injectorConfig) {
		cfg.onStart = append(cfg.onStart, hook)
	}
}

func WithStopObserver(hook StopHook) Option {
	return func(cfg *injectorConfig) {
		cfg.onStop = append(cfg.onStop, hook)
	}
}
