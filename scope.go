package needlekit

import "github.com/danpasecinic/needlekit/internal/scope"

type Scope = scope.Scope

const (
	// Singleton bindings are constructed at most once per resolve call and
	// shared by every consumer within it.
	Singleton = scope.Singleton
	// PerCall bindings are constructed on every resolution.
	PerCall = scope.PerCall
)
