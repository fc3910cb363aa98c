package needlekit

// Key identifies a capability. Keys are unique within an effective binding
// set.
type Key string

func (k Key) String() string {
	return string(k)
}

// Profile selects which profile default modules the injector layers in and
// which extension providers apply.
type Profile string

func (p Profile) String() string {
	return string(p)
}

// Keys bound by the Injector itself. Modules may depend on them but never
// bind them.
const (
	LifecycleKey Key = "needlekit.lifecycle"
	BindingsKey  Key = "needlekit.bindings"
	ProfileKey   Key = "needlekit.profile"
)

func isReserved(k Key) bool {
	switch k {
	case LifecycleKey, BindingsKey, ProfileKey:
		return true
	default:
		return false
	}
}
