package scope

type Scope int

const (
	Singleton Scope = iota
	PerCall
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case PerCall:
		return "per-call"
	default:
		return "unknown"
	}
}
