package needlekit

import (
	"time"
)

type ResolveHook func(key Key, duration time.Duration, err error)

type StartHook func(key Key, duration time.Duration, err error)

type StopHook func(key Key, duration time.Duration, err error)
