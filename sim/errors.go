package sim

import "errors"

// ErrConfig is the sentinel for configuration errors: missing or invalid
// parameters, unknown station or buffer references. Surfaced by NewEngine
// before any event runs; wrap with fmt.Errorf("%w: ...", ErrConfig).
var ErrConfig = errors.New("configuration error")

// Scheduling invariant violations (an event scheduled in the past, a
// resource released without being held) indicate engine bugs, never bad
// input. They panic rather than return: a run that tripped one has
// corrupted state and must not be silently recovered.
