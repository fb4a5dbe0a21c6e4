package track

import "errors"

// errInvalidSigma/errInvalidUpdate back spec §7's "Invariant violation
// during update ... refuse the update, log, continue; the track remains in
// its pre-update state" policy — the caller (fusion runner) logs these and
// moves on, never panics.
var (
	errInvalidSigma  = errors.New("track: invalid sensor sigma")
	errInvalidUpdate = errors.New("track: update produced a non-finite value")
)
