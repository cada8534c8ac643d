package derive

import "errors"

// Error taxonomy for the derivation pipeline (spec.md §7), mirrored on the
// teacher's derive.ErrCritical/ErrReset/ErrTemporary sentinel-wrapping
// pattern: component errors are wrapped with fmt.Errorf("...: %w", sentinel)
// and classified at loop boundaries with errors.Is.
var (
	// ErrNotReady means the next L1 block does not yet exist. The importer
	// loop yields and retries after an interval; not logged as an error.
	ErrNotReady = errors.New("not ready")

	// ErrTemporary means a transport error, rate limit, or timeout that was
	// retried internally and still failed after the backoff cap.
	ErrTemporary = errors.New("temporary error")

	// ErrReorg means a parent-hash mismatch was detected against the cached
	// L1 chain. Triggers a full re-anchor via the Startup Anchor.
	ErrReorg = errors.New("reorg detected")

	// ErrProtocolFatal means the engine returned a non-VALID status, a
	// missing payload ID, an empty payload, a latestValidHash mismatch, or
	// the attributes calldata failed to encode. Bubbles to the caller with
	// full context; the caller may re-initialize.
	ErrProtocolFatal = errors.New("protocol fatal error")

	// ErrConfigurationFatal means a required configuration value is missing
	// or invalid, startup anchoring was exhausted, or more than
	// rollupcfg.MaxFillerBlocks fillers would be required in one step. The
	// process should exit.
	ErrConfigurationFatal = errors.New("configuration fatal error")
)

// IsNotReady reports whether err (or any error it wraps) is ErrNotReady.
func IsNotReady(err error) bool { return errors.Is(err, ErrNotReady) }

// IsTemporary reports whether err (or any error it wraps) is ErrTemporary.
func IsTemporary(err error) bool { return errors.Is(err, ErrTemporary) }

// IsReorg reports whether err (or any error it wraps) is ErrReorg.
func IsReorg(err error) bool { return errors.Is(err, ErrReorg) }

// IsProtocolFatal reports whether err (or any error it wraps) is ErrProtocolFatal.
func IsProtocolFatal(err error) bool { return errors.Is(err, ErrProtocolFatal) }

// IsConfigurationFatal reports whether err (or any error it wraps) is ErrConfigurationFatal.
func IsConfigurationFatal(err error) bool { return errors.Is(err, ErrConfigurationFatal) }
