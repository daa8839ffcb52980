package wmo

// TableVersionPolicy controls what happens when a message's declared
// master table version is not available to the TableSet.
type TableVersionPolicy int

const (
	// TableVersionNone performs no override: the TableSet is asked for
	// exactly the declared version and may fail with NotFound.
	TableVersionNone TableVersionPolicy = iota
	// TableVersionNewest asks the TableSet to substitute its newest
	// available master table version.
	TableVersionNewest
	// TableVersionFixed pins a specific version regardless of what the
	// message declares.
	TableVersionFixed
)

// Logger receives recoverable warnings, e.g. a reserved associated-field
// significance code (spec section 7). Unsupported C modifiers are not
// skipped with a warning: DDSInterpreter fails on them with an error.
// A nil Logger is equivalent to a Logger whose Warnf is a no-op.
type Logger interface {
	Warnf(format string, args ...interface{})
}

type discardLogger struct{}

func (discardLogger) Warnf(string, ...interface{}) {}

// Options configures a single decode or encode run. It is always passed by
// value, never stored in package-level state (spec section 9, "thread-local
// options").
type Options struct {
	// DecodeAddsUndefAttrs materializes attributes even when their value
	// decodes as missing.
	DecodeAddsUndefAttrs bool

	// SilentDomainErrors, if true, causes an out-of-domain Set to leave the
	// variable Unset instead of returning a Domain error.
	SilentDomainErrors bool

	// ClampDomainErrors, if true, causes an out-of-domain Set to clamp to
	// the nearest bound instead of returning a Domain error. Takes
	// precedence over SilentDomainErrors when both are set.
	ClampDomainErrors bool

	// MasterTableVersionPolicy selects how to resolve an unavailable
	// declared master table version.
	MasterTableVersionPolicy TableVersionPolicy
	// FixedMasterTableVersion is used when MasterTableVersionPolicy is
	// TableVersionFixed.
	FixedMasterTableVersion int

	// Logger receives recoverable warnings. Defaults to a no-op.
	Logger Logger
}

func (o Options) logger() Logger {
	if o.Logger == nil {
		return discardLogger{}
	}
	return o.Logger
}

// Warnf routes a recoverable-condition message to opts.Logger, or discards
// it if none was configured.
func Warnf(opts Options, format string, args ...interface{}) {
	opts.logger().Warnf(format, args...)
}

// SetIntLenient applies SilentDomainErrors/ClampDomainErrors semantics on
// top of Var.SetInt: the three decoder/encoder handlers call this instead
// of Var.SetInt directly so the same leniency rules govern both wire
// formats uniformly.
func SetIntLenient(v *Var, val int32, opts Options) error {
	if err := v.SetInt(val); err != nil {
		if _, ok := err.(*Error); !ok || err.(*Error).Kind != Domain {
			return err
		}
		switch {
		case opts.ClampDomainErrors:
			clamped := val
			if clamped < v.Info.IMin {
				clamped = v.Info.IMin
			}
			if clamped > v.Info.IMax {
				clamped = v.Info.IMax
			}
			return v.SetInt(clamped)
		case opts.SilentDomainErrors:
			v.Unset()
			return nil
		default:
			return err
		}
	}
	return nil
}

// SetDoubleLenient is the Decimal analogue of SetIntLenient.
func SetDoubleLenient(v *Var, val float64, opts Options) error {
	if err := v.SetDouble(val); err != nil {
		if _, ok := err.(*Error); !ok || err.(*Error).Kind != Domain {
			return err
		}
		switch {
		case opts.ClampDomainErrors:
			clamped := val
			if clamped < v.Info.DMin {
				clamped = v.Info.DMin
			}
			if clamped > v.Info.DMax {
				clamped = v.Info.DMax
			}
			return v.SetDouble(clamped)
		case opts.SilentDomainErrors:
			v.Unset()
			return nil
		default:
			return err
		}
	}
	return nil
}
