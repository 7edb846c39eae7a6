package ritornello

import "errors"

// ErrConfig covers construction-time failures.
// These fire fast at startup, never at first use.
var ErrConfig = errors.New("invalid pattern configuration")

// ErrBadValue covers non-finite phase values handed to a pattern.
// A rejected value leaves no partial state behind.
var ErrBadValue = errors.New("value is not a finite number")
