package recordwire

import (
	"time"
)

// options holds the configuration for a connection.
type options struct {
	logger Logger

	// onTruncate is called when a record's text did not fit the frame.
	onTruncate func(Record)

	readTimeout  time.Duration // per-receive deadline, 0 disables
	writeTimeout time.Duration // per-send deadline, 0 disables
	dialTimeout  time.Duration // connect deadline used by Dial
}

// Option is a function that configures connection options.
type Option func(*options)

// ReadTimeoutOption returns an Option that bounds each ReceiveRecord call.
// Zero disables the deadline.
func ReadTimeoutOption(d time.Duration) Option {
	return func(o *options) {
		o.readTimeout = d
	}
}

// WriteTimeoutOption returns an Option that bounds each SendRecord call.
// Zero disables the deadline.
func WriteTimeoutOption(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

// DialTimeoutOption returns an Option that bounds connection setup in Dial.
func DialTimeoutOption(d time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = d
	}
}

// OnTruncateOption returns an Option that sets a callback invoked with the
// original record whenever SendRecord had to cut its text.
func OnTruncateOption(cb func(Record)) Option {
	return func(o *options) {
		o.onTruncate = cb
	}
}

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opt []Option) options {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)
	return opts
}

// checkOptions sets default values for connection options.
func checkOptions(opts *options) {
	if opts.readTimeout < 0 {
		opts.readTimeout = 0
	}

	if opts.writeTimeout < 0 {
		opts.writeTimeout = 0
	}

	if opts.dialTimeout <= 0 {
		opts.dialTimeout = defaultDialTimeout
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}
}
