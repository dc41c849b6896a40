package vfat

import (
	"github.com/sirupsen/logrus"
)

// DefaultCacheSize is the number of sectors the sector cache holds by default.
const DefaultCacheSize = 512

type options struct {
	cacheSize    int
	maxChainHops uint32
	logger       logrus.FieldLogger
}

// Option configures Mount.
type Option func(*options)

// WithCacheSize sets the number of sectors which are kept in the sector cache.
func WithCacheSize(sectors int) Option {
	return func(o *options) {
		o.cacheSize = sectors
	}
}

// WithMaxChainHops limits the length of every cluster chain walk.
// A walk which needs more hops fails with ErrCorruptFilesystem.
// 0 uses the number of entries in the FAT, which no valid chain can exceed.
func WithMaxChainHops(hops uint32) Option {
	return func(o *options) {
		o.maxChainHops = hops
	}
}

// WithLogger sets the logger. The filesystem logs only on debug level.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{
		cacheSize: DefaultCacheSize,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
