package utils

import (
	"errors"
	"time"
)

const (
	MaxBufferSize         = 1024 * 1024 // 1MiB read granularity
	Unlimited       int64 = 0
	TempFilePrefix        = ".trickle-worker-"
	TempFileSuffix        = ".part"
	ToolUserAgent         = "trickle/1.0"
	DefaultOutputDir      = "./downloads"

	DefaultConnectTimeout = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 5 * time.Second
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrEmptyList         = errors.New("no valid URLs in list")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)
