package pio

import "github.com/rs/zerolog"

// MinChunkWords is the smallest default copy chunk used by the append engine.
const MinChunkWords = 1 << 20

// Option configures Open.
type Option func(*fileOptions)

type fileOptions struct {
	logger zerolog.Logger
}

func defaultFileOptions() *fileOptions {
	return &fileOptions{
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the logger used by the file and its append calls.
func WithLogger(l zerolog.Logger) Option {
	return func(o *fileOptions) {
		o.logger = l
	}
}

// AppendOption configures AppendCellArray.
type AppendOption func(*appendOptions)

type appendOptions struct {
	template   string
	chunkWords int64
	project    bool
}

func defaultAppendOptions() *appendOptions {
	return &appendOptions{
		project: true,
	}
}

// WithTemplate selects the trailer record, by key, that new records are
// cloned from. Its length must equal the cell count.
func WithTemplate(key string) AppendOption {
	return func(o *appendOptions) {
		o.template = key
	}
}

// WithChunkWords sets the number of words copied per read while streaming
// the data region. Values <= 0 keep the default of max(cells, MinChunkWords).
func WithChunkWords(n int64) AppendOption {
	return func(o *appendOptions) {
		if n > 0 {
			o.chunkWords = n
		}
	}
}

// WithoutProject skips writing the project descriptor next to the output.
func WithoutProject() AppendOption {
	return func(o *appendOptions) {
		o.project = false
	}
}
