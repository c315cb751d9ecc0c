package render

import "errors"

// ErrClosed is returned when a closed [Converter] is used.
var ErrClosed = errors.New("render: converter is closed")
