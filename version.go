package inkwell

import _ "embed"

// Version is the release of the library and the inkwell binary.
//
//go:embed VERSION
var Version string
