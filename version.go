package arbor

import _ "embed"

// Version is the release of the module.
//
//go:embed VERSION
var Version string
