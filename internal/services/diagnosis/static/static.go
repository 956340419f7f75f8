package static

import "embed"

// FS exposes diagnosis static assets for HTTP serving.
//
//go:embed *.css
var FS embed.FS
