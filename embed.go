package folio

import "embed"

// EmbeddedAssets contains the scripts served under /static:
// theme.js and telemetry.js.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
