// Package appfs embeds the non-Go assets the app needs at runtime:
// database migrations and email templates.
package appfs

import "embed"

//go:embed migrations all:assets
var FS embed.FS
