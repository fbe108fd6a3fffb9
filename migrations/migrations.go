// Package migrations embeds the ordered NNN_description.sql schema files.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
