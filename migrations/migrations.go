// Package migrations embeds the SQL schema so the server and test containers
// can apply it without shipping files next to the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
