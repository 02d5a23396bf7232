// Package appfs embeds the static assets shipped with every binary:
// SQL migrations, email templates, the registration question catalogue and the common passwords list.
package appfs

import "embed"

//go:embed migrations/*.sql all:templates catalog passwords
var FS embed.FS
