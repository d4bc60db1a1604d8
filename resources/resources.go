package resources

import "embed"

//go:embed migrations rules.yml
var FS embed.FS
