// Package configs provides the embedded configuration template for grist.
//
// The template is embedded at build time with go:embed so it ships inside
// the binary regardless of how grist is installed. 'grist config init'
// writes it out as a starting point.
package configs

import _ "embed"

// ConfigTemplate is the annotated example configuration.
//
//go:embed grist.example.yaml
var ConfigTemplate string
