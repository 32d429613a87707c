// Package configs provides the configuration templates that
// `docdex init` scaffolds into a project. Embedding them keeps the
// templates available in every distribution of the binary.
package configs

import _ "embed"

// ProjectConfigTemplate is written to docdex.yaml by `docdex init`.
// It documents every tunable with its default value.
//
//go:embed docdex.example.yaml
var ProjectConfigTemplate string

// RegistryTemplate is written to docsets.toml by `docdex init`. It
// holds one example docset entry and a commented second entry showing
// the full field set.
//
//go:embed docsets.example.toml
var RegistryTemplate string
