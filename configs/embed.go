// Package configs embeds the configuration template written by
// `elasticmcp config init`.
//
// The template carries the same values as config.NewConfig, with comments
// naming the environment variable behind each key. Edit config.example.yaml
// and rebuild to change it.
package configs

import _ "embed"

// ConfigTemplate is the commented configuration file.
//
//go:embed config.example.yaml
var ConfigTemplate []byte
