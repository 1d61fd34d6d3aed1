// Package config provides configuration structures and utilities for prayertimes.
// It defines the scraping options, the district catalog, the optional YAML
// configuration file and the XDG locations used for history storage.
package config
