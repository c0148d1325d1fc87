// Package config loads forage-play configuration.
//
// # Configuration File
//
// Configuration is read from $FORAGE_PLAY_CONFIG or
// ~/.config/forage-play/config.toml. A missing file yields defaults:
//
//	state_dir = "/home/me/.local/share/forage-play"
//
//	[store]
//	backend = "badger"      # badger, sqlite or postgres
//	cache_size = 64
//
//	[sandbox]
//	runtime = "local"
//	install = "npm install"
//	start = "npm run start"
//
//	[templates]
//	dir = "/srv/starters"
//	[templates.paths]
//	REACT = "react"
//
//	[completion]
//	url = "http://localhost:8080/api/code-completion"
//	timeout = "30s"
//
// # State Layout
//
// Paths derives the store, audit and sandbox directories from state_dir.
//
// # Validation
//
// Load rejects unknown keys and validates backends, runtimes and commands.
// Commands are split with shell quoting rules.
package config
