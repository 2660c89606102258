// Package config loads extstore configuration.
//
// The configuration lives in extstore.yaml (or extstore.yml, or
// extstore.json) next to where the binary is run. Missing fields take
// their defaults from New.
//
// # Configuration File Structure
//
//	name: people
//	server:
//	  host: localhost
//	  port: 3000
//	  shutdownTimeout: 10s
//	session:
//	  maxEventQueue: 256
//	  maxMessageSize: 65536
//	  maxSessions: 0
//	log:
//	  level: info
//	  format: text
//	metrics:
//	  enabled: true
//	  path: /metrics
//	tracing:
//	  enabled: false
//	initial:
//	  first: Ada
//	  last: Lovelace
//	  age: 36
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
