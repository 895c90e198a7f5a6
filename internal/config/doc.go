// Package config provides configuration parsing for pageactions.
//
// The configuration is stored in pageactions.json or pageactions.yaml in
// the working directory, or in a file named with --config. Every field is
// optional; unset fields take their defaults.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "localhost",
//	    "port": 3000,
//	    "shutdownTimeout": "10s"
//	  },
//	  "live": {"enabled": true, "path": "/live"},
//	  "metrics": {"enabled": true, "path": "/metrics", "namespace": "pageactions"},
//	  "tracing": {"enabled": false, "tracerName": "pageactions"},
//	  "client": {"timeout": "10s", "reload": true},
//	  "log": {"level": "info", "format": "text"}
//	}
//
// The same structure is accepted as YAML.
//
// # Environment
//
// PAGEACTIONS_ADDR overrides server.host and server.port, and
// PAGEACTIONS_LOG_LEVEL overrides log.level. The CLI loads a .env file
// before reading either.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
