// FILE: lixenwraith/layerconf/doc.go

// Package layerconf provides layered configuration for Go applications.
// Values come from explicit overrides, command-line flags, environment
// variables, JSON/YAML/TOML/INI files and defaults, merged by a fixed
// precedence.
//
// Features:
//   - Precedence by layer class, with the most recently added file winning among files
//   - Dotted key paths through nested objects and arrays ("servers.0.host")
//   - Lenient typed accessors and struct decoding via mapstructure
//   - Config file discovery by name across search directories
//   - Atomic, locked writes of the merged configuration in any supported format
//   - Live reload with all-or-nothing validation of every watched file
//
// Quick Start:
//
//	type Config struct {
//	    Server struct {
//	        Host string `toml:"host"`
//	        Port int    `toml:"port"`
//	    } `toml:"server"`
//	}
//
//	defaults := Config{}
//	defaults.Server.Host = "localhost"
//	defaults.Server.Port = 8080
//
//	cfg, err := layerconf.Quick(defaults, "MYAPP_", "config.yaml")
//	if err != nil && !errors.Is(err, layerconf.ErrConfigNotFound) {
//	    log.Fatal(err)
//	}
//
//	host, _ := cfg.String("server.host")
//	port, _ := cfg.Int64("server.port")
//
// Precedence (highest to lowest):
//  1. Explicit values (Registry.Set)
//  2. Command-line flags (--server.port=9090)
//  3. Environment variables (MYAPP_SERVER_PORT=9090)
//  4. Configuration files
//  5. Default values (Registry.SetDefault)
//
// Live Reload:
//
// WatchConfig only records that a watched file changed. The next read
// re-parses every watched file; if any fails to parse, the current
// configuration stays in place. Otherwise all files are swapped in together
// and OnConfigChange callbacks run once.
//
// Thread Safety:
// All operations are thread-safe. The registry uses a read-write mutex to
// allow concurrent reads while protecting writes.
package layerconf
