// Package config provides rule-set management for CubeClash.
//
// The config package handles:
//   - Loading rule sets from JSON or YAML files
//   - Schema checks and rule validation
//   - Default rule-set selection
//   - Rule-set discovery and listing
//
// Rule-set Format:
//
// Rule sets live as <name>.json, <name>.yaml or <name>.yml in the configs
// directory. YAML documents are normalized to JSON and checked against the
// embedded schema.json before engine.ValidateGameConfig runs, so both formats
// are held to the same shape. Each rule set defines:
//   - Board size and starting cubes
//   - Climb, descent and build limits
//   - Allowed move directions and build adjacency
//   - Starting power cards and grapple odds
//   - The win condition
//
// Usage:
//
//	manager, err := config.NewManager("configs", config.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	rules, err := manager.LoadConfig("tower")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// classic.json if present, otherwise the first loadable file, otherwise
//	// the built-in classic rules
//	defaultRules := manager.GetDefault()
package config
