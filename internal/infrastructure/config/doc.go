// Package config handles loading and validating Doorwatch configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (the function key, broker passwords, announce key)
//     should be set via DOORWATCH_* environment variables
//   - The config file should have restricted permissions (0600)
//
// The door table itself (doors.json) is loaded separately by the door
// package so that a broken door table degrades to built-in defaults
// instead of failing startup.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
