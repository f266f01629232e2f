// Package memory provides in-memory implementations of driven ports.
//
// ConfigStore and TurnStore keep everything in maps guarded by a mutex. They
// back tests and the --ephemeral mode of the CLI, where nothing should
// outlive the process.
package memory
