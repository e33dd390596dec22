// Package registry provides the central "glue" for the module system.
//
// The Registry stores mappings between the string identifiers used in
// definition files (e.g., "OnRunPrint") and the compiled Go functions that
// implement them. Command actions and cycle hooks both resolve through it.
//
// During application startup the registry is populated by modules and then
// validated against the loaded definitions, so a definition can never name a
// handler that does not exist or feed it a parameter of the wrong type.
package registry
