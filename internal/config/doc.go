// Package config defines the format-agnostic definition model of the
// application, the Loader and Converter interfaces implemented by concrete
// formats, and the run settings read from a TOML file.
//
// The `config.Model` is the single source of truth for building a session.
// Concrete implementations of the interfaces, such as for HCL, are provided
// in separate packages.
package config
