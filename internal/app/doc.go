// Package app contains the core application logic: loading the parameter
// document, resolving its self-references, discovering project files,
// rendering comment markers and applying the resulting changes. It is
// decoupled from any specific entrypoint like a CLI.
package app
