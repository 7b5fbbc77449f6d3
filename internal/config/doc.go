// Package config handles configuration loading and validation from
// files and environment variables. It provides type-safe access to the
// queue, polling, cache, and process settings while keeping
// configuration details separate from the messaging logic.
package config
