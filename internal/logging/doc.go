// Package logging configures structured logging for the daemon and CLI.
//
// Log output goes through log/slog with one of two handlers: a pretty
// console handler for interactive use and a JSON handler for files and
// machine consumption. NewFromConfig wires the daemon log file under the
// configured log directory; New builds a logger from explicit options.
//
// Components attach a component attribute via NewComponentLogger, and
// request-scoped values (job id, command, correlation id) flow from
// context through ContextFields and WithContext.
package logging
