// Package output renders securestore-cli results as tables, JSON or YAML,
// and prints colored status lines.
package output
