// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Explicit maps (command-line flags)
//  2. Environment variables (SECURESTORE_ prefix)
//  3. The YAML configuration file
//  4. Defaults already present in the target struct
//
// Environment variables use a double underscore between levels so that
// keys may keep single underscores:
// SECURESTORE_SECURITY__DEVICE_SECRET_FILE maps to security.device_secret_file.
//
// Watcher reports changes to the configuration file for hot reload.
package confloader
