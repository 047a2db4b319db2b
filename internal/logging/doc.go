// Package logging provides a unified logging setup for the deflection
// analysis pipeline. It configures a zerolog console logger so components
// log structured events (arch, method, stage) consistently while stdout
// remains reserved for the summary tables.
package logging
