// Package domain holds the model types, capability interfaces, and sentinel
// errors shared across the match-monitoring engine. It has no dependencies on
// other internal packages.
package domain
