// Package scanner discovers candidate source files under the configured
// roots, applies exclusion rules (substring patterns, optional .gitignore,
// size and count caps), and computes a sha256 content hash per file for
// change detection.
package scanner
