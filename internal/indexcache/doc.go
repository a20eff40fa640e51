// Package indexcache tracks per-file content hashes and owned unit ids
// for incremental change detection, persisted as a versioned JSON file.
//
// A missing, corrupt or version-mismatched file loads as an empty cache,
// which simply forces a full reprocess on the next pass.
package indexcache
