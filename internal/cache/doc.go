// Package cache persists workspace state between sessions as whole-file JSON
// snapshots: the committed sources ("tables" and "files") and the saved
// queries. Writes go to a temporary file that is renamed over the target.
package cache
