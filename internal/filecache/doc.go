// Package filecache persists file stat snapshots and dependency edges so a
// build can decide which sources changed since the previous run.
//
// A path is changed when it has no record, when its size, modification time
// or change time differ from the record, or (transitively) when any path it
// depends on changed. Records are stored as YAML.
package filecache
