// Package fileformat implements the default text encodings of beamline set
// (.bms) and snapshot (.snp) files.
//
// Both formats are CSV with a block of "#"-prefixed header lines. Snapshot
// values are written one channel per row; array and enum payloads are JSON
// inside their CSV cell.
package fileformat
