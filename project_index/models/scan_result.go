package models

// ScanResult is the outcome of one directory scan.
type ScanResult struct {
	Index     *ProjectIndex
	Warnings  []Warning
	Truncated bool
}
