// Package main provides the student-harvester CLI.
//
// It walks every page of a rendered student table, fills missing scores
// from hometown means and writes the cleaned dataset as CSV.
//
// Usage:
//
//	student-harvester --source http://localhost:5173
//	student-harvester harvest -c harvest.yaml --out ./output
package main

func main() {
	Execute()
}
