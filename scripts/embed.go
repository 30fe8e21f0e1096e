// Package scripts embeds the Risor check scripts shipped with devana.
package scripts

import "embed"

// FS holds the built-in checks under checks/<name>.risor.
//
//go:embed checks/*.risor
var FS embed.FS

// CheckPath returns the path of a built-in check inside FS.
func CheckPath(name string) string {
	return "checks/" + name + ".risor"
}
