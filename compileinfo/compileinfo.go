// Package compileinfo reports the module, version and VCS state a binary was
// built from.
package compileinfo

import (
	"fmt"
	"runtime/debug"
)

type CompileInfo struct {
	Package    string `json:"package"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Commit     string `json:"commit"`
	CommitTime string `json:"commit_time"`
	Modified   bool   `json:"modified"`
}

func (c CompileInfo) String() string {
	if c.Package == "" {
		return "build information is unavailable"
	}

	mod := ""
	if c.Modified {
		mod = " (modified)"
	}

	commit := c.Commit
	if commit == "" {
		commit = "unknown"
	}

	return fmt.Sprintf("%s %s built with %s at commit %s%s", c.Package, c.Version, c.GoVersion, commit, mod)
}

// KeyVals flattens the build information for structured loggers.
func (c CompileInfo) KeyVals() []interface{} {
	return []interface{}{
		"package", c.Package,
		"version", c.Version,
		"go", c.GoVersion,
		"commit", c.Commit,
		"commit_time", c.CommitTime,
		"modified", c.Modified,
	}
}

func Get() CompileInfo {
	out := CompileInfo{}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Package = z.Path
	out.Version = z.Main.Version
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}
