// Package aaservice holds helpers shared by the account-abstraction
// services.
package aaservice

import (
	"fmt"
	"strings"
)

// PrefixEnvVar returns the env var name for a flag of a service.
func PrefixEnvVar(prefix, suffix string) []string {
	return []string{prefix + "_" + suffix}
}

// FormatVersion builds the version string reported by --version.
func FormatVersion(version string, gitCommit string, gitDate string, meta string) string {
	v := version
	if meta != "" {
		v += "-" + meta
	}
	var parts []string
	if gitCommit != "" {
		if len(gitCommit) > 8 {
			gitCommit = gitCommit[:8]
		}
		parts = append(parts, gitCommit)
	}
	if gitDate != "" {
		parts = append(parts, gitDate)
	}
	if len(parts) > 0 {
		v += fmt.Sprintf(" (%s)", strings.Join(parts, " "))
	}
	return v
}
