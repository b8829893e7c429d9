//go:build !preview

package preview

// Enabled is false in regular builds.
const Enabled = false
