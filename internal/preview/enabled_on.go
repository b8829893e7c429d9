//go:build preview

package preview

// Enabled is true only in binaries built with -tags preview.
const Enabled = true
