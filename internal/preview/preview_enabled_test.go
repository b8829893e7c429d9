//go:build preview

package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelsHonoredInPreviewBuilds(t *testing.T) {
	assert.True(t, Enabled)
	assert.True(t, IsCredential("preview_admin"))
	assert.True(t, IsCredential("demo_1"))
	assert.False(t, IsCredential("eyJhbGciOi"))
	assert.False(t, IsCredential(""))
}
