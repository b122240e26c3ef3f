package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe_Chrome(t *testing.T) {
	info := Describe("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	assert.Equal(t, "chrome/120", info.Browser)
	assert.Equal(t, "windows 10", info.OS)
	assert.Equal(t, "desktop", info.Platform)
}

func TestDescribe_Mobile(t *testing.T) {
	info := Describe("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")

	assert.Equal(t, "mobile", info.Platform)
}

func TestDescribe_EmptyAgent(t *testing.T) {
	info := Describe("")

	assert.Equal(t, "unknown", info.Browser)
	assert.Equal(t, "unknown", info.OS)
	assert.Equal(t, "unknown unknown desktop", info.String())
}
