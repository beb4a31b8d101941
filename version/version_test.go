package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/get-eventually/go-replay/version"
)

func TestVersion(t *testing.T) {
	t.Run("unborn version is negative one", func(t *testing.T) {
		assert.Equal(t, version.Version(-1), version.Unborn)
		assert.True(t, version.Unborn.IsUnborn())
		assert.Equal(t, "-1", version.Unborn.String())
	})

	t.Run("next moves forward by exactly one", func(t *testing.T) {
		v := version.Unborn.Next()
		assert.Equal(t, version.Version(0), v)
		assert.False(t, v.IsUnborn())
		assert.Equal(t, version.Version(1), v.Next())
	})
}
