package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault_HasSaneBaseline(t *testing.T) {
	c := Default()
	assert.True(t, c.Preload)
	assert.Equal(t, SyncBlended, c.SyncMode)
	assert.Equal(t, 10000.0, c.StartCash)
}

func TestWithOldSync_SwitchesSyncMode(t *testing.T) {
	c := New(WithOldSync(true))
	assert.Equal(t, SyncOld, c.SyncMode)
	assert.True(t, c.OldSync)
}

func TestFromEnv_OverridesDefaults(t *testing.T) {
	t.Setenv("ENGINE_START_CASH", "2500")
	t.Setenv("ENGINE_OLDSYNC", "true")
	os.Unsetenv("ENGINE_TZ")

	c := FromEnv()
	assert.Equal(t, 2500.0, c.StartCash)
	assert.Equal(t, SyncOld, c.SyncMode)
}
