package process

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEnv_ParsesEntries(t *testing.T) {
	e := NewEnv([]string{"A=1", "B=x=y", "broken", "=nokey"})

	assert.Equal(t, "1", e.Get("A"))
	assert.Equal(t, "x=y", e.Get("B"))
	assert.Equal(t, []string{"A=1", "B=x=y"}, e.Environ())
}

func TestEnv_AddPath(t *testing.T) {
	sep := string(os.PathListSeparator)

	e := NewEnv([]string{"DOTNETCORE_PATH=/existing"})
	e.AddPath("DOTNETCORE_PATH", "/runner")
	assert.Equal(t, "/runner"+sep+"/existing", e.Get("DOTNETCORE_PATH"))

	e.AddPath("NEW_PATH", "/only")
	assert.Equal(t, "/only", e.Get("NEW_PATH"))
}

func TestEnv_Add(t *testing.T) {
	e := NewEnv(nil)
	e.Add(map[string]string{"B": "2", "A": "1"})
	e.Add(nil)

	assert.Equal(t, []string{"A=1", "B=2"}, e.Environ())
}

func TestEnv_Set(t *testing.T) {
	e := NewEnv([]string{"A=1"})
	e.Set("A", "2")
	assert.Equal(t, "2", e.Get("A"))
}
