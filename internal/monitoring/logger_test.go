package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	Logf("merged %d cluster pairs", 3)
	assert.Equal(t, []string{"merged 3 cluster pairs"}, got)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted") })
	assert.Len(t, got, 1)
}

func TestDebugfSilentByDefault(t *testing.T) {
	original := Debugf
	defer func() { Debugf = original }()

	assert.NotPanics(t, func() { Debugf("pass %d", 1) })

	var n int
	SetDebugLogger(func(string, ...interface{}) { n++ })
	Debugf("pass %d", 2)
	SetDebugLogger(nil)
	Debugf("pass %d", 3)
	assert.Equal(t, 1, n)
}

func TestLogfDefault(t *testing.T) {
	assert.NotNil(t, Logf)
	assert.NotNil(t, Debugf)
}
