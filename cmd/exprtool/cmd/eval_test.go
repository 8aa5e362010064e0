package cmd

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceArg(t *testing.T) {
	v, err := coerceArg("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = coerceArg("3.5")
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	v, err = coerceArg("true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = coerceArg("'hi'")
	require.NoError(t, err)
	assert.Equal(t, "hi", v)

	v, err = coerceArg("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", v)

	_, err = coerceArg("")
	assert.Error(t, err)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = orig

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestRunEval_PrintsResultAndType(t *testing.T) {
	evalArgs = nil
	out := captureStdout(t, func() {
		err := runEval(&cobra.Command{}, []string{"1 + 2"})
		require.NoError(t, err)
	})
	assert.Equal(t, "3 : int32\n", out)
}

func TestRunEval_WithSubstitutionArg(t *testing.T) {
	evalArgs = []string{"41"}
	defer func() { evalArgs = nil }()
	out := captureStdout(t, func() {
		err := runEval(&cobra.Command{}, []string{"@0 + 1"})
		require.NoError(t, err)
	})
	assert.Equal(t, "42 : int64\n", out)
}

func TestRunEval_ParseErrorIsWrapped(t *testing.T) {
	evalArgs = nil
	err := runEval(&cobra.Command{}, []string{"1 +"})
	assert.Error(t, err)
}
