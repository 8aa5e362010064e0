package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_RoutesToEvalSubcommand(t *testing.T) {
	evalArgs = nil
	rootCmd.SetArgs([]string{"eval", "2 * 3"})

	out := captureStdout(t, func() {
		require.NoError(t, Execute())
	})
	assert.Equal(t, "6 : int32\n", out)
}
