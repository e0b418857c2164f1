package version

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionStrings(t *testing.T) {
	require.NotEmpty(t, Short())
	assert.Contains(t, Full(), Short())
	assert.Contains(t, Full(), "commit: "+Commit)
}

func TestAttachCobraVersionCommand(t *testing.T) {
	root := &cobra.Command{Use: "alarm-engine"}
	AttachCobraVersionCommand(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, Full()+"\n", out.String())
}
