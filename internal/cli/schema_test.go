package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot() *cobra.Command {
	root := &cobra.Command{Use: "sopbot", Short: "root"}
	AddHelpJSONFlag(root)

	index := &cobra.Command{Use: "index [folder]", Short: "Build the index", Run: func(*cobra.Command, []string) {}}
	index.Flags().Bool("rebuild", false, "Rebuild")
	index.Flags().StringP("folder", "f", "", "Folder")
	_ = index.MarkFlagRequired("folder")

	hidden := &cobra.Command{Use: "internal", Hidden: true, Run: func(*cobra.Command, []string) {}}

	root.AddCommand(index, hidden)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(testRoot())

	assert.Equal(t, "sopbot", schema.Name)
	require.Len(t, schema.Subcommands, 1)

	index := schema.Subcommands[0]
	assert.Equal(t, "index", index.Name)
	assert.Equal(t, "index [folder]", index.Use)

	flags := map[string]FlagSchema{}
	for _, f := range index.Flags {
		flags[f.Name] = f
	}
	require.Contains(t, flags, "folder")
	assert.True(t, flags["folder"].Required)
	assert.Equal(t, "f", flags["folder"].Shorthand)
	assert.False(t, flags["rebuild"].Required)
	assert.Equal(t, "bool", flags["rebuild"].Type)
	assert.NotContains(t, flags, "help-json")
}

func TestHelpJSONTarget(t *testing.T) {
	root := testRoot()

	tests := []struct {
		name   string
		args   []string
		want   string
		wantOK bool
	}{
		{name: "absent", args: []string{"index", "/srv/sops"}},
		{name: "root", args: []string{"--help-json"}, want: "sopbot", wantOK: true},
		{name: "subcommand", args: []string{"index", "--help-json"}, want: "index", wantOK: true},
		{name: "unknown falls back to parent", args: []string{"nope", "--help-json"}, want: "sopbot", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := HelpJSONTarget(root, tt.args)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, cmd.Name())
			}
		})
	}
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, testRoot()))

	var got CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "root", got.Description)
}
