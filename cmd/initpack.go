package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evpack/core/pack"
)

var initPackMetadata string

var initPackCmd = &cobra.Command{
	Use:   "init-pack <pack-id>",
	Short: "Initialize a factory pack and print its manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		md := pack.DefaultMetadata()
		if initPackMetadata != "" {
			f, err := os.Open(initPackMetadata)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if md, err = pack.MetadataDecoder(initPackMetadata)(f); err != nil {
				return err
			}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pack.Initialize(args[0], md))
	},
}

func init() {
	initPackCmd.Flags().StringVar(&initPackMetadata, "metadata", "", "factory metadata file (JSON or YAML)")
	rootCmd.AddCommand(initPackCmd)
}
