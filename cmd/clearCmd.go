package cmd

import (
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Tear down shaping on all hosts",
	Long:  "Removes the root disciplines everywhere, cascading to shapers and filters. Always best effort: already-clean hosts are fine.",
	RunE: func(cmd *cobra.Command, args []string) error {
		topoFile, _ := cmd.Flags().GetString("topo")
		uniform, _ := cmd.Flags().GetBool("uniform")

		m, cfg, err := newManager(cmd, topoFile)
		if err != nil {
			return err
		}
		defer m.Close()

		m.Clear(cmd.Context(), uniform || cfg.Uniform != nil)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().StringP("topo", "t", "topo.yaml", "Path to the topology parameter file")
	clearCmd.Flags().Bool("uniform", false, "Also park the ifb companion device")
}
