package cmd

import (
	"github.com/spf13/cobra"

	"Netshape/api"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the topology to all hosts",
	Long:  "Builds the prio roots across the cluster, then attaches per-peer shapers and destination filters.",
	RunE: func(cmd *cobra.Command, args []string) error {
		topoFile, _ := cmd.Flags().GetString("topo")
		uniform, _ := cmd.Flags().GetBool("uniform")

		m, cfg, err := newManager(cmd, topoFile)
		if err != nil {
			return err
		}
		defer m.Close()

		if uniform || cfg.Uniform != nil {
			if cfg.Uniform == nil {
				return api.Configf("uniform mode needs a uniform section in the topology file")
			}
			return m.ApplyUniform(cmd.Context(), *cfg.Uniform)
		}
		return m.Apply(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringP("topo", "t", "topo.yaml", "Path to the topology parameter file")
	applyCmd.Flags().Bool("uniform", false, "Force uniform root netem mode")
}
