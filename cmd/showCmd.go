package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"Netshape/pkg/config"
	"Netshape/pkg/topo"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the planned bands and rules",
	Long:  "Derives the per-host band assignment, shapers and filters from the configuration without touching any host.",
	RunE: func(cmd *cobra.Command, args []string) error {
		hostsFile, _ := cmd.Flags().GetString("hosts")
		group, _ := cmd.Flags().GetString("group")
		user, _ := cmd.Flags().GetString("user")
		topoFile, _ := cmd.Flags().GetString("topo")

		roster, err := config.LoadRoster(hostsFile, group, user)
		if err != nil {
			return err
		}
		topoCfg, err := config.LoadTopo(topoFile)
		if err != nil {
			return err
		}
		params, err := topoCfg.ParamsFunc()
		if err != nil {
			return err
		}
		desc, err := topo.NewDescriptor(roster.Hosts, params)
		if err != nil {
			return err
		}
		plan, err := desc.Plan()
		if err != nil {
			return err
		}

		for _, h := range desc.Hosts() {
			fmt.Printf("%s (addr %s): %d bands\n", h.Name, h.Addr, plan.NumBands[h.Name])
			for _, s := range plan.Shapers {
				if s.Host != h.Name {
					continue
				}
				fmt.Printf("  band %d: delay %gms jitter %gms rate %ggibit\n",
					s.Band, s.Params.MeanMs, s.Params.JitterMs, s.Params.RateGbit)
			}
			for _, c := range plan.Classifiers {
				if c.Host != h.Name {
					continue
				}
				fmt.Printf("  filter dst %s/32 -> band %d\n", c.DstAddr, c.Band)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringP("topo", "t", "topo.yaml", "Path to the topology parameter file")
}
