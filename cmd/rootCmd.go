package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"Netshape/pkg"
	"Netshape/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "netshape",
	Short: "Cluster link shaping",
	Long:  "Configures per-link latency, jitter and bandwidth across a cluster of hosts to emulate asymmetric network topologies.",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("hosts", "H", "hosts.toml", "Path to the TOML hosts roster")
	rootCmd.PersistentFlags().StringP("group", "g", "main", "Hosts group to operate on")
	rootCmd.PersistentFlags().StringP("key", "k", "", "SSH private key file for remote hosts")
	rootCmd.PersistentFlags().StringP("user", "u", "", "Default ssh user for roster entries without one")
	rootCmd.PersistentFlags().Bool("native", false, "Shape local hosts through netlink instead of tc")
	rootCmd.PersistentFlags().Bool("ifb", false, "Carry the uniform rate leg on the ifb companion device")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")
}

// newManager builds the manager shared by the subcommands from the
// persistent flags plus the given topology file.
func newManager(cmd *cobra.Command, topoFile string) (*pkg.Manager, *config.TopoConfig, error) {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		log.SetLevel(log.DebugLevel)
	}

	hostsFile, _ := cmd.Flags().GetString("hosts")
	group, _ := cmd.Flags().GetString("group")
	user, _ := cmd.Flags().GetString("user")
	key, _ := cmd.Flags().GetString("key")
	native, _ := cmd.Flags().GetBool("native")
	ifb, _ := cmd.Flags().GetBool("ifb")

	roster, err := config.LoadRoster(hostsFile, group, user)
	if err != nil {
		return nil, nil, err
	}
	topoCfg, err := config.LoadTopo(topoFile)
	if err != nil {
		return nil, nil, err
	}
	params, err := topoCfg.ParamsFunc()
	if err != nil {
		return nil, nil, err
	}

	m, err := pkg.NewManager(roster.Hosts, params, pkg.Options{
		SSHKeyFile: key,
		Native:     native,
		InvolveIfb: ifb,
	})
	if err != nil {
		return nil, nil, err
	}
	return m, topoCfg, nil
}
