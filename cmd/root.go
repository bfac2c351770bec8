package cmd

import (
	"os"

	"github.com/jaredgiosinuff/k8-tools/cmd/deployments"
	"github.com/jaredgiosinuff/k8-tools/cmd/version"
	"github.com/jaredgiosinuff/k8-tools/internal/config"
	"github.com/spf13/cobra"
)

var (
	cliCtx *config.Context
)

// addClusterFlags adds the flags needed by commands that talk to the
// cluster: connection, namespace scoping, and output control
func addClusterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cliCtx.Config.Namespace, "namespace", "", "Kubernetes namespace to operate on (required)")
	cmd.PersistentFlags().StringVar(&cliCtx.Config.Kubeconfig, "kubeconfig", "", "Path to kubeconfig file (default: ~/.kube/config)")
	cmd.PersistentFlags().BoolVar(&cliCtx.Config.Debug, "debug", false, "Enable debug output")
	cmd.PersistentFlags().BoolVarP(&cliCtx.Config.Quiet, "quiet", "q", false, "Suppress operational messages (only show errors and data output)")
	cmd.PersistentFlags().StringVar(&cliCtx.Config.ConfigMapName, "configmap", "", "ConfigMap name containing scaler configuration (optional)")
	cmd.PersistentFlags().StringVar(&cliCtx.Config.ConfigFile, "config", "", "Local YAML file overriding the scaler configuration (optional)")
	cmd.PersistentFlags().StringVarP(&cliCtx.Config.OutputFormat, "output", "o", "table", "Output format (table, json)")
	_ = cmd.MarkPersistentFlagRequired("namespace")
}

func init() {
	cliCtx = config.NewContext()

	depCmd := deployments.Cmd(cliCtx)
	addClusterFlags(depCmd)
	rootCmd.AddCommand(depCmd)

	rootCmd.AddCommand(version.Cmd())
}

var rootCmd = &cobra.Command{
	Use:   "ns-restart",
	Short: "Scale deployments in a Kubernetes namespace down and back up",
	Long: `A CLI tool for restarting a Kubernetes namespace by scaling its
deployments down to zero replicas and back up to their prior counts,
with optional backup and restore of the original replica counts.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
