package deployments

import (
	"github.com/jaredgiosinuff/k8-tools/internal/config"
	"github.com/spf13/cobra"
)

func Cmd(cliCtx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployments",
		Short: "Deployment scaling operations",
	}

	cmd.AddCommand(scaleCmd(cliCtx))
	cmd.AddCommand(listCmd(cliCtx))

	return cmd
}
