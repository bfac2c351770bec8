package deployments

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jaredgiosinuff/k8-tools/internal/config"
	"github.com/jaredgiosinuff/k8-tools/internal/k8s"
	"github.com/jaredgiosinuff/k8-tools/internal/output"
	"github.com/spf13/cobra"
	appsv1 "k8s.io/api/apps/v1"
)

func listCmd(cliCtx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List deployments and their replica counts",
		Run: func(_ *cobra.Command, _ []string) {
			if err := runList(cliCtx); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
		},
	}
}

func runList(cliCtx *config.Context) error {
	k8sClient, err := k8s.NewClient(cliCtx.Config.Kubeconfig, cliCtx.Config.Debug)
	if err != nil {
		return fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	settings, err := config.LoadSettings(k8sClient.Clientset(), cliCtx.Config.Namespace, cliCtx.Config.ConfigMapName, cliCtx.Config.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	deployments, err := k8sClient.ListDeployments(context.Background(), cliCtx.Config.Namespace, settings.Scaler.LabelSelector)
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(cliCtx.Config.OutputFormat)
	return formatter.PrintTable(deploymentsTable(deployments))
}

func deploymentsTable(deployments []appsv1.Deployment) output.Table {
	table := output.Table{
		Headers: []string{"NAME", "REPLICAS", "READY"},
	}
	for _, d := range deployments {
		replicas := int32(0)
		if d.Spec.Replicas != nil {
			replicas = *d.Spec.Replicas
		}
		table.Rows = append(table.Rows, []string{
			d.Name,
			strconv.Itoa(int(replicas)),
			strconv.Itoa(int(d.Status.ReadyReplicas)),
		})
	}
	return table
}
