package deployments

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jaredgiosinuff/k8-tools/internal/backup"
	"github.com/jaredgiosinuff/k8-tools/internal/config"
	"github.com/jaredgiosinuff/k8-tools/internal/k8s"
	"github.com/jaredgiosinuff/k8-tools/internal/logger"
	"github.com/jaredgiosinuff/k8-tools/internal/output"
	"github.com/jaredgiosinuff/k8-tools/internal/scaler"
	"github.com/spf13/cobra"
)

// Scale command flags
var (
	scaleDown        bool
	scaleUp          bool
	dryRun           bool
	withBackup       bool
	fromRestore      bool
	skipConfirmation bool
)

func scaleCmd(cliCtx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Scale deployments in a namespace down to zero or back up",
		Long: `Scale every deployment in the namespace down to 0 replicas, or back
up to a prior replica count. With --backup the original counts are
written to original_replicas_<namespace>.json; with --restore that
file is read back and each deployment returns to its recorded count.`,
		Run: func(_ *cobra.Command, _ []string) {
			if err := runScale(cliCtx); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolVar(&scaleDown, "scale-down", false, "Scale deployments down to 0 replicas")
	cmd.Flags().BoolVar(&scaleUp, "scale-up", false, "Scale deployments up to their original replica counts")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Simulate scaling operations without modifying deployments")
	cmd.Flags().BoolVar(&withBackup, "backup", false, "Backup the original replica counts to a file (with --scale-down)")
	cmd.Flags().BoolVar(&fromRestore, "restore", false, "Restore the original replica counts from a file (with --scale-up)")
	cmd.Flags().BoolVar(&skipConfirmation, "yes", false, "Skip confirmation prompt")

	cmd.MarkFlagsOneRequired("scale-down", "scale-up")
	cmd.MarkFlagsMutuallyExclusive("scale-down", "scale-up")
	cmd.MarkFlagsMutuallyExclusive("scale-down", "restore")
	cmd.MarkFlagsMutuallyExclusive("scale-up", "backup")

	return cmd
}

func runScale(cliCtx *config.Context) error {
	namespace := cliCtx.Config.Namespace

	// One run log per namespace, accumulating across runs
	log, err := logger.Open(fmt.Sprintf("namespace-restart-%s.log", namespace), cliCtx.Config.Quiet, cliCtx.Config.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	k8sClient, err := k8s.NewClient(cliCtx.Config.Kubeconfig, cliCtx.Config.Debug)
	if err != nil {
		return fatal(log, fmt.Errorf("failed to create Kubernetes client: %w", err))
	}

	settings, err := config.LoadSettings(k8sClient.Clientset(), namespace, cliCtx.Config.ConfigMapName, cliCtx.Config.ConfigFile)
	if err != nil {
		return fatal(log, fmt.Errorf("failed to load configuration: %w", err))
	}

	run := &scaleRun{
		client:    k8sClient,
		store:     backup.NewStore(""),
		settings:  settings,
		log:       log,
		formatter: output.NewFormatter(cliCtx.Config.OutputFormat),
		confirmIn: os.Stdin,
		namespace: namespace,
	}
	return run.execute(context.Background(), scaleOptions{
		ScaleUp:     scaleUp,
		DryRun:      dryRun,
		Backup:      withBackup,
		Restore:     fromRestore,
		SkipConfirm: skipConfirmation,
	})
}

// fatal appends the final run log line for an error that aborts the run
func fatal(log *logger.Logger, err error) error {
	log.Errorf("An error occurred: %v", err)
	return err
}

// scaleOptions carries the mode flags of one scale invocation
type scaleOptions struct {
	ScaleUp     bool
	DryRun      bool
	Backup      bool
	Restore     bool
	SkipConfirm bool
}

// scaleRun bundles the collaborators of one scale invocation so the
// pass can be driven against fakes in tests
type scaleRun struct {
	client    k8s.Interface
	store     *backup.Store
	settings  *config.Settings
	log       *logger.Logger
	formatter *output.Formatter
	confirmIn io.Reader
	namespace string
}

func (r *scaleRun) execute(ctx context.Context, opts scaleOptions) (err error) {
	// Fatal errors get a final run log line before the process exits
	defer func() {
		if err != nil {
			r.log.Errorf("An error occurred: %v", err)
		}
	}()

	passOpts := scaler.Options{
		Mode:            scaler.ModeDown,
		LabelSelector:   r.settings.Scaler.LabelSelector,
		Exclude:         r.settings.Scaler.Exclude,
		DefaultReplicas: r.settings.Scaler.DefaultReplicas,
	}
	if opts.ScaleUp {
		passOpts.Mode = scaler.ModeUp
	}

	if opts.Restore {
		record, loadErr := r.store.Load(r.namespace)
		if loadErr != nil {
			return loadErr
		}
		r.log.Infof("Restored original replica counts from '%s'", r.store.Path(r.namespace))
		passOpts.Restore = record
	}

	sc := scaler.New(r.client, r.log)

	plan, err := sc.Plan(ctx, r.namespace, passOpts)
	if err != nil {
		return err
	}

	if len(plan.Changes) == 0 {
		r.log.Infof("No deployments found in namespace %s", r.namespace)
		return nil
	}

	if !opts.SkipConfirm && !opts.DryRun {
		printProposedChanges(os.Stderr, plan)
		ok, confirmErr := confirmChanges(r.confirmIn)
		if confirmErr != nil {
			return confirmErr
		}
		if !ok {
			r.log.Infof("Changes canceled by the user")
			return nil
		}
	}

	summary := sc.Apply(ctx, plan, opts.DryRun)

	if opts.Backup {
		if saveErr := r.store.Save(r.namespace, plan.Original); saveErr != nil {
			return saveErr
		}
		r.log.Successf("Backed up original replica counts to '%s'", r.store.Path(r.namespace))
	}

	if summary.Failed() > 0 {
		r.log.Warningf("%d deployment(s) failed to scale, see log for details", summary.Failed())
	}

	if r.formatter.JSON() {
		return r.formatter.PrintJSON(summaryJSON(summary))
	}
	return r.formatter.PrintTable(summaryTable(summary))
}

// printProposedChanges shows the per-deployment replica transitions
// before asking for confirmation
func printProposedChanges(w io.Writer, plan *scaler.Plan) {
	fmt.Fprintln(w, "Proposed changes:")
	for _, change := range plan.Changes {
		if change.Skip {
			fmt.Fprintf(w, "- Deployment: %s (skipped)\n", change.Name)
			continue
		}
		fmt.Fprintf(w, "- Deployment: %s, Replicas: %d -> %d\n", change.Name, change.From, change.To)
	}
}

// confirmChanges prompts the user to confirm the proposed changes
func confirmChanges(r io.Reader) (bool, error) {
	fmt.Fprint(os.Stderr, "Do you want to proceed with the above changes? (y/n): ")
	reader := bufio.NewReader(r)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

func summaryTable(summary *scaler.Summary) output.Table {
	table := output.Table{
		Headers: []string{"NAME", "PREVIOUS", "TARGET", "RESULT"},
	}
	for _, r := range summary.Results {
		table.Rows = append(table.Rows, []string{
			r.Name,
			strconv.Itoa(int(r.Previous)),
			strconv.Itoa(int(r.Target)),
			resultText(r),
		})
	}
	return table
}

// scaleResult is the JSON view of one per-deployment outcome
type scaleResult struct {
	Name     string `json:"name"`
	Previous int32  `json:"previous"`
	Target   int32  `json:"target"`
	Result   string `json:"result"`
}

type scaleSummary struct {
	Namespace string        `json:"namespace"`
	Mode      string        `json:"mode"`
	DryRun    bool          `json:"dryRun"`
	Results   []scaleResult `json:"results"`
}

func summaryJSON(summary *scaler.Summary) scaleSummary {
	out := scaleSummary{
		Namespace: summary.Namespace,
		Mode:      string(summary.Mode),
		DryRun:    summary.DryRun,
	}
	for _, r := range summary.Results {
		out.Results = append(out.Results, scaleResult{
			Name:     r.Name,
			Previous: r.Previous,
			Target:   r.Target,
			Result:   resultText(r),
		})
	}
	return out
}

func resultText(r scaler.Result) string {
	switch {
	case r.Skipped && r.Err != nil:
		return "skipped (no backup record)"
	case r.Skipped:
		return "skipped (excluded)"
	case r.Err != nil:
		return fmt.Sprintf("failed: %v", r.Err)
	case r.DryRun:
		return "simulated"
	default:
		return "scaled"
	}
}
