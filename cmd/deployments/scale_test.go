package deployments

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/jaredgiosinuff/k8-tools/internal/backup"
	"github.com/jaredgiosinuff/k8-tools/internal/config"
	"github.com/jaredgiosinuff/k8-tools/internal/k8s"
	"github.com/jaredgiosinuff/k8-tools/internal/logger"
	"github.com/jaredgiosinuff/k8-tools/internal/output"
	"github.com/jaredgiosinuff/k8-tools/internal/scaler"
)

// newTestRun builds a scaleRun against a fake cluster holding the given
// deployments in ns1, with the backup store and run log rooted in dir
func newTestRun(t *testing.T, dir string, deployments map[string]int32) (*scaleRun, *fake.Clientset) {
	t.Helper()
	fakeClient := fake.NewSimpleClientset()
	for name, replicas := range deployments {
		deploy := &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{
				Name:      name,
				Namespace: "ns1",
			},
			Spec: appsv1.DeploymentSpec{
				Replicas: &replicas,
				Selector: &metav1.LabelSelector{
					MatchLabels: map[string]string{"app": name},
				},
				Template: corev1.PodTemplateSpec{
					ObjectMeta: metav1.ObjectMeta{
						Labels: map[string]string{"app": name},
					},
					Spec: corev1.PodSpec{
						Containers: []corev1.Container{
							{
								Name:  "test-container",
								Image: "test:latest",
							},
						},
					},
				},
			},
		}
		_, err := fakeClient.AppsV1().Deployments("ns1").Create(
			context.Background(), deploy, metav1.CreateOptions{},
		)
		require.NoError(t, err)
	}

	run := &scaleRun{
		client:    k8s.NewWithClientset(fakeClient),
		store:     backup.NewStore(dir),
		settings:  config.DefaultSettings(),
		log:       logger.NewWithWriter(&bytes.Buffer{}, true, false),
		formatter: output.NewFormatterWithWriter(&bytes.Buffer{}, "table"),
		namespace: "ns1",
	}
	return run, fakeClient
}

func replicasOf(t *testing.T, fakeClient *fake.Clientset, name string) int32 {
	t.Helper()
	deploy, err := fakeClient.AppsV1().Deployments("ns1").Get(
		context.Background(), name, metav1.GetOptions{},
	)
	require.NoError(t, err)
	return *deploy.Spec.Replicas
}

func TestScaleRun_RoundTripBackupRestore(t *testing.T) {
	dir := t.TempDir()
	run, fakeClient := newTestRun(t, dir, map[string]int32{"a": 3, "b": 5})

	// Scale down, persisting the original counts to the backup file
	err := run.execute(context.Background(), scaleOptions{Backup: true, SkipConfirm: true})
	require.NoError(t, err)

	assert.Equal(t, int32(0), replicasOf(t, fakeClient, "a"))
	assert.Equal(t, int32(0), replicasOf(t, fakeClient, "b"))

	saved, err := run.store.Load("ns1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"a": 3, "b": 5}, saved)

	// Scale up restoring from the file written by the first pass
	err = run.execute(context.Background(), scaleOptions{ScaleUp: true, Restore: true, SkipConfirm: true})
	require.NoError(t, err)

	assert.Equal(t, int32(3), replicasOf(t, fakeClient, "a"))
	assert.Equal(t, int32(5), replicasOf(t, fakeClient, "b"))
}

func TestScaleRun_RestoreLoadFailureLogsFinalError(t *testing.T) {
	dir := t.TempDir()
	run, _ := newTestRun(t, dir, map[string]int32{"a": 2})

	logPath := filepath.Join(dir, "namespace-restart-ns1.log")
	log, err := logger.Open(logPath, true, false)
	require.NoError(t, err)
	run.log = log

	err = run.execute(context.Background(), scaleOptions{ScaleUp: true, Restore: true, SkipConfirm: true})

	require.Error(t, err)
	assert.ErrorIs(t, err, backup.ErrNotFound)
	require.NoError(t, log.Close())

	data, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "ERROR - An error occurred:")
	assert.Contains(t, string(data), "backup file not found")
}

func TestScaleRun_RestoreNullBackupIsFatal(t *testing.T) {
	dir := t.TempDir()
	run, fakeClient := newTestRun(t, dir, map[string]int32{"a": 2})
	require.NoError(t, os.WriteFile(run.store.Path("ns1"), []byte("null"), 0o644))

	err := run.execute(context.Background(), scaleOptions{ScaleUp: true, Restore: true, SkipConfirm: true})

	require.Error(t, err)
	var parseErr *backup.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, int32(2), replicasOf(t, fakeClient, "a"), "a failed restore must not touch any deployment")
}

func TestConfirmChanges(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{
			name:     "y confirms",
			input:    "y\n",
			expected: true,
		},
		{
			name:     "yes confirms",
			input:    "yes\n",
			expected: true,
		},
		{
			name:     "uppercase Y confirms",
			input:    "Y\n",
			expected: true,
		},
		{
			name:     "n declines",
			input:    "n\n",
			expected: false,
		},
		{
			name:     "anything else declines",
			input:    "maybe\n",
			expected: false,
		},
		{
			name:     "surrounding whitespace ignored",
			input:    "  yes  \n",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := confirmChanges(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestConfirmChanges_ReadFailure(t *testing.T) {
	_, err := confirmChanges(strings.NewReader(""))
	assert.Error(t, err)
}

func TestPrintProposedChanges(t *testing.T) {
	buf := &bytes.Buffer{}
	plan := &scaler.Plan{
		Namespace: "ns1",
		Mode:      scaler.ModeDown,
		Changes: []scaler.Change{
			{Name: "a", From: 3, To: 0},
			{Name: "b", From: 5, To: 0},
			{Name: "infra", From: 2, Skip: true},
		},
	}

	printProposedChanges(buf, plan)

	output := buf.String()
	assert.Contains(t, output, "Proposed changes:")
	assert.Contains(t, output, "- Deployment: a, Replicas: 3 -> 0")
	assert.Contains(t, output, "- Deployment: b, Replicas: 5 -> 0")
	assert.Contains(t, output, "- Deployment: infra (skipped)")
}

func TestSummaryTable(t *testing.T) {
	summary := &scaler.Summary{
		Namespace: "ns1",
		Mode:      scaler.ModeUp,
		Results: []scaler.Result{
			{Name: "a", Previous: 0, Target: 3},
			{Name: "b", Previous: 0, Target: 0, Skipped: true, Err: scaler.ErrMissingRecord},
			{Name: "c", Previous: 0, Target: 1, Err: errors.New("boom")},
		},
	}

	table := summaryTable(summary)

	assert.Equal(t, []string{"NAME", "PREVIOUS", "TARGET", "RESULT"}, table.Headers)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"a", "0", "3", "scaled"}, table.Rows[0])
	assert.Equal(t, []string{"b", "0", "0", "skipped (no backup record)"}, table.Rows[1])
	assert.Equal(t, []string{"c", "0", "1", "failed: boom"}, table.Rows[2])
}

func TestResultText(t *testing.T) {
	tests := []struct {
		name     string
		result   scaler.Result
		expected string
	}{
		{
			name:     "scaled",
			result:   scaler.Result{Name: "a"},
			expected: "scaled",
		},
		{
			name:     "simulated",
			result:   scaler.Result{Name: "a", DryRun: true},
			expected: "simulated",
		},
		{
			name:     "excluded",
			result:   scaler.Result{Name: "a", Skipped: true},
			expected: "skipped (excluded)",
		},
		{
			name:     "missing record",
			result:   scaler.Result{Name: "a", Skipped: true, Err: scaler.ErrMissingRecord},
			expected: "skipped (no backup record)",
		},
		{
			name:     "failed",
			result:   scaler.Result{Name: "a", Err: errors.New("boom")},
			expected: "failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resultText(tt.result))
		})
	}
}

func TestSummaryJSON(t *testing.T) {
	summary := &scaler.Summary{
		Namespace: "ns1",
		Mode:      scaler.ModeDown,
		DryRun:    true,
		Results: []scaler.Result{
			{Name: "a", Previous: 3, Target: 0, DryRun: true},
		},
	}

	out := summaryJSON(summary)

	assert.Equal(t, "ns1", out.Namespace)
	assert.Equal(t, "scale-down", out.Mode)
	assert.True(t, out.DryRun)
	require.Len(t, out.Results, 1)
	assert.Equal(t, scaleResult{Name: "a", Previous: 3, Target: 0, Result: "simulated"}, out.Results[0])
}

func TestScaleCmd_FlagRules(t *testing.T) {
	cmd := scaleCmd(nil)

	for _, flag := range []string{"scale-down", "scale-up", "dry-run", "backup", "restore", "yes"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag --%s must exist", flag)
	}
}
