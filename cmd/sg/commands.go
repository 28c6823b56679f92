package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/secgate-io/secgate/internal/audit"
	"github.com/secgate-io/secgate/internal/config"
	"github.com/secgate-io/secgate/internal/engine"
	"github.com/secgate-io/secgate/internal/logging"
	"github.com/secgate-io/secgate/internal/models"
	"github.com/secgate-io/secgate/internal/output"
	"github.com/secgate-io/secgate/internal/policy"
	awspack "github.com/secgate-io/secgate/internal/policypacks/awssecurity"
	k8spack "github.com/secgate-io/secgate/internal/policypacks/kubernetes"
	"github.com/secgate-io/secgate/internal/providers/aws/common"
	"github.com/secgate-io/secgate/internal/providers/aws/posture"
	kube "github.com/secgate-io/secgate/internal/providers/kubernetes"
	"github.com/secgate-io/secgate/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sg",
		Short:        "Security Gate — policy-based compliance gate",
		SilenceUsage: true,
	}
	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newPolicyCmd())
	root.AddCommand(newContextCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newEvaluateCmd() *cobra.Command {
	var (
		policyPath  string
		contextPath string
		action      string
		auditLog    string
		reportFmt   string
		outputPath  string
		verbose     bool
		colored     bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a context against a policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRunEnv(auditLog)
			if err != nil {
				return err
			}
			defer env.close()

			if policyPath == "" {
				policyPath = env.cfg.Policy.Path
			}
			if policyPath == "" {
				return fmt.Errorf("no policy file: pass --policy or set policy.path in %s", config.Path())
			}
			p, err := loadPolicyFile(policyPath, verbose)
			if err != nil {
				return err
			}

			ec, err := models.LoadContext(contextPath)
			if err != nil {
				return err
			}
			if action != "" {
				ec.Action = action
			}

			gate := engine.NewGate(p, engine.NewEvaluator(env.logger), env.store)
			d, err := gate.Evaluate(cmd.Context(), ec)
			if err != nil {
				// The decision is still valid when only the audit append failed.
				fmt.Fprintln(os.Stderr, "warning:", err)
			}

			if outputPath != "" {
				if err := writeReportToFile(outputPath, d); err != nil {
					return err
				}
			}
			if reportFmt == "table" {
				output.RenderDecision(os.Stdout, d, colored)
			} else {
				if err := printJSON(d); err != nil {
					return err
				}
			}

			if code := d.Verdict.ExitCode(); code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&policyPath, "policy", "", "Policy file (YAML or JSON)")
	cmd.Flags().StringVar(&contextPath, "context", "", "Context file (YAML or JSON)")
	cmd.Flags().StringVar(&action, "action", "", "Override the context's action")
	cmd.Flags().StringVar(&auditLog, "audit-log", "", "Append decisions to this JSONL file")
	cmd.Flags().StringVar(&reportFmt, "report", "json", "Output format: json or table")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write the decision as JSON to this file path")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Record all findings, not just matches")
	cmd.Flags().BoolVar(&colored, "color", false, "Colorize severity output")
	_ = cmd.MarkFlagRequired("context")

	cmd.AddCommand(newEvaluateAWSCmd())
	cmd.AddCommand(newEvaluateKubernetesCmd())
	return cmd
}

func newEvaluateAWSCmd() *cobra.Command {
	var (
		profile    string
		region     string
		policyPath string
		auditLog   string
		reportFmt  string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "aws",
		Short: "Collect AWS resource contexts and gate each one",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRunEnv(auditLog)
			if err != nil {
				return err
			}
			defer env.close()

			if profile == "" {
				profile = env.cfg.AWS.Profile
			}
			if region == "" {
				region = env.cfg.AWS.Region
			}

			p := awspack.New()
			if policyPath != "" {
				if p, err = policy.Load(policyPath); err != nil {
					return err
				}
			}

			provider := common.NewDefaultAWSClientProvider()
			contexts, err := collectAWSContexts(cmd.Context(), provider, posture.NewDefaultContextCollector(), profile, region)
			if err != nil {
				return err
			}

			return renderGateRun(cmd.Context(), env, p, contexts, reportFmt, outputPath)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name (default: uses environment / default profile)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: the profile's region)")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Policy file overriding the built-in AWS policy")
	cmd.Flags().StringVar(&auditLog, "audit-log", "", "Append decisions to this JSONL file")
	cmd.Flags().StringVar(&reportFmt, "report", "json", "Output format: json or table")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write all decisions as JSON to this file path")
	return cmd
}

func newEvaluateKubernetesCmd() *cobra.Command {
	var (
		kubeContext string
		namespace   string
		policyPath  string
		auditLog    string
		reportFmt   string
		outputPath  string
	)

	cmd := &cobra.Command{
		Use:   "kubernetes",
		Short: "Collect cluster pod contexts and gate each one",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newRunEnv(auditLog)
			if err != nil {
				return err
			}
			defer env.close()

			p := k8spack.New()
			if policyPath != "" {
				if p, err = policy.Load(policyPath); err != nil {
					return err
				}
			}

			contexts, err := collectKubeContexts(cmd.Context(), kube.NewDefaultKubeClientProvider(), kubeContext, namespace)
			if err != nil {
				return err
			}

			return renderGateRun(cmd.Context(), env, p, contexts, reportFmt, outputPath)
		},
	}

	cmd.Flags().StringVar(&kubeContext, "kube-context", "", "Kubeconfig context (default: current context)")
	cmd.Flags().StringVar(&namespace, "namespace", "", "Limit collection to one namespace")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Policy file overriding the built-in Kubernetes policy")
	cmd.Flags().StringVar(&auditLog, "audit-log", "", "Append decisions to this JSONL file")
	cmd.Flags().StringVar(&reportFmt, "report", "json", "Output format: json or table")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write all decisions as JSON to this file path")
	return cmd
}

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Policy file commands",
	}
	cmd.AddCommand(newPolicyValidateCmd())
	return cmd
}

func newPolicyValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <policy-file>",
		Short: "Validate a policy file without evaluating anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			doc, err := policy.LoadDocument(path)
			if err != nil {
				return err
			}
			if errs := policy.Validate(doc); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(os.Stderr, "  %v\n", e)
				}
				return fmt.Errorf("policy %q: %d validation error(s)", path, len(errs))
			}
			fmt.Printf("policy %q is valid (%d rules)\n", path, len(doc.Rules))
			return nil
		},
	}
	return cmd
}

func newContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Collect and print evaluation contexts without gating",
	}
	cmd.AddCommand(newContextAWSCmd())
	cmd.AddCommand(newContextKubernetesCmd())
	return cmd
}

func newContextAWSCmd() *cobra.Command {
	var (
		profile    string
		region     string
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "aws",
		Short: "Print collected AWS resource contexts as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := common.NewDefaultAWSClientProvider()
			contexts, err := collectAWSContexts(cmd.Context(), provider, posture.NewDefaultContextCollector(), profile, region)
			if err != nil {
				return err
			}
			if outputPath != "" {
				return writeReportToFile(outputPath, contexts)
			}
			return printJSON(contexts)
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name")
	cmd.Flags().StringVar(&region, "region", "", "AWS region")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write contexts to a file instead of stdout")
	return cmd
}

func newContextKubernetesCmd() *cobra.Command {
	var (
		kubeContext string
		namespace   string
		outputPath  string
	)
	cmd := &cobra.Command{
		Use:   "kubernetes",
		Short: "Print collected cluster pod contexts as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			contexts, err := collectKubeContexts(cmd.Context(), kube.NewDefaultKubeClientProvider(), kubeContext, namespace)
			if err != nil {
				return err
			}
			if outputPath != "" {
				return writeReportToFile(outputPath, contexts)
			}
			return printJSON(contexts)
		},
	}
	cmd.Flags().StringVar(&kubeContext, "kube-context", "", "Kubeconfig context")
	cmd.Flags().StringVar(&namespace, "namespace", "", "Limit collection to one namespace")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write contexts to a file instead of stdout")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sg version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// runEnv bundles the pieces every gate-running command needs: the loaded
// configuration, a logger, and the audit store selected by flag or config.
type runEnv struct {
	cfg    *config.Configuration
	logger *zap.Logger
	store  audit.Store
}

func newRunEnv(auditLog string) (*runEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if auditLog == "" {
		auditLog = cfg.Audit.Log
	}
	var store audit.Store = audit.NopStore{}
	if auditLog != "" {
		store = audit.NewFileStore(auditLog)
	}
	return &runEnv{cfg: cfg, logger: logger, store: store}, nil
}

func (e *runEnv) close() {
	_ = e.logger.Sync()
}

// loadPolicyFile loads and compiles a policy document, forcing verbose
// finding capture when requested on the command line.
func loadPolicyFile(path string, verbose bool) (*policy.Policy, error) {
	doc, err := policy.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		doc.Options.Verbose = true
	}
	p, err := policy.Compile(doc)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", path, err)
	}
	return p, nil
}

func collectAWSContexts(ctx context.Context, provider common.AWSClientProvider, collector posture.ContextCollector, profile, region string) ([]*models.EvalContext, error) {
	pc, err := provider.LoadProfile(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	contexts, err := collector.Collect(ctx, pc, provider)
	if err != nil {
		return nil, err
	}
	return contexts, nil
}

func collectKubeContexts(ctx context.Context, provider kube.KubeClientProvider, kubeContext, namespace string) ([]*models.EvalContext, error) {
	clientset, info, err := provider.ClientsetForContext(kubeContext)
	if err != nil {
		return nil, err
	}
	return kube.CollectPodContexts(ctx, clientset, info, namespace)
}

// renderGateRun evaluates every collected context against p, renders the run
// in the requested format, and exits with the worst verdict's code.
func renderGateRun(ctx context.Context, env *runEnv, p *policy.Policy, contexts []*models.EvalContext, reportFmt, outputPath string) error {
	gate := engine.NewGate(p, engine.NewEvaluator(env.logger), env.store)

	decisions := make([]*models.Decision, 0, len(contexts))
	for _, ec := range contexts {
		d, err := gate.Evaluate(ctx, ec)
		if err != nil {
			fmt.Fprintln(os.Stderr, "warning:", err)
		}
		decisions = append(decisions, d)
	}

	if outputPath != "" {
		if err := writeReportToFile(outputPath, decisions); err != nil {
			return err
		}
	}
	if reportFmt == "table" {
		output.RenderRunSummary(os.Stdout, decisions)
	} else {
		if err := printJSON(decisions); err != nil {
			return err
		}
	}

	if code := output.WorstVerdict(decisions).ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReportToFile serialises v as indented JSON and writes it to path,
// creating or overwriting the file. It does not affect stdout output.
func writeReportToFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}
