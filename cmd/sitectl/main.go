package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/imyashkale/sitebuilder/internal/config"
	"github.com/imyashkale/sitebuilder/internal/database"
	"github.com/imyashkale/sitebuilder/internal/llm"
	"github.com/imyashkale/sitebuilder/internal/lock"
	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
	"github.com/imyashkale/sitebuilder/internal/poll"
	"github.com/imyashkale/sitebuilder/internal/repository"
	"github.com/imyashkale/sitebuilder/internal/services"
	"github.com/imyashkale/sitebuilder/internal/storage"
)

var (
	jsonOutput bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "sitectl",
	Short: "Generate, edit and inspect hosted sites",
	Long: `sitectl runs the site pipeline from the command line.
- generate: extract a brand profile from a text file, generate the site and deploy it.
- edit: apply a change request to an archived site and redeploy it into the same project.
- status: show or wait for a deployment.
- costs: show the estimated model spend on a site.
- rates: print the model rate table used for cost estimates.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logLevel)
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.AddCommand(generateCmd(), editCmd(), statusCmd(), costsCmd(), ratesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	var (
		file string
		opts services.RunOptions
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and deploy a site from a business description",
		RunE: func(cmd *cobra.Command, args []string) error {
			document, err := readDocument(file)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			rates, err := llm.LoadRates(cfg.ModelRatesFile)
			if err != nil {
				return err
			}
			client := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL)
			costs := &tally{ledger: services.NewCostLedger(rates, nil)}

			pipeline := services.NewPipelineService(
				services.NewBrandExtractor(client, cfg.ExtractModel, cfg.ExtractMaxTokens),
				services.NewSiteGenerator(client, cfg.GenerateModel, cfg.GenerateMaxTokens, cfg.ThinkingBudgetTokens),
				newDeployer(cfg),
				services.NewProjectNamer(cfg.ProjectPrefix),
				costs,
				nil,
				nil,
			)

			result, runErr := pipeline.RunPipeline(cmd.Context(), document, opts)
			if result == nil {
				return runErr
			}
			if err := printResult(result, costs.total); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "business description file, - for stdin")
	cmd.Flags().StringVar(&opts.OwnerID, "owner", "", "owning record id for naming and cost attribution")
	cmd.Flags().StringVar(&opts.ExistingProjectID, "project", "", "deploy into an existing project")
	cmd.Flags().BoolVar(&opts.WaitForReady, "wait", false, "wait for the deployment to finish")
	return cmd
}

func editCmd() *cobra.Command {
	var (
		instruction string
		wait        bool
	)
	cmd := &cobra.Command{
		Use:   "edit <site-id>",
		Short: "Apply a change request to a site and redeploy it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(instruction) == "" {
				return errors.New("--instruction is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			sites, closeFn, err := newSiteService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			result, editErr := sites.EditAndRedeploy(cmd.Context(), args[0], instruction, wait)
			if result == nil {
				return editErr
			}
			if err := printResult(result, -1); err != nil {
				return err
			}
			return editErr
		},
	}
	cmd.Flags().StringVarP(&instruction, "instruction", "i", "", "change request in plain language")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the deployment to finish")
	return cmd
}

func statusCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "status <deployment-id>",
		Short: "Show the state of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			deployer := newDeployer(cfg)

			var record *models.DeploymentRecord
			if wait {
				record, err = deployer.WaitUntilTerminal(cmd.Context(), args[0])
			} else {
				record, err = deployer.GetStatus(cmd.Context(), args[0])
			}
			if record == nil {
				return err
			}

			if jsonOutput {
				if printErr := printJSON(record); printErr != nil {
					return printErr
				}
				return err
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Deployment", "Name", "State", "URL"})
			tw.AppendRow(table.Row{record.ID, record.Name, record.ReadyState, record.URL})
			tw.Render()
			return err
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the deployment reaches a terminal state")
	return cmd
}

func costsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "costs <site-id>",
		Short: "Show the estimated model spend on a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			sites, closeFn, err := newSiteService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := sites.Costs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(report)
			}
			printCosts(os.Stdout, report)
			return nil
		},
	}
}

func ratesCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Print the model rate table (USD per 1M tokens)",
		RunE: func(cmd *cobra.Command, args []string) error {
			rates, err := llm.LoadRates(file)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(rates)
			}

			tiers := make([]string, 0, len(rates))
			for tier := range rates {
				tiers = append(tiers, string(tier))
			}
			sort.Strings(tiers)

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Tier", "Input", "Output", "Thinking"})
			for _, tier := range tiers {
				r := rates[llm.ModelTier(tier)]
				tw.AppendRow(table.Row{tier, r.InputPer1M, r.OutputPer1M, r.ThinkingPer1M})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", os.Getenv("MODEL_RATES_FILE"), "YAML rate overrides")
	return cmd
}

func newDeployer(cfg *config.Config) *services.VercelClient {
	return services.NewVercelClient(cfg.VercelAPIURL, cfg.VercelToken, cfg.VercelTeamID, poll.Policy{
		Interval:    cfg.DeployPollInterval,
		MaxAttempts: cfg.DeployPollAttempts,
	})
}

// newSiteService wires the stores an edit needs; the returned func closes them
func newSiteService(ctx context.Context, cfg *config.Config) (*services.SiteService, func(), error) {
	dbConfig := database.NewConfig(cfg)
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		return nil, nil, err
	}
	archive, err := storage.NewS3ArchiveFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	rates, err := llm.LoadRates(cfg.ModelRatesFile)
	if err != nil {
		return nil, nil, err
	}

	redisClient := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	locker := lock.NewRedisLocker(redisClient, cfg.RedeployLockTTL)

	siteRepo := repository.NewSiteRepository(database.NewSiteOperations(dbClient, dbConfig.SitesTable))
	usageRepo := repository.NewUsageRepository(database.NewUsageOperations(dbClient, dbConfig.UsageTable))
	client := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL)
	costs := services.NewCostLedger(rates, usageRepo)
	editor := services.NewSiteEditor(client, cfg.EditModel, cfg.EditMaxTokens, costs)

	sites := services.NewSiteService(nil, editor, newDeployer(cfg), services.NewProjectNamer(cfg.ProjectPrefix), siteRepo, nil, archive, locker, nil, costs)
	return sites, func() { _ = redisClient.Close() }, nil
}

func readDocument(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read business description: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("business description is empty")
	}
	return string(data), nil
}

// printResult renders a pipeline result; a negative cost is omitted
func printResult(result *models.PipelineResult, costUSD float64) error {
	if jsonOutput {
		return printJSON(result)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Deployment", "Project", "Status", "URL"})
	tw.AppendRow(table.Row{result.DeploymentId, result.ProjectId, result.Status, result.URL})
	if costUSD >= 0 {
		tw.AppendFooter(table.Row{"", "", "Est. cost", fmt.Sprintf("$%.4f", costUSD)})
	}
	tw.Render()
	return nil
}

// printCosts renders one row per attributed entity and a total footer
func printCosts(w io.Writer, report *models.SiteCostResponse) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Entity", "ID", "Calls", "Input", "Output", "Est. cost"})
	for _, s := range []models.CostSummary{report.Edits, report.Owner} {
		tw.AppendRow(table.Row{s.EntityType, s.EntityId, s.Calls, s.InputTokens, s.OutputTokens, fmt.Sprintf("$%.4f", s.EstimatedCostUSD)})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", fmt.Sprintf("$%.4f", report.EstimatedCostUSD)})
	tw.Render()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// tally forwards usage to a ledger and keeps a running cost total
type tally struct {
	ledger *services.CostLedger
	total  float64
}

func (t *tally) Record(ctx context.Context, usage models.UsageRecord) {
	t.total += t.ledger.Estimate(usage)
	t.ledger.Record(ctx, usage)
}
