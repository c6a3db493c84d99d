// Package audit implements the one-shot audit command: run a single
// item's audit synchronously and print the verdict.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/ethics"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/llm"
)

// Command creates the audit command.
func Command(settings *conf.Settings) *cobra.Command {
	var testConnection bool

	cmd := &cobra.Command{
		Use:   "audit [item-id]",
		Short: "Audit a single item synchronously",
		Long: "Run the ethics audit for one stored item, bypassing the job queue, " +
			"and print the verdict as JSON. With --test-connection, only verify " +
			"that the LLM endpoint is reachable.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if testConnection {
				return runTestConnection(settings)
			}
			if len(args) != 1 {
				return fmt.Errorf("item ID is required")
			}
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid item ID %q", args[0])
			}
			return runOneShotAudit(settings, uint(id))
		},
	}

	cmd.Flags().BoolVar(&testConnection, "test-connection", false, "Verify LLM endpoint reachability and exit")
	return cmd
}

func runTestConnection(settings *conf.Settings) error {
	client := llm.New(settings)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(settings.LLM.Timeout)*time.Second)
	defer cancel()

	if err := client.TestConnection(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	fmt.Println("LLM endpoint reachable")
	return nil
}

func runOneShotAudit(settings *conf.Settings, itemID uint) error {
	store := datastore.New(settings)
	if store == nil {
		return fmt.Errorf("no database output enabled in configuration")
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer store.Close() //nolint:errcheck // read-mostly one-shot command

	item, err := store.GetItem(itemID)
	if err != nil {
		return err
	}

	client := llm.New(settings)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(settings.Queue.Timeout)*time.Second)
	defer cancel()

	if err := store.MarkItemProcessing(item.ID); err != nil {
		return err
	}

	result, rawContent, err := client.EthicsAudit(ctx, item.Content, item.ContentType)
	if err == nil {
		err = ethics.ValidateResult(&result)
	}
	if err != nil {
		if markErr := store.MarkItemFailed(item.ID, err.Error()); markErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to record failure: %v\n", markErr)
		}
		return fmt.Errorf("audit failed: %w", err)
	}

	update := &datastore.AuditResultUpdate{
		RiskScore:             result.Score(),
		RiskLevel:             result.RiskLevel,
		RiskSummary:           result.Summary(),
		RiskBreakdown:         result.RiskBreakdown,
		MitigationSuggestions: result.MitigationSuggestions,
		RawResponse:           rawContent,
		Model:                 settings.LLM.Model,
	}
	if err := store.SaveAuditResult(item.ID, update); err != nil {
		return err
	}
	if err := store.MarkItemCompleted(item.ID, time.Now()); err != nil {
		return err
	}
	if ethics.RequiresHumanReview(&result, settings) {
		if err := store.SetRequiresHumanReview(item.ID, true); err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
