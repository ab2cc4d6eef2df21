package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/casefiledev/casefile-mcp/internal/config"
	"github.com/casefiledev/casefile-mcp/internal/storage"
	"github.com/casefiledev/casefile-mcp/pkg/types"
)

type statsCommander struct {
	jsonOut bool
}

const statsLongDesc string = `Print registry statistics.

Shows record counts by type and status, quality and token averages, and
the state of the backing database.

Examples:
  casefile stats
  casefile stats --json`

const statsShortDesc string = "Print registry statistics"

func newStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print statistics as JSON")

	return cmd
}

func (c *statsCommander) run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening registry: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	statistics, err := store.GetStatistics(ctx)
	if err != nil {
		return fmt.Errorf("computing statistics: %w", err)
	}
	status, err := store.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading registry status: %w", err)
	}

	if c.jsonOut {
		out, err := json.MarshalIndent(map[string]interface{}{
			"statistics": statistics,
			"status":     status,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding statistics: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	printStatistics(statistics, status)
	return nil
}

func printStatistics(statistics *types.Statistics, status *types.RegistryStatus) {
	fmt.Printf("Registry %s (schema %s, %s build, %d bytes)\n",
		status.DBPath, status.SchemaVersion, status.BuildMode, status.DBSizeBytes)
	fmt.Printf("Investigations: %d\n", statistics.Total)

	if len(statistics.ByType) > 0 {
		fmt.Println("By type:")
		for _, name := range sortedKeys(statistics.ByType) {
			fmt.Printf("  %-22s %d\n", name, statistics.ByType[types.InvestigationType(name)])
		}
	}
	if len(statistics.ByStatus) > 0 {
		fmt.Println("By status:")
		for _, name := range sortedStatusKeys(statistics.ByStatus) {
			fmt.Printf("  %-22s %d\n", name, statistics.ByStatus[types.InvestigationStatus(name)])
		}
	}

	if statistics.AvgQuality != nil {
		fmt.Printf("Average quality: %.1f\n", *statistics.AvgQuality)
	}
	fmt.Printf("Average tokens: %.1f\n", statistics.AvgTokens)
	if statistics.AvgDuration != nil {
		avg := time.Duration(*statistics.AvgDuration * float64(time.Millisecond))
		fmt.Printf("Average duration: %s\n", avg.Round(time.Second))
	}
}

func sortedKeys(m map[types.InvestigationType]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

func sortedStatusKeys(m map[types.InvestigationStatus]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
