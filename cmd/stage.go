package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/pipeline"
	"github.com/sells-group/dealflow-cli/pkg/crm"
)

var stageNoSync bool

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Move matches through the deal pipeline",
}

var stageSetCmd = &cobra.Command{
	Use:   "set <match-id> <stage name>",
	Short: "Move a match to the named stage",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := model.DealStage(strings.Join(args[1:], " "))
		if !target.Known() || target == model.StageUnset {
			return eris.Errorf("unknown stage %q (valid: %s)", string(target), strings.Join(stageNames(), ", "))
		}
		return changeStage(cmd, args[0], target)
	},
}

var stageNextCmd = &cobra.Command{
	Use:   "next <match-id>",
	Short: "Move a match to the next pipeline stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		match, err := st.GetMatchByID(ctx, args[0])
		if err != nil {
			return err
		}
		if match == nil {
			return eris.Errorf("match not found: %s", args[0])
		}

		next := pipeline.NextStage(match.Stage)
		if next == model.StageUnset {
			return eris.Errorf("match %s is already at %s", args[0], string(match.Stage))
		}
		return changeStage(cmd, args[0], next)
	},
}

var stageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pipeline stages in order",
	Run: func(cmd *cobra.Command, args []string) {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ORDER\tSTAGE")
		for _, s := range model.PipelineStages() {
			fmt.Fprintf(tw, "%d\t%s\n", s.Order(), string(s))
		}
		fmt.Fprintf(tw, "%d\t%s (exit)\n", model.StageNotInterested.Order(), string(model.StageNotInterested))
		tw.Flush()
	},
}

// changeStage validates and persists a stage transition, then mirrors it into
// the CRM unless sync is disabled or unconfigured.
func changeStage(cmd *cobra.Command, matchID string, target model.DealStage) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	match, err := st.GetMatchByID(ctx, matchID)
	if err != nil {
		return err
	}
	if match == nil {
		return eris.Errorf("match not found: %s", matchID)
	}

	stageMap, err := loadStageMap()
	if err != nil {
		return err
	}

	oldSyncID := match.SyncID
	machine := pipeline.NewMachine(stageMap)
	intent, err := machine.Advance(match, target, time.Now().UTC())
	if err != nil {
		return err
	}

	syncID := oldSyncID
	if !stageNoSync && cfg.CRM.ClientID != "" {
		client, err := initCRM()
		if err != nil {
			return err
		}
		newID, err := crm.NewSyncer(client).Apply(ctx, *intent, oldSyncID)
		if err != nil {
			zap.L().Warn("crm sync failed, stage saved locally only", zap.Error(err))
			syncID = ""
		} else {
			syncID = newID
		}
	}

	if err := st.UpdateMatchStage(ctx, match.ID, target, syncID); err != nil {
		return err
	}
	activity := match.Activities[len(match.Activities)-1]
	if err := st.AppendActivity(ctx, activity); err != nil {
		return err
	}

	zap.L().Info("stage updated",
		zap.String("match", match.ID),
		zap.String("from", string(intent.FromStage)),
		zap.String("to", string(intent.ToStage)),
		zap.String("sync_id", syncID),
	)
	return nil
}

func loadStageMap() (pipeline.StageSyncResolver, error) {
	if cfg.CRM.StageMapPath == "" {
		return pipeline.DefaultStageMap(), nil
	}
	m, err := pipeline.LoadStageMap(cfg.CRM.StageMapPath)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func stageNames() []string {
	names := make([]string, 0, len(model.PipelineStages())+1)
	for _, s := range model.PipelineStages() {
		names = append(names, string(s))
	}
	return append(names, string(model.StageNotInterested))
}

func init() {
	stageCmd.PersistentFlags().BoolVar(&stageNoSync, "no-sync", false, "skip mirroring the change into the CRM")
	stageCmd.AddCommand(stageSetCmd)
	stageCmd.AddCommand(stageNextCmd)
	stageCmd.AddCommand(stageListCmd)
	rootCmd.AddCommand(stageCmd)
}
