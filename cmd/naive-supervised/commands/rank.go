package commands

import (
	"github.com/spf13/cobra"

	"github.com/nic-ch/naive-supervised/internal/application/trainer"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/logging"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/optimizer"
)

// Rank command flags
var (
	rankWeightsFile string
	rankLogPrefix   string
)

// RankCmd evaluates a saved weight vector without training.
var RankCmd = &cobra.Command{
	Use:   "rank <desired-name> <group-file> [<desired-name> <group-file>]...",
	Short: "Evaluate a saved weight vector against candidate groups",
	Long: `Load a saved weight vector, run one full evaluation pass over the
given candidate groups, and report the desired candidates' ranks and the
ordered member names. No training happens and nothing is written.`,
	Args: groupPairArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(cmd.OutOrStdout(), rankLogPrefix)
		defer log.Close()

		log.Banner("Evaluating...\n")

		groups, err := loadGroups(log, args)
		if err != nil {
			return err
		}

		count, err := commonWeightCount(groups)
		if err != nil {
			return err
		}
		log.Printf("  - Common required weight count is %d.\n", count)

		opt, err := optimizer.NewGeometric(count, 0, optimizer.DefaultTuning())
		if err != nil {
			return err
		}
		if err := loadWeightsInto(log, opt, rankWeightsFile); err != nil {
			return err
		}

		// A budget of 1 skips training: Run only performs the final
		// evaluation pass and reports.
		t, err := trainer.New(log, groups, opt, nil, trainer.Config{MaxCycles: 1})
		if err != nil {
			return err
		}
		t.Run()

		return nil
	},
}

func init() {
	RankCmd.Flags().StringVarP(&rankWeightsFile, "weights", "w", "", "weights file to evaluate (required)")
	RankCmd.Flags().StringVarP(&rankLogPrefix, "log", "l", "", "log file name prefix")
	RankCmd.MarkFlagRequired("weights")
}
