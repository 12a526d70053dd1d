// Package commands provides CLI command implementations.
package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nic-ch/naive-supervised/internal/application/trainer"
	"github.com/nic-ch/naive-supervised/internal/domain/training"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/logging"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/optimizer"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/storage"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/worker"
)

// Train command flags
var (
	trainCycles      int64
	trainThreads     int
	trainWeightsFile string
	trainJournalPath string
	trainLogPrefix   string
	trainSeed        int64
	trainOutDir      string
)

// TrainCmd trains a weight vector over candidate group files.
var TrainCmd = &cobra.Command{
	Use:   "train <desired-name> <group-file> [<desired-name> <group-file>]...",
	Short: "Train a shared weight vector over candidate groups",
	Long: `Train a shared weight vector so that the desired candidate of every
group ranks first among its competitors.

Arguments come in pairs: the desired candidate's name, then the group
file holding that candidate and its competitors. Press Ctrl-C to stop
gracefully; the best weights found so far are always saved.`,
	Args: groupPairArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if trainCycles < 1 {
			return fmt.Errorf("cycle budget must be at least 1, got %d", trainCycles)
		}

		log := logging.New(cmd.OutOrStdout(), trainLogPrefix)
		defer log.Close()

		log.Banner("Building the trainer...\n")
		log.Printf("  - Maximum number of training cycles is %d.\n", trainCycles)
		if trainThreads == 1 {
			log.Printf("  - The training will be done on the main goroutine.\n")
		} else if trainThreads == 0 {
			log.Printf("  - Number of training workers is hardware concurrency / 2.\n")
		} else {
			log.Printf("  - Number of training workers is %d.\n", trainThreads)
		}

		groups, err := loadGroups(log, args)
		if err != nil {
			return err
		}

		count, err := commonWeightCount(groups)
		if err != nil {
			return err
		}
		log.Printf("  - Common required weight count is %d.\n", count)

		opt, err := optimizer.NewGeometric(count, trainSeed, optimizer.DefaultTuning())
		if err != nil {
			return err
		}

		if trainWeightsFile != "" {
			if err := loadWeightsInto(log, opt, trainWeightsFile); err != nil {
				return err
			}
		} else {
			log.Printf("  - No weights file was provided, weights are randomized.\n")
		}

		var pool *worker.Pool
		if trainThreads != 1 && trainCycles > 1 {
			pool, err = worker.NewPool(trainThreads)
			if err != nil {
				return err
			}
			defer pool.Close()
			log.Printf("  - %d training workers were spawned.\n", pool.Size())
		}

		t, err := trainer.New(log, groups, opt, pool, trainer.Config{MaxCycles: trainCycles})
		if err != nil {
			return err
		}
		t.SetPersister(func(weights []training.Weight) (string, error) {
			return storage.WriteWeights(trainOutDir, weights, time.Now())
		})

		if trainJournalPath != "" {
			journal, err := storage.OpenJournal(trainJournalPath)
			if err != nil {
				return err
			}
			defer journal.Close()

			names := make([]string, len(groups))
			for i, group := range groups {
				names[i] = group.Name()
			}
			runID, err := journal.BeginRun(trainCycles, trainThreads, names)
			if err != nil {
				return err
			}
			log.Printf("  - Journaling run %s to '%s'.\n", runID, trainJournalPath)
			t.SetRecorder(journal)
		}

		// Graceful stop: the flag is polled once at the top of each
		// cycle, so the in-flight cycle always completes.
		interrupts := make(chan os.Signal, 1)
		signal.Notify(interrupts, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(interrupts)
		go func() {
			<-interrupts
			t.Stop()
		}()

		log.Banner("Running the trainer... press Ctrl-C to stop.\n")
		t.Run()
		log.Banner("Done.\n")

		return nil
	},
}

func init() {
	TrainCmd.Flags().Int64VarP(&trainCycles, "cycles", "c", 0, "maximum number of training cycles (required)")
	TrainCmd.Flags().IntVarP(&trainThreads, "threads", "t", 0,
		"training workers: 1 for inline, 0 for hardware concurrency / 2")
	TrainCmd.Flags().StringVarP(&trainWeightsFile, "weights", "w", "", "weights file to resume from")
	TrainCmd.Flags().StringVarP(&trainJournalPath, "journal", "j", "", "SQLite journal database")
	TrainCmd.Flags().StringVarP(&trainLogPrefix, "log", "l", "", "log file name prefix")
	TrainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "random seed, 0 for the clock")
	TrainCmd.Flags().StringVarP(&trainOutDir, "out", "o", ".", "directory for saved weight files")
	TrainCmd.MarkFlagRequired("cycles")
}
