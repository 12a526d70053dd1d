package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nic-ch/naive-supervised/internal/application/trainer"
	"github.com/nic-ch/naive-supervised/internal/domain/training"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/logging"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/network"
	"github.com/nic-ch/naive-supervised/internal/infrastructure/storage"
)

// groupPairArgs validates <desired-name> <group-file> argument pairs.
func groupPairArgs(cmd *cobra.Command, args []string) error {
	if len(args) < 2 || len(args)%2 != 0 {
		return fmt.Errorf("arguments must be pairs of <desired-name> <group-file>, got %d", len(args))
	}
	return nil
}

// buildNetwork is the one network variant currently selectable.
func buildNetwork(rows, cols int) (training.Network, error) {
	return network.NewLogarithmic(rows, cols)
}

// loadGroups builds one candidate group per <desired-name> <group-file>
// argument pair.
func loadGroups(log *logging.Logger, args []string) ([]*trainer.Group, error) {
	groups := make([]*trainer.Group, 0, len(args)/2)
	log.Printf("  - Creating %d candidate groups...\n", len(args)/2)

	for i := 0; i+1 < len(args); i += 2 {
		desiredName, fileName := args[i], args[i+1]

		file, size, err := storage.OpenForRead(fileName)
		if err != nil {
			return nil, err
		}

		group, err := trainer.LoadGroup(fileName, desiredName, file, size, buildNetwork)
		file.Close()
		if err != nil {
			return nil, err
		}

		log.Printf("    . %d candidates, desired '%s', in '%s'.\n", group.Size(), desiredName, fileName)
		groups = append(groups, group)
	}

	return groups, nil
}

// commonWeightCount returns the weight count all groups agree on.
func commonWeightCount(groups []*trainer.Group) (int, error) {
	common, err := groups[0].RequiredWeightCount()
	if err != nil {
		return 0, err
	}
	for _, group := range groups[1:] {
		count, err := group.RequiredWeightCount()
		if err != nil {
			return 0, err
		}
		if count != common {
			return 0, fmt.Errorf("%w: not all groups require the same number of weights",
				training.ErrWeightCountMismatch)
		}
	}
	return common, nil
}

// loadWeightsInto reads a saved weight file into the optimizer.
func loadWeightsInto(log *logging.Logger, opt training.Optimizer, fileName string) error {
	file, size, err := storage.OpenForRead(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	weights, err := storage.ReadWeights(file, size, opt.WeightCount())
	if err != nil {
		return err
	}
	if err := opt.SetWeights(weights); err != nil {
		return err
	}

	log.Printf("  - %d weights were loaded from '%s'.\n", len(weights), fileName)
	return nil
}
