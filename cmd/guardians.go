package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wormhole-demo/core/internal/guardian"
	"github.com/wormhole-demo/core/internal/state"
)

var guardiansCmd = &cobra.Command{
	Use:   "guardians",
	Short: "Inspect and bootstrap the guardian set registry",
}

var guardiansInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Install the genesis guardian set",
	Long: `Installs the genesis guardian set into an empty state database.
All later changes go through signed governance rotation messages.`,
	RunE: runGuardiansInit,
}

var guardiansShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List stored guardian sets",
	RunE:  runGuardiansShow,
}

func init() {
	rootCmd.AddCommand(guardiansCmd)
	guardiansCmd.AddCommand(guardiansInitCmd)
	guardiansCmd.AddCommand(guardiansShowCmd)

	guardiansInitCmd.Flags().Uint32(
		"index",
		0,
		"Index of the genesis guardian set")

	guardiansInitCmd.Flags().StringSlice(
		"keys",
		nil,
		"Guardian keys as 20-byte hex addresses, in set order (required)")

	guardiansInitCmd.MarkFlagRequired("keys")
}

func runGuardiansInit(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)

	index, _ := cmd.Flags().GetUint32("index")
	keyStrings, _ := cmd.Flags().GetStringSlice("keys")

	keys := make([]common.Address, 0, len(keyStrings))
	for _, s := range keyStrings {
		if !common.IsHexAddress(s) {
			return errors.Errorf("invalid guardian key %q: want a 20-byte hex address", s)
		}
		keys = append(keys, common.HexToAddress(s))
	}

	set, err := guardian.NewSet(index, keys)
	if err != nil {
		return err
	}

	bridge, store, err := openBridge(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := bridge.InitGuardianSet(set); err != nil {
		return err
	}

	logger.Info("Genesis guardian set installed",
		zap.Uint32("index", set.Index),
		zap.Int("guardians", len(set.Keys)),
		zap.Int("quorum", set.Quorum()))

	return nil
}

func runGuardiansShow(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)

	bridge, store, err := openBridge(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	current, err := bridge.CurrentGuardianSet()
	if err != nil {
		return err
	}

	// Walk down from the current index; sets below the genesis index do
	// not exist.
	for index := current.Index; ; index-- {
		set, err := bridge.GuardianSet(index)
		if err != nil {
			if errors.Is(err, state.ErrSetNotFound) {
				break
			}
			return err
		}

		status := "current"
		if set.ExpirationTime != 0 {
			status = fmt.Sprintf("expires at %d", set.ExpirationTime)
		}

		fmt.Printf("guardian set %d (%s): %d keys, quorum %d\n",
			set.Index, status, len(set.Keys), set.Quorum())
		for i, k := range set.Keys {
			fmt.Printf("  %3d  %s\n", i, k.Hex())
		}

		if index == 0 {
			break
		}
	}

	return nil
}
