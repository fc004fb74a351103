package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wormhole-demo/core/internal/core"
	"github.com/wormhole-demo/core/internal/spy"
)

// watchCmd subscribes to a guardian spy service and verifies every signed
// message locally
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Verify the spy service's signed message stream",
	Long: `Subscribes to a guardian spy service and runs every received signed
message through local verification.

Messages from the governance emitter are additionally submitted through the
governance gate, so guardian set rotations observed on the stream advance
the local registry.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String(
		"spy-rpc-host",
		"localhost:7073",
		"Guardian spy service endpoint")

	watchCmd.Flags().Bool(
		"apply-governance",
		true,
		"Submit governance messages through the gate (rotations advance the registry)")

	viper.BindPFlag("spy_rpc_host", watchCmd.Flags().Lookup("spy-rpc-host"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)
	logger.Info("Starting signed message watcher")

	applyGovernance, _ := cmd.Flags().GetBool("apply-governance")

	bridge, store, err := openBridge(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	spyClient, err := spy.NewClient(logger, viper.GetString("spy_rpc_host"))
	if err != nil {
		return fmt.Errorf("failed to create spy client: %v", err)
	}

	handler := &verifyHandler{
		bridge:          bridge,
		applyGovernance: applyGovernance,
		logger:          logger.With(zap.String("component", "VerifyHandler")),
	}

	watcher := spy.NewWatcher(logger, spyClient, handler)
	defer watcher.Close()

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Info("Received shutdown signal")
		cancel()
	}()

	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("watcher stopped with error: %v", err)
	}

	return nil
}

// verifyHandler runs each streamed message through local verification and
// hands governance messages to the gate.
type verifyHandler struct {
	bridge          *core.Bridge
	applyGovernance bool
	logger          *zap.Logger
}

func (h *verifyHandler) HandleSignedVAA(ctx context.Context, raw []byte) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	now := uint32(time.Now().Unix())

	v, err := h.bridge.ParseAndVerifyVAA(raw, now)
	if err != nil {
		h.logger.Warn("Rejected signed message", zap.Error(err))
		return nil
	}

	h.logger.Info("Verified signed message",
		zap.String("messageID", v.MessageID()),
		zap.Uint32("guardianSetIndex", v.GuardianSetIndex),
		zap.Int("signatures", len(v.Signatures)),
		zap.Int("payloadLength", len(v.Payload)))

	emitter := h.bridge.Config().GovernanceEmitter
	if !h.applyGovernance || v.EmitterChain != emitter.Chain || v.EmitterAddress != emitter.Address {
		return nil
	}

	msg, err := h.bridge.SubmitGovernanceVAA(raw, now)
	if err != nil {
		h.logger.Warn("Governance message rejected", zap.Error(err))
		return nil
	}

	h.logger.Info("Governance action applied",
		zap.Uint8("action", msg.Action),
		zap.Uint16("targetChain", msg.TargetChain))

	return nil
}
