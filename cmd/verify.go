package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// verifyCmd parses and verifies one signed message against the local
// guardian set registry
var verifyCmd = &cobra.Command{
	Use:   "verify <vaa-hex | @file>",
	Short: "Parse and verify a signed message",
	Long: `Parses the given signed message and verifies its guardian signatures
against the guardian set registry in the state database.

The message may be passed as a hex string (with or without 0x prefix) or as
@path to read raw or hex bytes from a file. Verification is read-only: the
message hash is not consumed.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Int64(
		"now",
		0,
		"Unix time to evaluate guardian set expiry at (default: wall clock)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)

	raw, err := readMessageArg(args[0])
	if err != nil {
		return err
	}

	now, _ := cmd.Flags().GetInt64("now")
	if now == 0 {
		now = time.Now().Unix()
	}

	bridge, store, err := openBridge(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	v, err := bridge.ParseAndVerifyVAA(raw, uint32(now))
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	digest := v.Digest()
	consumed, err := bridge.IsConsumed(digest)
	if err != nil {
		return err
	}

	logger.Info("Signed message verified",
		zap.String("messageID", v.MessageID()),
		zap.Uint32("guardianSetIndex", v.GuardianSetIndex),
		zap.Int("signatures", len(v.Signatures)),
		zap.Uint32("timestamp", v.Timestamp),
		zap.Uint32("nonce", v.Nonce),
		zap.Uint8("consistencyLevel", v.ConsistencyLevel),
		zap.String("digest", hex.EncodeToString(digest[:])),
		zap.Int("payloadLength", len(v.Payload)),
		zap.String("payloadHex", hex.EncodeToString(v.Payload)),
		zap.Bool("consumed", consumed))

	return nil
}

// readMessageArg resolves the message argument: literal hex, or @file with
// raw or hex contents.
func readMessageArg(arg string) ([]byte, error) {
	data := arg
	if strings.HasPrefix(arg, "@") {
		contents, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, fmt.Errorf("read message file: %w", err)
		}

		data = strings.TrimSpace(string(contents))
		if raw, err := hex.DecodeString(strings.TrimPrefix(data, "0x")); err == nil {
			return raw, nil
		}

		return contents, nil
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(data, "0x"))
	if err != nil {
		return nil, fmt.Errorf("message argument is not valid hex: %w", err)
	}

	return raw, nil
}
