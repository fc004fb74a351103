package cmd

import (
	"os"
	"strings"

	dotenv "github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wormhole-demo/core/internal/core"
	"github.com/wormhole-demo/core/internal/governance"
	"github.com/wormhole-demo/core/internal/state"
	"github.com/wormhole-demo/core/internal/vaa"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "guardian-core",
	Short: "Guardian signed-message verification engine",
	Long: `Verifies guardian-quorum signed messages against a rotating guardian set
registry, with replay protection and governance-action gating.`,
}

func init() {
	// Tentatively load .env file
	_ = dotenv.Load()

	rootCmd.PersistentFlags().Bool(
		"debug",
		false,
		"Enables debug output.")

	rootCmd.PersistentFlags().Bool(
		"json",
		false,
		"Enables structured logging in JSON format.")

	rootCmd.PersistentFlags().String(
		"db",
		"guardian-core.db",
		"Path to the state database")

	rootCmd.PersistentFlags().Uint16(
		"chain-id",
		3104,
		"This ledger's chain id in the bridge's numbering")

	rootCmd.PersistentFlags().Uint16(
		"governance-chain",
		1,
		"Chain id of the governance emitter")

	rootCmd.PersistentFlags().String(
		"governance-address",
		"0x0000000000000000000000000000000000000000000000000000000000000004",
		"Emitter address governance messages must originate from")

	rootCmd.PersistentFlags().Uint32(
		"grace-period",
		core.DefaultGracePeriod,
		"Seconds a superseded guardian set keeps verifying ordinary messages")

	// Bind flags to viper for env variable support
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("chain_id", rootCmd.PersistentFlags().Lookup("chain-id"))
	viper.BindPFlag("governance_chain", rootCmd.PersistentFlags().Lookup("governance-chain"))
	viper.BindPFlag("governance_address", rootCmd.PersistentFlags().Lookup("governance-address"))
	viper.BindPFlag("grace_period", rootCmd.PersistentFlags().Lookup("grace-period"))

	cobra.OnInitialize(initConfig)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("guardian-core")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// bridgeConfig assembles the deployment configuration from viper.
func bridgeConfig() (core.Config, error) {
	govAddr, err := vaa.AddressFromHex(viper.GetString("governance_address"))
	if err != nil {
		return core.Config{}, err
	}

	return core.Config{
		ChainID: uint16(viper.GetUint32("chain_id")),
		GovernanceEmitter: governance.Emitter{
			Chain:   uint16(viper.GetUint32("governance_chain")),
			Address: govAddr,
		},
		GracePeriod: viper.GetUint32("grace_period"),
	}, nil
}

// openBridge opens the state database and builds the engine over it.
// The caller closes the returned store.
func openBridge(logger *zap.Logger) (*core.Bridge, state.Store, error) {
	cfg, err := bridgeConfig()
	if err != nil {
		return nil, nil, err
	}

	store, err := state.OpenBolt(viper.GetString("db"))
	if err != nil {
		return nil, nil, err
	}

	bridge, err := core.New(logger, cfg, store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	return bridge, store, nil
}

func configureLogging(cmd *cobra.Command, _ []string) *zap.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	json, _ := cmd.Flags().GetBool("json")

	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.Development = true
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	// Configure JSON output if requested
	if json {
		config.Encoding = "json"
	} else {
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		// Fallback to a basic logger if config fails
		logger, _ = zap.NewProduction()
	}

	// Replace the global logger
	zap.ReplaceGlobals(logger)

	return logger
}
