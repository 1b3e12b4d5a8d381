package cmd

import (
	"fmt"
	"os"
	"strings"

	dotenv "github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "settler",
	Short: "Settlement worker for liquidity layer fast-transfer orders",
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
		"spy-rpc-host",
		"localhost:7073",
		"Wormhole spy service endpoint")

	rootCmd.PersistentFlags().String(
		"matching-engine-program-id",
		"",
		"Matching engine program ID (required)")

	rootCmd.PersistentFlags().String(
		"fee-recipient-token",
		"",
		"Token account receiving protocol fees (required)")

	rootCmd.PersistentFlags().String(
		"emitter-address",
		"",
		"Source emitter address to filter (hex)")

	rootCmd.PersistentFlags().String(
		"db-path",
		"settlements.db",
		"Path to the settlement audit database")

	// Bind flags to viper for env variable support
	viper.BindPFlag("spy_rpc_host", rootCmd.PersistentFlags().Lookup("spy-rpc-host"))
	viper.BindPFlag("matching_engine_program_id", rootCmd.PersistentFlags().Lookup("matching-engine-program-id"))
	viper.BindPFlag("fee_recipient_token", rootCmd.PersistentFlags().Lookup("fee-recipient-token"))
	viper.BindPFlag("emitter_address", rootCmd.PersistentFlags().Lookup("emitter-address"))
	viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db-path"))

	cobra.OnInitialize(initConfig)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("settler")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

func printBanner() {
	colours := []string{
		"\033[38;5;81m", // Cyan
		"\033[38;5;75m", // Light Blue
		"\033[38;5;69m", // Sky Blue
		"\033[38;5;63m", // Dodger Blue
		"\033[38;5;57m", // Deep Sky Blue
		"\033[38;5;51m", // Cornflower Blue
		"\033[38;5;45m", // Royal Blue
	}
	banner := `
   _____ ______________________    __________
  / ___// ____/_  __/_  __/ /   / ____/ __ \
  \__ \/ __/   / /   / / / /   / __/ / /_/ /
 ___/ / /___  / /   / / / /___/ /___/ _, _/
/____/_____/ /_/   /_/ /_____/_____/_/ |_|
`
	lines := strings.Split(banner, "\n")

	// remove empty lines
	for i := 0; i < len(lines); i++ {
		if lines[i] == "" {
			lines = append(lines[:i], lines[i+1:]...)
			i--
		}
	}

	for i, line := range lines {
		fmt.Printf("%s%s\n", colours[i], line)
	}

	fmt.Println("\033[0m") // Reset
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
