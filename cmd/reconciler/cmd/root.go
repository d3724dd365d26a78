package cmd

import (
	"fmt"
	"os"

	"ledger-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Bank statement to accounting ledger reconciliation tool",
	Long: `Reconciler pairs bank statement movements with accounting ledger entries
by amount and date. It recognizes aggregated fee postings (one ledger line for
many bank movements) and split payments (one bank movement posted as several
ledger lines), and reports what could not be reconciled on either side.

Examples:
  reconciler reconcile --bank-file estratto.csv --ledger-file contabilita.csv
  reconciler reconcile -b bank.csv -l ledger.csv --output-format json -o report.json
  reconciler batch -b bank.csv --ledger-files jan.csv,feb.csv,mar.csv
  reconciler version`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("RECONCILER")
	viper.AutomaticEnv()

	logConfig := &logger.Config{Level: logger.WarnLevel, Format: logger.TextFormat}
	if viper.GetBool("verbose") {
		logConfig.Level = logger.DebugLevel
	}
	if log, err := logger.NewLogger(logConfig); err == nil {
		logger.SetGlobalLogger(log)
	}
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
