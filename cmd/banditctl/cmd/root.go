package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ragops/banditd/pkg/client"
	tlsutil "github.com/ragops/banditd/pkg/tls"
)

var (
	serverURL    string
	backendURL   string
	outputFormat string
	cfgFile      string
	apiKey       string
	timeoutSec   int
	caFile       string
	insecureTLS  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "banditctl",
	Short: "CLI for the banditd training tracker",
	Long:  `banditctl is a command line interface for inspecting and driving the bandit training daemon of the RAG backend.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.banditctl/config)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "banditd API URL (default from config or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "RAG backend URL for smoke checks (default from config or http://localhost:8000)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().IntVar(&timeoutSec, "timeout", 0, "request timeout in seconds (default from TIMEOUT_SEC or 30)")
	rootCmd.PersistentFlags().StringVar(&caFile, "ca", "", "CA certificate for verifying the daemon's TLS certificate")
	rootCmd.PersistentFlags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (self-signed daemon certs)")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".banditctl"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	viper.BindEnv("api_key", "BANDIT_API_KEY")
	viper.BindEnv("server_url", "BANDIT_URL")
	viper.BindEnv("backend_url", "BACKEND_URL")
	viper.BindEnv("timeout_sec", "TIMEOUT_SEC")

	// Config file is optional; env vars and flags still apply without one.
	viper.ReadInConfig()

	if serverURL == "" {
		serverURL = viper.GetString("server_url")
	}
	if backendURL == "" {
		backendURL = viper.GetString("backend_url")
	}
	if apiKey == "" {
		apiKey = viper.GetString("api_key")
	}
	if timeoutSec == 0 {
		timeoutSec = viper.GetInt("timeout_sec")
	}

	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	if backendURL == "" {
		backendURL = "http://localhost:8000"
	}
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
}

// GetServerURL returns the configured banditd URL with trailing slashes removed
func GetServerURL() string {
	return strings.TrimRight(serverURL, "/")
}

// GetBackendURL returns the configured RAG backend URL with trailing slashes removed
func GetBackendURL() string {
	return strings.TrimRight(backendURL, "/")
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// GetTimeout returns the configured request timeout
func GetTimeout() time.Duration {
	return time.Duration(timeoutSec) * time.Second
}

// GetClient builds a banditd API client from the global configuration.
// A CA file or --insecure switches to a TLS-configured transport for
// daemons serving self-signed certificates.
func GetClient() *client.Client {
	var c *client.Client
	if caFile != "" || insecureTLS {
		tlsConfig, err := tlsutil.LoadClientTLSConfig(caFile, insecureTLS)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading TLS configuration: %v\n", err)
			os.Exit(1)
		}
		c = client.NewWithTLS(GetServerURL(), GetTimeout(), tlsConfig)
	} else {
		c = client.New(GetServerURL(), GetTimeout())
	}
	if apiKey != "" {
		c.SetAPIKey(apiKey)
	}
	return c
}
