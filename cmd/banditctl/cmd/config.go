package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configEnvironment string
	configOutput      string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management and recommendations",
	Long:  `Commands for generating daemon configuration based on the host hardware.`,
}

var configRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Generate recommended daemon configuration",
	Long: `Analyzes the host (CPU, RAM) and suggests banditd settings for the
chosen deployment environment (development, staging, production).`,
	RunE: runConfigRecommend,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configRecommendCmd)

	configRecommendCmd.Flags().StringVarP(&configEnvironment, "environment", "e", "development",
		"Deployment environment: development, staging, production")
	configRecommendCmd.Flags().StringVarP(&configOutput, "output", "o", "text",
		"Output format: text, json, yaml")
}

type ConfigRecommendation struct {
	Hardware        HardwareInfo   `json:"hardware" yaml:"hardware"`
	Recommendations DaemonSettings `json:"recommendations" yaml:"recommendations"`
	Rationale       string         `json:"rationale" yaml:"rationale"`
}

type HardwareInfo struct {
	CPUModel     string `json:"cpu_model" yaml:"cpu_model"`
	CPUThreads   int    `json:"cpu_threads" yaml:"cpu_threads"`
	RAMBytes     uint64 `json:"ram_bytes" yaml:"ram_bytes"`
	RAMGB        string `json:"ram_gb" yaml:"ram_gb"`
	OS           string `json:"os" yaml:"os"`
	Architecture string `json:"architecture" yaml:"architecture"`
}

type DaemonSettings struct {
	StoreType    string  `json:"db_type" yaml:"db_type"`
	RateLimitRPS float64 `json:"rate_limit" yaml:"rate_limit"`
	RateBurst    int     `json:"rate_burst" yaml:"rate_burst"`
	MetricsPort  int     `json:"metrics_port" yaml:"metrics_port"`
	LogLevel     string  `json:"log_level" yaml:"log_level"`
	LogJSON      bool    `json:"log_json" yaml:"log_json"`
}

func runConfigRecommend(cmd *cobra.Command, args []string) error {
	hardware, err := detectHardware()
	if err != nil {
		return fmt.Errorf("failed to detect hardware: %w", err)
	}

	rec := recommend(hardware, configEnvironment)

	switch configOutput {
	case "json":
		output, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
	case "yaml":
		output, err := yaml.Marshal(rec)
		if err != nil {
			return err
		}
		fmt.Print(string(output))
	default:
		fmt.Printf("Hardware:\n")
		fmt.Printf("  CPU: %s (%d threads)\n", hardware.CPUModel, hardware.CPUThreads)
		fmt.Printf("  RAM: %s GB\n", hardware.RAMGB)
		fmt.Printf("  OS:  %s/%s\n", hardware.OS, hardware.Architecture)
		fmt.Printf("\nRecommended settings (%s):\n", configEnvironment)
		fmt.Printf("  --db-type=%s\n", rec.Recommendations.StoreType)
		fmt.Printf("  --rate-limit=%.0f --rate-burst=%d\n", rec.Recommendations.RateLimitRPS, rec.Recommendations.RateBurst)
		fmt.Printf("  --metrics-port=%d\n", rec.Recommendations.MetricsPort)
		fmt.Printf("  --log-level=%s --log-json=%v\n", rec.Recommendations.LogLevel, rec.Recommendations.LogJSON)
		fmt.Printf("\n%s\n", rec.Rationale)
	}

	return nil
}

func detectHardware() (HardwareInfo, error) {
	hw := HardwareInfo{
		CPUModel:     "Unknown",
		CPUThreads:   runtime.NumCPU(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	if info, err := cpu.Info(); err == nil && len(info) > 0 {
		hw.CPUModel = info[0].ModelName
	}

	vmem, err := mem.VirtualMemory()
	if err != nil {
		return hw, err
	}
	hw.RAMBytes = vmem.Total
	hw.RAMGB = fmt.Sprintf("%.1f", float64(vmem.Total)/(1024*1024*1024))

	return hw, nil
}

func recommend(hw HardwareInfo, environment string) ConfigRecommendation {
	settings := DaemonSettings{
		StoreType:   "sqlite",
		MetricsPort: 9090,
		LogLevel:    "info",
	}

	// Scale the rate limit with available threads; the API is cheap but
	// a training cycle competes for the same cores.
	settings.RateLimitRPS = float64(hw.CPUThreads * 5)
	settings.RateBurst = hw.CPUThreads * 10

	rationale := "Development defaults: SQLite store, human-readable logs."

	switch environment {
	case "production":
		settings.StoreType = "postgres"
		settings.LogJSON = true
		rationale = "Production: Postgres for durable run history, JSON logs for aggregation."
	case "staging":
		settings.LogJSON = true
		settings.LogLevel = "debug"
		rationale = "Staging: SQLite is enough, debug logs for verification."
	}

	return ConfigRecommendation{
		Hardware:        hw,
		Recommendations: settings,
		Rationale:       rationale,
	}
}
