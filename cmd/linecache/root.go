package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "linecache",
	Short: "linecache simulates a set-associative cache.",
	Long: `linecache simulates a set-associative cache in front of an ideal ` +
		`memory controller. Flag defaults can be set with LINECACHE_* ` +
		`environment variables or a .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command. The process exits through atexit so that
// the recorders get flushed.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadEnv reads .env into the environment. A missing file is fine.
func loadEnv() {
	_ = godotenv.Load()
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv("LINECACHE_" + key); ok {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv("LINECACHE_" + key)
	if !ok {
		return fallback
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring LINECACHE_%s=%q: %v\n", key, v, err)
		return fallback
	}

	return i
}

func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv("LINECACHE_" + key)
	if !ok {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring LINECACHE_%s=%q: %v\n", key, v, err)
		return fallback
	}

	return b
}
