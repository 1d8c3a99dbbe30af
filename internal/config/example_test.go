package config_test

import (
	"fmt"
	"time"

	"github.com/actionsum/lastapp/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Watch Mode:", cfg.Watcher.Mode)
	fmt.Println("Poll Interval:", cfg.Watcher.PollInterval)
	fmt.Println("Protocol:", cfg.Activation.Protocol)
	// Output:
	// Watch Mode: auto
	// Poll Interval: 500ms
	// Protocol: auto
}

// Example of setting poll interval with validation
func ExampleConfig_SetPollInterval() {
	cfg := config.Default()

	// Valid interval
	if err := cfg.SetPollInterval(time.Second); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Poll interval set to:", cfg.Watcher.PollInterval)
	}

	// Invalid interval (too low)
	if err := cfg.SetPollInterval(10 * time.Millisecond); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Poll interval set to: 1s
	// Error: poll interval cannot be less than 100ms
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	} else {
		fmt.Println("Configuration is valid")
	}

	// Output:
	// Configuration is valid
}
