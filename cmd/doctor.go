package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"runtime"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/formrelay/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("formrelay doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, env-only configuration)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Discord:")
	checkSecret("Bot token", cfg.Discord.Token)
	checkValue("App ID", cfg.Discord.ApplicationID)
	if cfg.Discord.DevGuildID != "" {
		fmt.Printf("    %-12s %s (commands register guild-scoped)\n", "Dev guild:", cfg.Discord.DevGuildID)
	}

	fmt.Println()
	fmt.Println("  Database:")
	if cfg.IsManagedMode() {
		fmt.Printf("    %-12s postgres\n", "Backend:")
		db, dbErr := sql.Open("pgx", cfg.Database.PostgresDSN)
		if dbErr != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", dbErr)
			return
		}
		defer db.Close()
		if pingErr := db.Ping(); pingErr != nil {
			fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", pingErr)
			return
		}
		fmt.Printf("    %-12s OK\n", "Status:")
	} else {
		fmt.Printf("    %-12s sqlite\n", "Backend:")
		fmt.Printf("    %-12s %s\n", "Path:", config.ExpandHome(cfg.Database.SQLitePath))
	}

	if cfg.Telemetry.Enabled {
		fmt.Println()
		fmt.Println("  Telemetry:")
		checkValue("Endpoint", cfg.Telemetry.Endpoint)
		fmt.Printf("    %-12s %s\n", "Protocol:", cfg.Telemetry.Protocol)
	}
}

func checkSecret(name, value string) {
	if value == "" {
		fmt.Printf("    %-12s NOT SET\n", name+":")
		return
	}
	fmt.Printf("    %-12s set (%d chars)\n", name+":", len(value))
}

func checkValue(name, value string) {
	if value == "" {
		fmt.Printf("    %-12s NOT SET\n", name+":")
		return
	}
	fmt.Printf("    %-12s %s\n", name+":", value)
}
