package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/formrelay/internal/config"
	"github.com/nextlevelbuilder/formrelay/internal/discord"
	"github.com/nextlevelbuilder/formrelay/internal/store"
	"github.com/nextlevelbuilder/formrelay/internal/store/sqlite"
)

// registerCmd pushes the application command definitions to Discord. Run
// once after deploying a new command set; the gateway connection itself
// does not need to be up.
func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Register slash commands and context menus with Discord",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			setupLogging(cfg.Logging)

			if cfg.Discord.Token == "" {
				return fmt.Errorf("no bot token configured, set FORMRELAY_BOT_TOKEN")
			}

			// Command registration is a pure REST call; an in-memory
			// sqlite store satisfies the bot constructor without touching
			// the real database.
			stores, err := sqlite.NewSQLiteStores(store.StoreConfig{SQLitePath: ":memory:"})
			if err != nil {
				return fmt.Errorf("open scratch store: %w", err)
			}
			defer stores.Close()

			bot, err := discord.New(cfg.Discord, stores)
			if err != nil {
				return fmt.Errorf("create bot: %w", err)
			}
			if err := bot.RegisterCommands(); err != nil {
				return err
			}
			slog.Info("command registration complete")
			return nil
		},
	}
}
