package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/cmd/util"
	"github.com/mpapenbr/iracehud-go/pkg/config"
	dbMigrate "github.com/mpapenbr/iracehud-go/pkg/db/migrate"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs migration of the settings database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration()
		},
	}
	return cmd
}

func startMigration() error {
	if _, err := util.SetupLogger(); err != nil {
		return err
	}
	before, _, err := dbMigrate.Version(config.SettingsDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Info("Migrating settings database",
		log.String("path", config.SettingsDB),
		log.Uint("version", before))
	if err := dbMigrate.MigrateDB(config.SettingsDB); err != nil {
		log.Error("migration failed", log.ErrorField(err))
		return err
	}
	after, dirty, err := dbMigrate.Version(config.SettingsDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if after == before {
		log.Info("No Migration required")
		return nil
	}
	log.Info("Migration done", log.Uint("version", after), log.Bool("dirty", dirty))
	return nil
}
