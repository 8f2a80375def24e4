package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"livequiz-service/internal/config"
	"livequiz-service/internal/infra/postgres"
)

const (
	defaultRetention  = 28 * 24 * time.Hour
	defaultStaleGrace = 10 * time.Minute
)

// NewReapCmd runs the retention batch job once: delete archived
// sessions past the retention window and force-complete sessions whose
// presenter went silent mid-run.
func NewReapCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Delete expired sessions and close stale ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			db := openBunDB(cfg.Postgres.URL)
			defer db.Close()

			retention := config.TTLDuration(cfg.Session.Retention, defaultRetention)
			staleGrace := config.TTLDuration(cfg.Session.StaleGrace, defaultStaleGrace)

			archive := postgres.NewArchive(db)
			deleted, closed, err := archive.Reap(cmd.Context(), time.Now(), retention, staleGrace)
			if err != nil {
				return err
			}
			log.Printf("reap done: deleted %d expired sessions, closed %d stale sessions", deleted, closed)
			return nil
		},
	}
}
