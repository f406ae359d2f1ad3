package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/routes"
	"github.com/cppla/yatube/templates"
	"github.com/cppla/yatube/utils"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if port != "" {
				cfg.AppPort = port
				config.Set(cfg)
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET must be set in environment variables")
			}

			// Initialize logger early
			if err := utils.InitLogger(cfg); err != nil {
				return err
			}
			defer func() { _ = utils.Logger.Sync() }()

			db := config.InitDatabase(models.All()...)

			media, err := utils.NewMediaStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			views, err := templates.New()
			if err != nil {
				return err
			}
			r := routes.SetupRouter(db, routes.Deps{
				Cache: utils.NewPageCache(cfg),
				Media: media,
				Views: views,
			})

			utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
			return utils.GraceServer(":"+cfg.AppPort, r, func() {
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			})
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port, overrides AppPort")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()
			cmd.Println("migrations applied")
			return nil
		},
	}
}
