package cli

import (
	"github.com/spf13/cobra"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/utils"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the page cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached page fragment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if cfg.CacheBackend != "redis" {
				cmd.Println("memory cache lives inside the server process; use POST /api/v1/admin/cache/clear")
				return nil
			}
			if err := utils.NewPageCache(cfg).Clear(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("cache cleared")
			return nil
		},
	})
	return cmd
}
