package main

import (
	"github.com/spf13/cobra"

	"gossipsearch/config"
	srv "gossipsearch/internal/server"
)

func migrateCMD() *cobra.Command {
	var cfgPath string
	var dir string
	var steps int
	var mig = &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply pgvector schema migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			cfg := config.LoadConfig(cfgPath)
			dsn, err := cfg.Databases.Postgres.DSN()
			if err != nil {
				return err
			}
			return srv.Migrate(dir, dsn, direction, steps)
		},
	}
	mig.Flags().StringVar(&dir, "dir", "file://migrations", "migrations source")
	mig.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	mig.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config.json)")

	return mig
}
