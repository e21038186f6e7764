package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after applying the config file and environment
overrides. With --write, save it to the config file path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if write {
				if err := a.cfg.Save(a.cfgPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", a.cfgPath)
			}
			if a.cfg.JSON {
				a.printJSON(a.cfg)
				return nil
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "save the effective configuration to --config")
	return cmd
}
