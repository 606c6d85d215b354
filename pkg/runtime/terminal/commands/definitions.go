package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewDefinitionsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "definitions",
		Short: "List report definitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := env.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			names := rt.Service.Definitions()
			if len(names) == 0 {
				fmt.Fprintf(out, "No definitions found in %s\n", env.ConfigPath)
				return nil
			}
			for _, def := range rt.Settings.Definitions {
				fmt.Fprintf(out, "%s: dimensions [%s], source %s\n",
					def.Name, strings.Join(def.Dimensions, ", "), def.Source.Profile)
			}
			return nil
		},
	}
}
