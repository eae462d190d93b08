package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"portfolio-backend/internal/assets"
)

func newAssetsCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Maintain the profile asset store",
	}
	cmd.AddCommand(newAssetsSweepCmd(env))
	return cmd
}

func newAssetsSweepCmd(env *cliEnv) *cobra.Command {
	var (
		grace  = assets.DefaultSweepGrace
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete stored files the profile no longer references",
		Long: "sweep lists the image and resume prefixes of the object store and removes\n" +
			"every object that is not the current profile image or resume. Objects newer\n" +
			"than --grace are kept since an upload may still be completing.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := env.app.AssetService.Sweep(cmd.Context(), grace, dryRun)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), env.output, res, func(w io.Writer) error {
				verb := "deleted"
				if res.DryRun {
					verb = "would delete"
				}
				for _, key := range res.Orphans {
					fmt.Fprintf(w, "%s\t%s\n", verb, key)
				}
				fmt.Fprintf(w, "\nscanned %d, orphans %d, deleted %d, kept as recent %d\n",
					res.Scanned, len(res.Orphans), res.Deleted, res.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", grace, "leave objects younger than this alone")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report orphans without deleting them")
	return cmd
}
