package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded extraction runs",
		Args:  cobra.NoArgs,
		RunE:  runRuns,
	}
	cmd.Flags().Int("limit", 20, "Number of runs to show")
	return cmd
}

func runRuns(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New("run catalog is disabled (--db is empty)")
	}
	defer st.Close()

	runs, err := st.Runs().List(limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tOK\tFAILED\tDIM\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Status,
			r.ClipsOK, r.ClipsFailed, r.FeatureDim, r.OutputDir)
	}
	return w.Flush()
}
