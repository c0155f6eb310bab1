package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Parse and validate the pipeline definition without running it",
	RunE:  runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	def, err := loadDefinition()
	if err != nil {
		return &exitError{code: exitLoad, err: err}
	}

	fmt.Printf("%s: %d stages, %d jobs\n", defFile, len(def.Stages), len(def.Jobs))
	for _, job := range def.JobsInOrder() {
		gate := "always"
		if job.HasTrigger() {
			gate = fmt.Sprintf("only %v", job.Only)
		}
		fmt.Printf("  %s/%s (%s)\n", job.Stage, job.Name, gate)
	}
	return nil
}
