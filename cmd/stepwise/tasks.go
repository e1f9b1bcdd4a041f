package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/stepwise-app/stepwise/internal/tui"
)

var showYAML bool

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and inspect saved tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTasksList(cmd, args)
	},
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your tasks, newest first",
	Args:  cobra.NoArgs,
	RunE:  runTasksList,
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task and its steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksShow,
}

func init() {
	tasksShowCmd.Flags().BoolVar(&showYAML, "yaml", false, "Print the task as YAML")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksShowCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tasks, err := a.db.ListTasks(cmd.Context(), a.userID())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), tui.RenderTaskList(tasks, 100))
	return nil
}

func runTasksShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.db.GetTask(cmd.Context(), a.userID(), args[0])
	if err != nil {
		return err
	}

	if showYAML {
		out, err := yaml.Marshal(task)
		if err != nil {
			return fmt.Errorf("encode task: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), tui.RenderTask(*task))
	return nil
}
