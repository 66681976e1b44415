package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для управления executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Manage executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionStartCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var workflow string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(ListExecutionsOpts{
				Workflow: workflow,
				Status:   status,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "WORKFLOW", "VERSION", "STATUS", "STATE", "CREATED"}
			rows := make([][]string, len(executions))
			for i, e := range executions {
				rows[i] = []string{
					e.ID, e.WorkflowName, strconv.Itoa(e.WorkflowVersion),
					e.Status, e.CurrentState, e.CreatedAt,
				}
			}

			out.Print(headers, rows, executions)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflow, "workflow", "", "Filter by workflow name")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecutionStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var version int
	var inputs []string
	var inputFile string

	cmd := &cobra.Command{
		Use:   "start WORKFLOW",
		Short: "Start a new execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := StartExecutionRequest{}

			if cmd.Flags().Changed("version") {
				req.Version = &version
			}

			// --input-file задаёт payload целиком, --input собирает объект
			if inputFile != "" {
				data, err := os.ReadFile(inputFile)
				if err != nil {
					return fmt.Errorf("failed to read input file: %w", err)
				}
				var input any
				if err := json.Unmarshal(data, &input); err != nil {
					return fmt.Errorf("input file is not valid JSON: %w", err)
				}
				req.Input = input
			} else if len(inputs) > 0 {
				obj := make(map[string]any)
				for _, kv := range inputs {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
					}
					obj[parts[0]] = parts[1]
				}
				req.Input = obj
			}

			exec, err := client.StartExecution(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution started: %s", exec.ID))
			out.Print(
				[]string{"ID", "WORKFLOW", "VERSION", "STATUS", "CREATED"},
				[][]string{{
					exec.ID, exec.WorkflowName, strconv.Itoa(exec.WorkflowVersion),
					exec.Status, exec.CreatedAt,
				}},
				exec,
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "Workflow version (latest if not specified)")
	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input values as KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&inputFile, "input-file", "", "Path to JSON file with the initial payload")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details with stage history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(exec)
				return nil
			}

			out.Table(
				[]string{"ID", "WORKFLOW", "VERSION", "STATUS", "STATE", "ERROR", "CREATED"},
				[][]string{{
					exec.ID, exec.WorkflowName, strconv.Itoa(exec.WorkflowVersion),
					exec.Status, exec.CurrentState, exec.FailureReason, exec.CreatedAt,
				}},
			)

			if len(exec.History) > 0 {
				out.Section("History")
				rows := make([][]string, len(exec.History))
				for i, entry := range exec.History {
					rows[i] = []string{
						strconv.Itoa(entry.Seq), entry.StateName,
						compactJSON(entry.Output), entry.CompletedAt,
					}
				}
				out.Table([]string{"SEQ", "STATE", "OUTPUT", "COMPLETED"}, rows)
			}

			return nil
		},
	}
}
