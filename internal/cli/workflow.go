package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowRegisterCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowValidateCmd(clientFn, outputFn),
		newWorkflowVersionsCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "VERSION", "TRIGGER", "STATES", "CREATED"}
			rows := make([][]string, len(workflows))
			for i, wf := range workflows {
				rows[i] = []string{
					wf.Name, strconv.Itoa(wf.Version),
					definitionTrigger(wf.Definition), definitionStates(wf.Definition),
					wf.CreatedAt,
				}
			}

			out.Print(headers, rows, workflows)
			return nil
		},
	}
}

func newWorkflowRegisterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var defFile string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a workflow from definition file",
		Long: `Register a workflow definition. Registering the same name again
creates a new version; running executions keep their version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(defFile)
			if err != nil {
				return fmt.Errorf("failed to read definition file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("definition file is not valid JSON")
			}

			wf, err := client.RegisterWorkflow(json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow %s registered, version %d", wf.Name, wf.Version))
			out.Print(
				[]string{"NAME", "VERSION", "TRIGGER", "STATES", "CREATED"},
				[][]string{{
					wf.Name, strconv.Itoa(wf.Version),
					definitionTrigger(wf.Definition), definitionStates(wf.Definition),
					wf.CreatedAt,
				}},
				wf,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&defFile, "file", "", "Path to definition JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"NAME", "VERSION", "TRIGGER", "STATES", "CREATED"},
				[][]string{{
					wf.Name, strconv.Itoa(wf.Version),
					definitionTrigger(wf.Definition), definitionStates(wf.Definition),
					wf.CreatedAt,
				}},
				wf,
			)
			return nil
		},
	}
}

func newWorkflowValidateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var defFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a workflow definition without registering",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(defFile)
			if err != nil {
				return fmt.Errorf("failed to read definition file: %w", err)
			}

			result, err := client.ValidateWorkflow(json.RawMessage(data))
			if err != nil {
				return err
			}

			if !result.Valid {
				out.Error(result.Error)
				os.Exit(1)
			}

			out.Success("Definition is valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&defFile, "file", "", "Path to definition JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowVersionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "versions NAME",
		Short: "List workflow versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			versions, err := client.ListVersions(args[0])
			if err != nil {
				return err
			}

			headers := []string{"NAME", "VERSION", "STATES", "CREATED"}
			rows := make([][]string, len(versions))
			for i, v := range versions {
				rows[i] = []string{
					v.Name, strconv.Itoa(v.Version),
					definitionStates(v.Definition), v.CreatedAt,
				}
			}

			out.Print(headers, rows, versions)
			return nil
		},
	}
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a workflow with all versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteWorkflow(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}

// definitionTrigger достаёт тип триггера из сырого определения.
func definitionTrigger(def map[string]any) string {
	if t, ok := def["trigger"].(string); ok {
		return t
	}
	return ""
}

// definitionStates возвращает число состояний в сыром определении.
func definitionStates(def map[string]any) string {
	states, ok := def["states"].(map[string]any)
	if !ok {
		return "0"
	}
	return strconv.Itoa(len(states))
}
