package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/hr-rag/internal/jobs"
)

func (c *cli) newSubmitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Enqueue a job for the worker service",
	}
	cmd.AddCommand(
		c.newSubmitDocumentCommand(),
		c.newSubmitResumeCommand(),
		c.newSubmitMeetingCommand(),
		c.newSubmitEmailCommand(),
	)
	return cmd
}

func (c *cli) newSubmitDocumentCommand() *cobra.Command {
	var p jobs.ProcessDocumentPayload
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Index an uploaded document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.submit(cmd, p)
		},
	}
	cmd.Flags().Int64Var(&p.DocumentID, "document-id", 0, "id of the upload row")
	cmd.Flags().StringVar(&p.FilePath, "file", "", "path of the stored file as seen by the worker")
	return cmd
}

func (c *cli) newSubmitResumeCommand() *cobra.Command {
	var p jobs.ScanResumePayload
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Score an application's resume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.submit(cmd, p)
		},
	}
	cmd.Flags().Int64Var(&p.ApplicationID, "application-id", 0, "id of the application")
	cmd.Flags().StringVar(&p.FilePath, "file", "", "path of the stored resume as seen by the worker")
	return cmd
}

func (c *cli) newSubmitMeetingCommand() *cobra.Command {
	var p jobs.ScheduleMeetingPayload
	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "Schedule a calendar meeting with a video link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.submit(cmd, p)
		},
	}
	cmd.Flags().StringVar(&p.Summary, "summary", "", "event title")
	cmd.Flags().StringVar(&p.Description, "description", "", "event description")
	cmd.Flags().StringVar(&p.StartTime, "start", "", "start time, RFC 3339 or 2006-01-02T15:04 in the calendar timezone")
	cmd.Flags().StringVar(&p.EndTime, "end", "", "end time, same formats as --start")
	cmd.Flags().StringSliceVar(&p.AttendeeEmails, "attendee", nil, "attendee email, repeatable")
	return cmd
}

func (c *cli) newSubmitEmailCommand() *cobra.Command {
	var p jobs.SendEmailPayload
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Send an HTML email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.submit(cmd, p)
		},
	}
	cmd.Flags().StringSliceVar(&p.Recipients, "to", nil, "recipient address, repeatable")
	cmd.Flags().StringVar(&p.Subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&p.Body, "body", "", "HTML body")
	cmd.Flags().StringSliceVar(&p.AttachmentPaths, "attach", nil, "attachment path as seen by the worker, repeatable; the worker deletes it after sending")
	return cmd
}

// submit validates p before connecting to the broker.
func (c *cli) submit(cmd *cobra.Command, p jobs.Payload) error {
	if err := p.Validate(); err != nil {
		return err
	}

	cfg, log, err := c.load()
	if err != nil {
		return err
	}
	defer log.Close()

	broker, err := openPublisher(&cfg.RabbitMQ, log.Logger)
	if err != nil {
		return fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	defer broker.Close()

	jobID, err := jobs.NewSubmitter(broker, log.Logger).Submit(cmd.Context(), p)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), jobID)
	return nil
}
