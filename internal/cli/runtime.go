package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sfextract/sf-attachments/internal/archive"
	"github.com/sfextract/sf-attachments/internal/config"
	"github.com/sfextract/sf-attachments/internal/http"
	"github.com/sfextract/sf-attachments/internal/logging"
	"github.com/sfextract/sf-attachments/internal/progress"
	"github.com/sfextract/sf-attachments/internal/salesforce"
	"github.com/sfextract/sf-attachments/internal/workflow"
)

// resolveSession returns the session from the environment when a token and
// instance URL are configured, otherwise from the sf CLI.
func resolveSession(ctx context.Context, cfg *config.Config) (salesforce.Session, error) {
	var session salesforce.Session
	if cfg.SessionFromEnvironment() {
		session = salesforce.Session{AccessToken: cfg.AccessToken, InstanceURL: cfg.InstanceURL}
	} else {
		s, err := salesforce.SessionFromCLI(ctx, cfg.OrgAlias)
		if err != nil {
			return session, err
		}
		session = s
	}
	if cfg.APIVersion != "" {
		session.APIVersion = cfg.APIVersion
	}
	return session, session.Validate()
}

// newSalesforceClient builds the REST client with proxy-aware transports.
func newSalesforceClient(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*salesforce.Client, error) {
	session, err := resolveSession(ctx, cfg)
	if err != nil {
		return nil, err
	}

	apiClient, err := http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	transferClient, err := http.CreateTransferClient(cfg)
	if err != nil {
		return nil, err
	}

	return salesforce.NewClient(session, salesforce.ClientOptions{
		HTTPClient:        apiClient,
		TransferClient:    transferClient,
		RequestsPerSecond: cfg.RequestsPerSecond,
		RetryMax:          cfg.HTTPRetries,
		Logger:            logger,
	})
}

// runWorkflow wires a Coordinator for cfg, runs it through run and prints
// the summary. Non-zero outcomes come back as *ExitError.
func runWorkflow(cfg *config.Config, run func(ctx context.Context, c *workflow.Coordinator) (*workflow.Report, error)) error {
	ctx := GetContext()

	runLogger, err := logging.NewLogger(logging.Options{LogFile: cfg.LogFile})
	if err != nil {
		return err
	}
	defer runLogger.Close()

	sink := progress.NewCLISink(os.Stderr)
	if sink.IsTerminal() {
		runLogger.SetOutput(sink.Writer())
	}

	client, err := newSalesforceClient(ctx, cfg, runLogger)
	if err != nil {
		return err
	}
	session := client.Session()
	runLogger.Info().
		Str("instance", session.InstanceURL).
		Str("user", session.Username).
		Str("api_version", session.APIVersion).
		Msg("Connected")

	archiver, err := archive.New(ctx, cfg)
	if err != nil {
		return err
	}

	coord := &workflow.Coordinator{
		Config:   cfg,
		Querier:  client,
		Fetcher:  client,
		Sink:     sink,
		Logger:   runLogger,
		Archiver: archiver,
	}

	report, runErr := run(ctx, coord)
	sink.Close()

	if report != nil {
		fmt.Println()
		report.WriteSummary(os.Stdout)
		if code := report.ExitCode(); code != ExitOK {
			return &ExitError{Code: code, Err: runErr}
		}
	}
	return runErr
}
