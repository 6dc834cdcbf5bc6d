// Package salesforce talks to the Salesforce REST API: session discovery
// through the sf CLI, Attachment metadata queries and body downloads.
package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sfextract/sf-attachments/internal/constants"
	"github.com/sfextract/sf-attachments/internal/models"
)

// Session holds the credentials for REST calls.
type Session struct {
	AccessToken string
	InstanceURL string
	APIVersion  string
	Username    string
	OrgID       string
}

// Validate reports a FatalTransportError when the session cannot be used.
func (s Session) Validate() error {
	if s.AccessToken == "" || s.InstanceURL == "" {
		return &models.FatalTransportError{Op: "authenticate", Err: errors.New("missing access token or instance URL")}
	}
	return nil
}

// DataURL returns the versioned REST base, e.g.
// https://x.my.salesforce.com/services/data/v65.0
func (s Session) DataURL() string {
	version := strings.TrimPrefix(s.APIVersion, "v")
	if version == "" {
		version = constants.DefaultAPIVersion
	}
	return strings.TrimRight(s.InstanceURL, "/") + "/services/data/v" + version
}

// orgDisplay is the subset of `sf org display --json` we read.
type orgDisplay struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Result  struct {
		AccessToken string `json:"accessToken"`
		InstanceURL string `json:"instanceUrl"`
		ID          string `json:"id"`
		Username    string `json:"username"`
		APIVersion  string `json:"apiVersion"`
	} `json:"result"`
}

// runCommand executes the sf CLI. Replaced in tests.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// SessionFromCLI reads the access token of an authenticated org from
// `sf org display --json`. An empty orgAlias selects the CLI's default org.
// Every failure is a FatalTransportError.
func SessionFromCLI(ctx context.Context, orgAlias string) (Session, error) {
	args := []string{"org", "display", "--json"}
	if orgAlias != "" {
		args = append(args, "--target-org", orgAlias)
	}

	stdout, stderr, runErr := runCommand(ctx, "sf", args...)

	var resp orgDisplay
	if err := json.Unmarshal(stdout, &resp); err != nil {
		if runErr != nil {
			detail := strings.TrimSpace(string(stderr))
			if detail == "" {
				detail = runErr.Error()
			}
			return Session{}, &models.FatalTransportError{Op: "sf org display", Err: fmt.Errorf("failed to execute sf CLI: %s", detail)}
		}
		return Session{}, &models.FatalTransportError{Op: "sf org display", Err: fmt.Errorf("invalid JSON response from sf CLI: %w", err)}
	}

	if resp.Status != 0 {
		msg := resp.Message
		if msg == "" {
			msg = "unknown error"
		}
		return Session{}, &models.FatalTransportError{Op: "sf org display", Err: fmt.Errorf("sf CLI error: %s", msg)}
	}

	s := Session{
		AccessToken: resp.Result.AccessToken,
		InstanceURL: resp.Result.InstanceURL,
		APIVersion:  resp.Result.APIVersion,
		Username:    resp.Result.Username,
		OrgID:       resp.Result.ID,
	}
	if s.APIVersion == "" {
		s.APIVersion = constants.DefaultAPIVersion
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}
