package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/sfextract/sf-attachments/internal/models"
	"github.com/sfextract/sf-attachments/internal/query"
)

// queryResponse is one page of a REST query result.
type queryResponse struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl"`
	Records        []attachmentJSON `json:"records"`
}

type attachmentJSON struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	ContentType string `json:"ContentType"`
	BodyLength  *int64 `json:"BodyLength"`
	ParentID    string `json:"ParentId"`
	CreatedDate string `json:"CreatedDate"`
}

func (a attachmentJSON) record() models.AttachmentRecord {
	r := models.AttachmentRecord{
		ID:          a.ID,
		ParentID:    a.ParentID,
		Name:        a.Name,
		ContentType: a.ContentType,
	}
	if a.BodyLength != nil {
		r.Size = *a.BodyLength
	}
	if t, err := models.ParseCreatedDate(a.CreatedDate); err == nil {
		r.CreatedAt = t
	}
	return r
}

// Query runs soql and follows nextRecordsUrl until the result is complete.
func (c *Client) Query(ctx context.Context, soql string) ([]models.AttachmentRecord, error) {
	if len(soql) > query.MaxQueryLength {
		return nil, fmt.Errorf("%w: %d characters (limit %d)", query.ErrTooLong, len(soql), query.MaxQueryLength)
	}

	next := c.session.DataURL() + "/query?q=" + url.QueryEscape(soql)
	var out []models.AttachmentRecord

	for next != "" {
		page, err := c.queryPage(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, r := range page.Records {
			out = append(out, r.record())
		}

		if page.Done || page.NextRecordsURL == "" {
			break
		}
		next = strings.TrimRight(c.session.InstanceURL, "/") + page.NextRecordsURL
		c.logger.Debug().Int("fetched", len(out)).Int("total", page.TotalSize).Msg("Following nextRecordsUrl")
	}

	return out, nil
}

func (c *Client) queryPage(ctx context.Context, u string) (*queryResponse, error) {
	resp, err := c.get(ctx, c.api, "query", u, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var page queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &models.TransportError{Op: "query", StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &page, nil
}

// QueryByParentIDs returns the attachments of one batch of parent records.
func (c *Client) QueryByParentIDs(ctx context.Context, parentIDs []string) ([]models.AttachmentRecord, error) {
	soql, err := query.BuildParentIDQuery(parentIDs)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, soql)
}

// QueryPage returns one LIMIT/OFFSET page of attachments.
func (c *Client) QueryPage(ctx context.Context, where string, limit, offset int) ([]models.AttachmentRecord, error) {
	return c.Query(ctx, query.BuildAttachmentQuery(where, limit, offset))
}
