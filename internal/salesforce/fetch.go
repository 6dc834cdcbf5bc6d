package salesforce

import (
	"context"
	"io"
	"net/url"
)

// Fetch opens the body of one attachment. The caller must close the
// returned reader. A missing attachment yields *models.NotFoundError and
// an unusable session *models.FatalTransportError.
func (c *Client) Fetch(ctx context.Context, attachmentID string) (io.ReadCloser, error) {
	u := c.session.DataURL() + "/sobjects/Attachment/" + url.PathEscape(attachmentID) + "/Body"

	c.logger.Debug().Str("attachment_id", attachmentID).Msg("Fetching body")

	resp, err := c.get(ctx, c.transfer, "fetch "+attachmentID, u, attachmentID)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
