package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/book-inventory/cmd/api/book"
)

const bookCreatedTopic = "New_book_created"

/* Publishes plain text messages to an ntfy server (https://ntfy.sh or self hosted). */
type Ntfy struct {
	baseURL string
	client  *http.Client
}

func NewNtfy(notificationsBaseURL string, client *http.Client) *Ntfy {
	if client == nil {
		client = &http.Client{}
	}
	return &Ntfy{
		baseURL: strings.TrimSuffix(notificationsBaseURL, "/"),
		client:  client,
	}
}

func bookCreatedMessage(title string, stock int) string {
	return fmt.Sprintf("New book created:\nTitle: %s\nStock: %v", title, stock)
}

func (ntf *Ntfy) BookCreated(ctx context.Context, title string, stock int) error {
	topicURL := ntf.baseURL + "/" + bookCreatedTopic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, topicURL, strings.NewReader(bookCreatedMessage(title, stock)))
	if err != nil {
		return fmt.Errorf("delivering message to topic (%s): %w", topicURL, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := ntf.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering message to topic (%s): %w", topicURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delivering message to topic (%s): %w", topicURL, book.NewErrNotificationFailed(resp.StatusCode))
	}
	return nil
}
