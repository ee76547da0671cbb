package accounting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kolo/xmlrpc"

	"github.com/xelth-com/mprgo/internal/config"
)

// Client talks to the accounting gateway over XML-RPC
type Client struct {
	Database  string
	Username  string
	Password  string
	Uid       int
	CommonURL string
	ObjectURL string
}

// NewClient creates a client for the gateway described by cfg
func NewClient(cfg config.AccountingConfig) *Client {
	url := strings.TrimRight(cfg.URL, "/")
	return &Client{
		Database:  cfg.Database,
		Username:  cfg.Username,
		Password:  cfg.Password,
		CommonURL: fmt.Sprintf("%s/xmlrpc/2/common", url),
		ObjectURL: fmt.Sprintf("%s/xmlrpc/2/object", url),
	}
}

// Authenticate logs in and stores the gateway user id
func (c *Client) Authenticate(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	client, err := xmlrpc.NewClient(c.CommonURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Username, c.Password, make([]interface{}, 0)}
	var uid int
	if err := client.Call("authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("authentication failed: %w", err)
	}
	if uid == 0 {
		return 0, fmt.Errorf("authentication failed: credentials rejected for %s", c.Username)
	}

	c.Uid = uid
	return uid, nil
}

// SearchRead runs search_read on model and decodes the rows into result, a
// pointer to a slice of structs with json tags
func (c *Client) SearchRead(ctx context.Context, model string, domain []interface{}, fields []string, limit, offset int, result interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client, err := xmlrpc.NewClient(c.ObjectURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		"search_read",
		[]interface{}{domain},
		map[string]interface{}{
			"fields": fields,
			"limit":  limit,
			"offset": offset,
		},
	}

	var rawResult []map[string]interface{}
	if err := client.Call("execute_kw", args, &rawResult); err != nil {
		return fmt.Errorf("failed to execute search_read on %s: %w", model, err)
	}

	// rows come back loosely typed; round-trip through JSON into the target
	jsonData, err := json.Marshal(rawResult)
	if err != nil {
		return fmt.Errorf("failed to marshal raw result: %w", err)
	}
	if err := json.Unmarshal(jsonData, result); err != nil {
		return fmt.Errorf("failed to unmarshal %s rows: %w", model, err)
	}
	return nil
}
