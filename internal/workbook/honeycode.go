package workbook

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
)

const (
	signingName   = "honeycode"
	maxErrorBody  = 4 << 10
	listPageLimit = 100
)

// HoneycodeClient is a Client for the Honeycode REST API. Requests are
// signed with SigV4 using credentials from the SDK's provider chain.
type HoneycodeClient struct {
	httpClient *http.Client
	endpoint   string
	region     string
	creds      aws.CredentialsProvider
	signer     *v4.Signer
	pageSize   int
	now        func() time.Time
}

// HoneycodeOption configures a HoneycodeClient.
type HoneycodeOption func(*HoneycodeClient)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) HoneycodeOption {
	return func(c *HoneycodeClient) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) HoneycodeOption {
	return func(c *HoneycodeClient) { c.httpClient = hc }
}

// WithPageSize sets maxResults for row queries (1-100).
func WithPageSize(n int) HoneycodeOption {
	return func(c *HoneycodeClient) {
		if n > 0 && n <= listPageLimit {
			c.pageSize = n
		}
	}
}

// NewHoneycodeClient returns a client for region. The default endpoint is
// https://honeycode.<region>.amazonaws.com.
func NewHoneycodeClient(creds aws.CredentialsProvider, region string, opts ...HoneycodeOption) *HoneycodeClient {
	c := &HoneycodeClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   fmt.Sprintf("https://honeycode.%s.amazonaws.com", region),
		region:     region,
		creds:      creds,
		signer:     v4.NewSigner(),
		pageSize:   listPageLimit,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listTablesOutput struct {
	Tables    []Table `json:"tables"`
	NextToken string  `json:"nextToken"`
}

// ListTables returns every table of the workbook, following pagination.
func (c *HoneycodeClient) ListTables(ctx context.Context, workbookID string) ([]Table, error) {
	var tables []Table
	token := ""
	for {
		q := url.Values{"maxResults": {strconv.Itoa(listPageLimit)}}
		if token != "" {
			q.Set("nextToken", token)
		}

		var out listTablesOutput
		if err := c.do(ctx, http.MethodGet, workbookPath(workbookID, "tables"), q, nil, &out); err != nil {
			return nil, err
		}
		tables = append(tables, out.Tables...)

		if out.NextToken == "" {
			return tables, nil
		}
		token = out.NextToken
	}
}

type listColumnsOutput struct {
	Columns   []Column `json:"tableColumns"`
	NextToken string   `json:"nextToken"`
}

// ListColumns returns the columns of a table in table order.
func (c *HoneycodeClient) ListColumns(ctx context.Context, workbookID, tableID string) ([]Column, error) {
	var cols []Column
	token := ""
	for {
		q := url.Values{}
		if token != "" {
			q.Set("nextToken", token)
		}

		var out listColumnsOutput
		if err := c.do(ctx, http.MethodGet, workbookPath(workbookID, "tables", tableID, "columns"), q, nil, &out); err != nil {
			return nil, err
		}
		cols = append(cols, out.Columns...)

		if out.NextToken == "" {
			return cols, nil
		}
		token = out.NextToken
	}
}

type filterFormula struct {
	Formula string `json:"formula"`
}

type queryRowsInput struct {
	FilterFormula filterFormula `json:"filterFormula"`
	MaxResults    int           `json:"maxResults,omitempty"`
	NextToken     string        `json:"nextToken,omitempty"`
}

type queryRowsOutput struct {
	ColumnIDs []string `json:"columnIds"`
	Rows      []Row    `json:"rows"`
	NextToken string   `json:"nextToken"`
}

// QueryRows fetches one page of rows matching filter.
func (c *HoneycodeClient) QueryRows(ctx context.Context, workbookID, tableID string, filter Filter, nextToken string) (Page, error) {
	formula, err := filter.Formula()
	if err != nil {
		return Page{}, err
	}

	in := queryRowsInput{
		FilterFormula: filterFormula{Formula: formula},
		MaxResults:    c.pageSize,
		NextToken:     nextToken,
	}
	var out queryRowsOutput
	if err := c.do(ctx, http.MethodPost, workbookPath(workbookID, "tables", tableID, "rows", "query"), nil, in, &out); err != nil {
		return Page{}, err
	}
	return Page{Rows: out.Rows, NextToken: out.NextToken}, nil
}

type cellInput struct {
	Fact string `json:"fact"`
}

type updateRowInput struct {
	RowID         string               `json:"rowId"`
	CellsToUpdate map[string]cellInput `json:"cellsToUpdate"`
}

type batchUpdateInput struct {
	RowsToUpdate       []updateRowInput `json:"rowsToUpdate"`
	ClientRequestToken string           `json:"clientRequestToken,omitempty"`
}

type batchUpdateOutput struct {
	WorkbookCursor   int64        `json:"workbookCursor"`
	FailedBatchItems []FailedItem `json:"failedBatchItems"`
}

// BatchUpdateRows updates up to MaxBatchRows rows in one request. Items the
// service could not apply are returned, not treated as an error.
func (c *HoneycodeClient) BatchUpdateRows(ctx context.Context, workbookID, tableID string, updates []RowUpdate, requestToken string) ([]FailedItem, error) {
	if len(updates) > MaxBatchRows {
		return nil, fmt.Errorf("batch of %d rows exceeds limit of %d", len(updates), MaxBatchRows)
	}

	in := batchUpdateInput{
		RowsToUpdate:       make([]updateRowInput, 0, len(updates)),
		ClientRequestToken: requestToken,
	}
	for _, u := range updates {
		cells := make(map[string]cellInput, len(u.Cells))
		for colID, fact := range u.Cells {
			cells[colID] = cellInput{Fact: fact}
		}
		in.RowsToUpdate = append(in.RowsToUpdate, updateRowInput{RowID: u.RowID, CellsToUpdate: cells})
	}

	var out batchUpdateOutput
	if err := c.do(ctx, http.MethodPost, workbookPath(workbookID, "tables", tableID, "rows", "batchupdate"), nil, in, &out); err != nil {
		return nil, err
	}
	return out.FailedBatchItems, nil
}

func workbookPath(workbookID string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/workbooks/")
	b.WriteString(url.PathEscape(workbookID))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

// do sends a signed request and decodes a JSON response into out.
func (c *HoneycodeClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("retrieve credentials: %w", err)
	}
	sum := sha256.Sum256(payload)
	if err := c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), signingName, c.region, c.now()); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Type:       resp.Header.Get("X-Amzn-ErrorType"),
	}
	if i := strings.IndexByte(apiErr.Type, ':'); i >= 0 {
		apiErr.Type = apiErr.Type[:i]
	}

	var msg struct {
		Message      string `json:"message"`
		MessageUpper string `json:"Message"`
	}
	if json.Unmarshal(body, &msg) == nil && (msg.Message != "" || msg.MessageUpper != "") {
		apiErr.Message = msg.Message
		if apiErr.Message == "" {
			apiErr.Message = msg.MessageUpper
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
