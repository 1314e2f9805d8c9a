package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://www.zohoapis.com/crm/v3"

type CRMClient struct {
	apiKey     string
	oauthToken string
	baseURL    string
	httpClient *http.Client
}

// Lead is the subset of the Zoho Leads module the funnel fills in.
type Lead struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"Email"`
	FirstName   string `json:"First_Name,omitempty"`
	LastName    string `json:"Last_Name"`
	Phone       string `json:"Phone,omitempty"`
	Source      string `json:"Lead_Source,omitempty"`
	Status      string `json:"Lead_Status,omitempty"`
	Description string `json:"Description,omitempty"`
	LoanType    string `json:"Loan_Type,omitempty"`
	Budget      string `json:"Budget_Range,omitempty"`
	Currency    string `json:"Currency_Displayed,omitempty"`
	Reference   string `json:"Application_Reference,omitempty"`
}

type upsertResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

// NewCRMClient builds a client; an empty baseURL selects the public v3 API.
func NewCRMClient(apiKey, oauthToken, baseURL string) *CRMClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &CRMClient{
		apiKey:     apiKey,
		oauthToken: oauthToken,
		baseURL:    baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured reports whether an OAuth token is present.
func (c *CRMClient) IsConfigured() bool {
	return c != nil && c.oauthToken != ""
}

func (c *CRMClient) CreateLead(ctx context.Context, lead *Lead) (string, error) {
	body, status, err := c.send(ctx, http.MethodPost, c.baseURL+"/Leads", map[string]interface{}{
		"data": []Lead{*lead},
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", fmt.Errorf("failed to create lead (status %d): %s", status, string(body))
	}

	var resp upsertResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("no data in response")
	}
	if resp.Data[0].Status != "success" {
		return "", fmt.Errorf("lead creation failed: %s", resp.Data[0].Message)
	}
	return resp.Data[0].Details.ID, nil
}

func (c *CRMClient) UpdateLead(ctx context.Context, leadID string, lead *Lead) error {
	body, status, err := c.send(ctx, http.MethodPut, fmt.Sprintf("%s/Leads/%s", c.baseURL, leadID), map[string]interface{}{
		"data": []Lead{*lead},
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("failed to update lead (status %d): %s", status, string(body))
	}
	return nil
}

// SearchLeads looks leads up by email. Zoho answers 204 when nothing matches.
func (c *CRMClient) SearchLeads(ctx context.Context, email string) ([]Lead, error) {
	endpoint := fmt.Sprintf("%s/Leads/search?email=%s", c.baseURL, url.QueryEscape(email))
	body, status, err := c.send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("failed to search leads (status %d): %s", status, string(body))
	}

	var result struct {
		Data []Lead `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Data, nil
}

func (c *CRMClient) send(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal lead: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.oauthToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
