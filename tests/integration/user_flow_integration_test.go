//go:build integration

// Run against a live server, e.g.
//
//	compass serve --memory &
//	COMPASS_TEST_BASE_URL=http://127.0.0.1:8080 go test -tags integration ./tests/integration
package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/casanoova/compass/internal/client"
	"github.com/casanoova/compass/internal/models"
	"github.com/casanoova/compass/internal/services"
)

func baseURL() string {
	if v := os.Getenv("COMPASS_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:8080"
}

func TestSurveyJourneyIntegration(t *testing.T) {
	httpClient := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()
	ctx := context.Background()

	var signup struct {
		Data services.SignupResult `json:"data"`
	}
	doPost(t, httpClient, base+"/api/signup", "", map[string]any{
		"email":        fmt.Sprintf("integration_%d@example.com", time.Now().UnixNano()),
		"first_name":   "Integration",
		"last_name":    "Lead",
		"accept_terms": true,
	}, &signup)
	if signup.Data.InviteToken == "" || signup.Data.TeamID == "" {
		t.Fatalf("unexpected signup response: %+v", signup.Data)
	}
	token := signup.Data.InviteToken

	c := client.New(base).WithHTTPClient(httpClient)
	adjs, err := c.Adjectives(ctx, token)
	if err != nil {
		t.Fatalf("adjectives: %v", err)
	}
	if len(adjs) == 0 {
		t.Fatal("catalog is empty; start the server with --seed or --memory")
	}

	// incomplete submissions leave the invitation pending
	_, err = c.Submit(ctx, token, []services.ResponseInput{{PairID: adjs[0].ID, Polarity: models.PolarityPositive, Weight: models.WeightHigh}})
	if !client.IsCode(err, services.ErrorIncomplete) {
		t.Fatalf("expected incomplete_submission, got %v", err)
	}

	responses := make([]services.ResponseInput, 0, len(adjs))
	for _, a := range adjs {
		responses = append(responses, services.ResponseInput{PairID: a.ID, Polarity: models.PolarityPositive, Weight: models.WeightHigh})
	}
	pt, err := c.Submit(ctx, token, responses)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	st, err := c.Status(ctx, token)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Status != models.InviteCompleted {
		t.Fatalf("expected COMPLETED, got %s", st.Status)
	}
	if st.Point == nil || *st.Point != pt {
		t.Fatalf("status point %+v does not match submitted point %+v", st.Point, pt)
	}

	_, err = c.Submit(ctx, token, responses)
	if !client.IsCode(err, services.ErrorAlreadyCompleted) {
		t.Fatalf("expected already_completed on resubmit, got %v", err)
	}

	res, err := c.Results(ctx, token)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if res.TeamAverage != nil || res.ReleasedAt != nil {
		t.Fatalf("team average must stay hidden before release: %+v", res)
	}
}

func doPost(t *testing.T, client *http.Client, url, token string, body any, out any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http post %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		decoder := json.NewDecoder(resp.Body)
		if err := decoder.Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}
