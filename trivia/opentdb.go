package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultBaseURL is the Open Trivia Database API root.
const DefaultBaseURL = "https://opentdb.com"

const questionAmount = 10

// Provider response codes.
const (
	codeSuccess       = 0
	codeTokenNotFound = 3
	codeTokenEmpty    = 4
)

// Client fetches questions from an OpenTDB-shaped provider. A session token
// is fetched lazily, reused for the life of the process, and refreshed once
// when the provider reports it expired or exhausted.
type Client struct {
	HTTP    *http.Client
	BaseURL string

	mu    sync.Mutex
	token string
}

// NewClient returns a client against the public provider.
func NewClient() *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		BaseURL: DefaultBaseURL,
	}
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

type questionsResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// FetchSessionToken requests a fresh session token and stores it for
// subsequent question fetches.
func (c *Client) FetchSessionToken(ctx context.Context) error {
	var resp tokenResponse
	if err := c.getJSON(ctx, c.BaseURL+"/api_token.php?command=request", &resp); err != nil {
		return err
	}
	if resp.ResponseCode != codeSuccess {
		return fmt.Errorf("token request failed with response code %d", resp.ResponseCode)
	}
	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// FetchQuestions fetches up to 10 questions for the given category and
// difficulty. Options come back shuffled with the correct index tracked and
// HTML entities unescaped. Any provider failure is returned as an error;
// the session must treat it as a hard abort.
func (c *Client) FetchQuestions(ctx context.Context, category, difficulty string) ([]Question, error) {
	categoryID, ok := categoryIDs[category]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	level, ok := difficultyParams[difficulty]
	if !ok {
		return nil, fmt.Errorf("unknown difficulty %q", difficulty)
	}

	resp, err := c.requestQuestions(ctx, categoryID, level, c.sessionToken())
	if err != nil {
		return nil, err
	}

	// Token expired or exhausted: refresh and retry the single request once.
	if resp.ResponseCode == codeTokenNotFound || resp.ResponseCode == codeTokenEmpty {
		if err := c.FetchSessionToken(ctx); err != nil {
			return nil, fmt.Errorf("session token refresh failed: %w", err)
		}
		resp, err = c.requestQuestions(ctx, categoryID, level, c.sessionToken())
		if err != nil {
			return nil, err
		}
	}
	if resp.ResponseCode != codeSuccess {
		return nil, fmt.Errorf("question request failed with response code %d", resp.ResponseCode)
	}

	questions := make([]Question, 0, len(resp.Results))
	for _, r := range resp.Results {
		correct := html.UnescapeString(r.CorrectAnswer)
		options := make([]string, 0, len(r.IncorrectAnswers)+1)
		for _, ans := range r.IncorrectAnswers {
			options = append(options, html.UnescapeString(ans))
		}
		options = append(options, correct)
		rand.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
		correctIndex := 0
		for i, opt := range options {
			if opt == correct {
				correctIndex = i
				break
			}
		}
		questions = append(questions, Question{
			Category:     category,
			Difficulty:   difficulty,
			Text:         html.UnescapeString(r.Question),
			Options:      options,
			CorrectIndex: correctIndex,
		})
	}
	return questions, nil
}

func (c *Client) requestQuestions(ctx context.Context, categoryID int, level, token string) (*questionsResponse, error) {
	reqURL := fmt.Sprintf("%s/api.php?amount=%d&category=%d&difficulty=%s&type=multiple",
		c.BaseURL, questionAmount, categoryID, level)
	if token != "" {
		reqURL += "&token=" + url.QueryEscape(token)
	}
	var resp questionsResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode provider response: %w", err)
	}
	return nil
}
