// Package client is a typed HTTP client for the QuizHub API. Authentication state is an
// explicit Session value; nothing is cached globally.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/quizsession"
	"github.com/stemsi/quizhub-backend/internal/response"
)

// ErrNoSession is returned by authenticated calls on a client without a session.
var ErrNoSession = errors.New("client: not logged in")

// Session is the authenticated identity a Client acts as.
type Session struct {
	Token   string
	Account *model.Account
}

// APIError is a non-2xx response decoded from the API envelope.
type APIError struct {
	Status  int
	Code    response.ErrCode
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s (%d): %s %v", e.Code, e.Status, e.Message, e.Fields)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Is lets a duplicate-submission response satisfy quizsession.ErrAlreadySubmitted.
func (e *APIError) Is(target error) bool {
	return target == quizsession.ErrAlreadySubmitted && e.Code == response.ErrAlreadySubmitted
}

// Client talks to one API server.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

// New creates a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// WithSession returns a copy of c that authenticates as s.
func (c *Client) WithSession(s *Session) *Client {
	cp := *c
	cp.session = s
	return &cp
}

// Session returns the session c acts as, or nil.
func (c *Client) Session() *Session { return c.session }

// ─── Auth ──────────────────────────────────────────────────────────────

// Register creates an account. Non-admin accounts must be approved before Login succeeds.
func (c *Client) Register(ctx context.Context, req *model.RegisterRequest) (*model.Account, error) {
	var out struct {
		User *model.Account `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", req, &out, false); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Login exchanges credentials for a Session.
func (c *Client) Login(ctx context.Context, rollNumber, password string) (*Session, error) {
	var out model.LoginResponse
	req := model.LoginRequest{RollNumber: rollNumber, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", req, &out, false); err != nil {
		return nil, err
	}
	return &Session{Token: out.Token, Account: out.Account}, nil
}

// Validate checks the session token and returns the identity it carries.
func (c *Client) Validate(ctx context.Context) (*model.Account, error) {
	var out struct {
		User *model.Account `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/validate", nil, &out, true); err != nil {
		return nil, err
	}
	return out.User, nil
}

// ─── Accounts (admin) ──────────────────────────────────────────────────

// PendingAccounts lists accounts awaiting approval.
func (c *Client) PendingAccounts(ctx context.Context) ([]model.Account, error) {
	var out []model.Account
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/pending", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveAccounts approves the given accounts and returns how many changed.
func (c *Client) ApproveAccounts(ctx context.Context, ids ...uuid.UUID) (int64, error) {
	var out model.ApproveResponse
	req := model.AccountIDsRequest{UserIDs: ids}
	if err := c.do(ctx, http.MethodPost, "/api/v1/users/approve", req, &out, true); err != nil {
		return 0, err
	}
	return out.Approved, nil
}

// ─── Quizzes ───────────────────────────────────────────────────────────

// NewQuizImage is an image attached to CreateQuiz. Questions refer to it by its
// position via QuestionInput.ImageIndex.
type NewQuizImage struct {
	Filename string
	Data     []byte
}

// CreateQuiz uploads a quiz as multipart/form-data.
func (c *Client) CreateQuiz(ctx context.Context, in *model.NewQuiz, images ...NewQuizImage) (*model.QuizWithQuestions, error) {
	questions, err := json.Marshal(in.Questions)
	if err != nil {
		return nil, fmt.Errorf("client: encode questions: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":       in.Title,
		"description": in.Description,
		"questions":   string(questions),
		"start_time":  in.StartTime.Format(time.RFC3339),
		"end_time":    in.EndTime.Format(time.RFC3339),
		"duration":    strconv.Itoa(in.DurationMinutes),
		"department":  in.Department,
		"batch":       in.Batch,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	for _, img := range images {
		part, err := mw.CreateFormFile("question_images", img.Filename)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/quizzes", nil, true)
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(&buf)
	req.ContentLength = int64(buf.Len())
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out model.QuizWithQuestions
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AvailableQuizzes lists the quizzes the student may take right now.
func (c *Client) AvailableQuizzes(ctx context.Context) (*model.AvailableQuizzes, error) {
	var out model.AvailableQuizzes
	if err := c.do(ctx, http.MethodGet, "/api/v1/quizzes/available", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// QuizForStudent fetches a quiz without its answer key.
func (c *Client) QuizForStudent(ctx context.Context, id uuid.UUID) (*model.StudentQuizView, error) {
	var out model.StudentQuizView
	if err := c.do(ctx, http.MethodGet, "/api/v1/quizzes/"+id.String(), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quizzes lists the quizzes visible to a staff or admin session.
func (c *Client) Quizzes(ctx context.Context) ([]model.Quiz, error) {
	var out []model.Quiz
	if err := c.do(ctx, http.MethodGet, "/api/v1/quizzes", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// ─── Results & proctoring ──────────────────────────────────────────────

// SubmitResult submits the answer vector. A duplicate submission returns an *APIError
// matching quizsession.ErrAlreadySubmitted.
func (c *Client) SubmitResult(ctx context.Context, quizID uuid.UUID, req *model.SubmitResultRequest) (*model.Result, error) {
	var out model.Result
	if err := c.do(ctx, http.MethodPost, "/api/v1/quizzes/"+quizID.String()+"/submit", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReportViolation records a proctoring event and returns the server's decision.
func (c *Client) ReportViolation(ctx context.Context, quizID uuid.UUID, kind model.ViolationKind) (*model.ViolationDecision, error) {
	var out model.ViolationDecision
	req := model.ReportViolationRequest{Kind: kind}
	if err := c.do(ctx, http.MethodPost, "/api/v1/quizzes/"+quizID.String()+"/violations", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Results lists the results visible to the session.
func (c *Client) Results(ctx context.Context) ([]model.ResultRow, error) {
	var out []model.ResultRow
	if err := c.do(ctx, http.MethodGet, "/api/v1/results", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// ResultDetails fetches the review of one of the caller's results.
func (c *Client) ResultDetails(ctx context.Context, resultID uuid.UUID) (*model.ResultDetails, error) {
	var out model.ResultDetails
	if err := c.do(ctx, http.MethodGet, "/api/v1/results/"+resultID.String(), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportResults downloads the spreadsheet of a quiz's results.
func (c *Client) ExportResults(ctx context.Context, quizID uuid.UUID) (filename string, data []byte, err error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/quizzes/"+quizID.String()+"/results/export", nil, true)
	if err != nil {
		return "", nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("client: export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", nil, decodeError(resp)
	}
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("client: read export: %w", err)
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return filename, data, nil
}

// ─── Transport ─────────────────────────────────────────────────────────

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorBody `json:"error"`
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, auth bool) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("client: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		if c.session == nil || c.session.Token == "" {
			return nil, ErrNoSession
		}
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, auth bool) error {
	req, err := c.newRequest(ctx, method, path, body, auth)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	path := req.URL.Path
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("client: decode %s data: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: response.ErrInternal, Message: resp.Status}
	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Fields = env.Error.Fields
	}
	return apiErr
}
