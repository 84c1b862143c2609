// Package client is a typed HTTP client for the hostelcore admin API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"hostelcore/internal/adapters/roster"
	"hostelcore/internal/core"
	"hostelcore/internal/jobs"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int               `json:"-"`
	Message    string            `json:"message"`
	ErrorKind  string            `json:"error_kind,omitempty"`
	Detail     string            `json:"detail,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", e.StatusCode, e.Message)
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	return b.String()
}

// Client calls the admin API.
type Client struct {
	http *resty.Client
}

type options struct {
	timeout    time.Duration
	retries    int
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*options)

// WithTimeout sets the per-request timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetries sets how many times transport errors are retried (default 2).
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithHTTPClient swaps the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// New builds a client for baseURL that authenticates with token.
func New(baseURL, token string, opts ...Option) *Client {
	o := options{timeout: 30 * time.Second, retries: 2}
	for _, opt := range opts {
		opt(&o)
	}
	rc := resty.New()
	if o.httpClient != nil {
		rc = resty.NewWithClient(o.httpClient)
	}
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(o.timeout).
		SetRetryCount(o.retries).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &Client{http: rc}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr, ok := resp.Error().(*APIError)
		if !ok || apiErr == nil {
			apiErr = &APIError{}
		}
		apiErr.StatusCode = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		return apiErr
	}
	return nil
}

// Message is the generic {message} envelope.
type Message struct {
	Message string `json:"message"`
}

// StudentResult is returned by single-student mutations.
type StudentResult struct {
	Message string       `json:"message"`
	Student core.Student `json:"student"`
}

// ExchangeResult is returned by ExchangeRooms.
type ExchangeResult struct {
	Message  string         `json:"message"`
	Students []core.Student `json:"students"`
}

// CountResult is returned by GenerateRooms.
type CountResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// AllocationResult is returned by AllocateRooms.
type AllocationResult struct {
	Message        string `json:"message"`
	AllocatedCount int    `json:"allocatedCount"`
	Pending        int    `json:"pending"`
}

// GenerationResult is returned by GenerateStudents. JobID is set for
// asynchronous runs.
type GenerationResult struct {
	Message        string `json:"message"`
	Count          int    `json:"count"`
	AllocatedCount int    `json:"allocatedCount"`
	JobID          string `json:"jobId,omitempty"`
}

// Registration is the student-register request body.
type Registration struct {
	Name               string `json:"name"`
	RollNumber         string `json:"rollNumber"`
	Branch             string `json:"branch,omitempty"`
	Year               int    `json:"year"`
	Email              string `json:"email"`
	PhoneNumber        string `json:"phoneNumber,omitempty"`
	ParentMobileNumber string `json:"parentMobileNumber,omitempty"`
	ProfilePhoto       string `json:"profilePhoto,omitempty"`
	Password           string `json:"password,omitempty"`
	RoomNumber         string `json:"roomNumber,omitempty"`
}

// StudentUpdate is the update-student request body; nil fields are left
// unchanged.
type StudentUpdate struct {
	Name               *string `json:"name,omitempty"`
	RollNumber         *string `json:"rollNumber,omitempty"`
	Branch             *string `json:"branch,omitempty"`
	Year               *int    `json:"year,omitempty"`
	Email              *string `json:"email,omitempty"`
	PhoneNumber        *string `json:"phoneNumber,omitempty"`
	ParentMobileNumber *string `json:"parentMobileNumber,omitempty"`
	RoomNumber         *string `json:"roomNumber,omitempty"`
}

// CreateRoom adds a room.
func (c *Client) CreateRoom(ctx context.Context, roomNumber string, capacity int) (core.Room, error) {
	var out struct {
		Room core.Room `json:"room"`
	}
	err := c.do(ctx, http.MethodPost, "/room", map[string]any{"roomNumber": roomNumber, "capacity": capacity}, &out)
	return out.Room, err
}

// ListRooms lists rooms with occupants. An empty status lists every room.
func (c *Client) ListRooms(ctx context.Context, status string) ([]core.RoomDetail, error) {
	path := "/rooms"
	if status != "" {
		path = "/rooms/vacancy?status=" + url.QueryEscape(status)
	}
	var out []core.RoomDetail
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// RoomStudents lists the occupants of a room.
func (c *Client) RoomStudents(ctx context.Context, roomNumber string) ([]core.Student, error) {
	var out []core.Student
	err := c.do(ctx, http.MethodGet, "/room/"+url.PathEscape(roomNumber)+"/students", nil, &out)
	return out, err
}

// OccupancyStats fetches registry totals.
func (c *Client) OccupancyStats(ctx context.Context) (core.OccupancyStats, error) {
	var out core.OccupancyStats
	err := c.do(ctx, http.MethodGet, "/occupancy-stats", nil, &out)
	return out, err
}

// GenerateRooms recreates the standard building layout.
func (c *Client) GenerateRooms(ctx context.Context) (CountResult, error) {
	var out CountResult
	err := c.do(ctx, http.MethodPost, "/generate-rooms", nil, &out)
	return out, err
}

// AllocateRooms places every unassigned active student.
func (c *Client) AllocateRooms(ctx context.Context) (AllocationResult, error) {
	var out AllocationResult
	err := c.do(ctx, http.MethodPost, "/allocate-rooms", nil, &out)
	return out, err
}

// GenerateStudents replaces all students with count synthetic ones. A zero
// count uses the server default.
func (c *Client) GenerateStudents(ctx context.Context, count int, async bool) (GenerationResult, error) {
	q := url.Values{}
	if count > 0 {
		q.Set("count", strconv.Itoa(count))
	}
	if async {
		q.Set("async", "true")
	}
	path := "/generate-students"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out GenerationResult
	err := c.do(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

// Job fetches a background job.
func (c *Client) Job(ctx context.Context, id string) (jobs.Job, error) {
	var out jobs.Job
	err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &out)
	return out, err
}

// RegisterStudent creates and places a student.
func (c *Client) RegisterStudent(ctx context.Context, reg Registration) (StudentResult, error) {
	var out StudentResult
	err := c.do(ctx, http.MethodPost, "/student-register", reg, &out)
	return out, err
}

// UpdateStudent patches a student profile.
func (c *Client) UpdateStudent(ctx context.Context, id string, update StudentUpdate) (StudentResult, error) {
	var out StudentResult
	err := c.do(ctx, http.MethodPut, "/update-student/"+url.PathEscape(id), update, &out)
	return out, err
}

// DeactivateStudent offboards a student by roll number.
func (c *Client) DeactivateStudent(ctx context.Context, rollNumber string) (StudentResult, error) {
	var out StudentResult
	err := c.do(ctx, http.MethodPut, "/student-delete", map[string]string{"rollNumber": rollNumber}, &out)
	return out, err
}

// ListStudents lists active or inactive students.
func (c *Client) ListStudents(ctx context.Context, active bool) ([]core.Student, error) {
	path := "/get-active-students"
	if !active {
		path = "/get-inactive-students"
	}
	var out []core.Student
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Student fetches a student by roll number.
func (c *Client) Student(ctx context.Context, rollNumber string) (core.Student, error) {
	var out core.Student
	err := c.do(ctx, http.MethodGet, "/student-details/"+url.PathEscape(rollNumber), nil, &out)
	return out, err
}

// ChangeRoom moves a student.
func (c *Client) ChangeRoom(ctx context.Context, studentID, newRoomNumber string) (StudentResult, error) {
	var out StudentResult
	err := c.do(ctx, http.MethodPut, "/change-student-room", map[string]string{"studentId": studentID, "newRoomNumber": newRoomNumber}, &out)
	return out, err
}

// ExchangeRooms swaps two students' rooms.
func (c *Client) ExchangeRooms(ctx context.Context, firstID, secondID string) (ExchangeResult, error) {
	var out ExchangeResult
	err := c.do(ctx, http.MethodPut, "/exchange-student-rooms", map[string]string{"studentId1": firstID, "studentId2": secondID}, &out)
	return out, err
}

// UnassignStudent releases a student's bed.
func (c *Client) UnassignStudent(ctx context.Context, studentID string) (StudentResult, error) {
	var out StudentResult
	err := c.do(ctx, http.MethodPut, "/unassign-student-room", map[string]string{"studentId": studentID}, &out)
	return out, err
}

// ExportRoster queues a roster export.
func (c *Client) ExportRoster(ctx context.Context, formats []string, status string) (roster.ExportRecord, error) {
	body := map[string]any{}
	if len(formats) > 0 {
		body["formats"] = formats
	}
	if status != "" {
		body["status"] = status
	}
	var out roster.ExportRecord
	err := c.do(ctx, http.MethodPost, "/exports/roster", body, &out)
	return out, err
}

// Export fetches an export record.
func (c *Client) Export(ctx context.Context, id string) (roster.ExportRecord, error) {
	var out roster.ExportRecord
	err := c.do(ctx, http.MethodGet, "/exports/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}
