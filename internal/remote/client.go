// Package remote is the typed client for the main backend. It exposes
// the handful of endpoints the coordinator calls plus a connectivity
// probe, and it classifies every failure as either a transport problem
// (offline path) or an actual remote verdict.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/attendd/attendd/internal/model"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a remote response is read into memory.
const maxBodyBytes = 1 << 20

// NextIDs is the identity pair the remote hands out for the next
// registration. StudentID is the decimal string form of UID.
type NextIDs struct {
	UID       int    `json:"uid"`
	StudentID string `json:"student_id"`
}

// Client calls the main backend. It is stateless; the caller passes
// the Authorization header value where the endpoint needs one.
type Client struct {
	base  string
	httpc *http.Client
	log   *logrus.Logger
}

// NewClient returns a client for the backend at baseURL.
func NewClient(baseURL string, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		httpc: &http.Client{Timeout: DefaultTimeout},
		log:   log,
	}
}

// NextIDs reserves the next uid and student_id from the remote.
func (c *Client) NextIDs(ctx context.Context, authorization string) (*NextIDs, error) {
	var ids NextIDs
	if err := c.do(ctx, http.MethodGet, "/students/next-ids", authorization, nil, &ids); err != nil {
		return nil, err
	}
	if ids.UID == 0 {
		return nil, fmt.Errorf("%w: next-ids answer carried no uid", ErrBadResponse)
	}
	return &ids, nil
}

// CreateStudent registers a student on the remote.
func (c *Client) CreateStudent(ctx context.Context, authorization string, s *model.Student) error {
	return c.do(ctx, http.MethodPost, "/students/", authorization, s, nil)
}

// GetStudent fetches the remote record for uid. Returns nil with a nil
// error when the remote answers 404.
func (c *Client) GetStudent(ctx context.Context, uid int) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/students/%d", uid), "", nil, &out)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetStudentByStudentID resolves a human-facing student id to the full
// remote record. Returns nil with a nil error on 404.
func (c *Client) GetStudentByStudentID(ctx context.Context, studentID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/internal/students/by-student-id/"+studentID, "", nil, &out)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

type attendancePayload struct {
	UID               int    `json:"uid"`
	Timestamp         string `json:"timestamp"`
	AssistantApproved bool   `json:"assistant_approved,omitempty"`
}

// PostAttendance submits one capture for validation. assistantApproved
// bypasses the remote's group schedule check and is only ever set from
// an explicit assistant decision. A 200 answer is returned decoded (it
// carries the student's group among other fields); any other status
// comes back as a RemoteError.
func (c *Client) PostAttendance(ctx context.Context, uid int, ts time.Time, assistantApproved bool) (map[string]any, error) {
	payload := attendancePayload{
		UID:               uid,
		Timestamp:         ts.Format(time.RFC3339),
		AssistantApproved: assistantApproved,
	}
	var out map[string]any
	if err := c.do(ctx, http.MethodPost, "/attendance/", "", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetExam fetches exam metadata for the exam-correction collaborator.
func (c *Client) GetExam(ctx context.Context, examID string) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/internal/exams/"+examID, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostExamResults stores a graded exam result on the remote.
func (c *Client) PostExamResults(ctx context.Context, examID string, result any) error {
	return c.do(ctx, http.MethodPost, "/internal/exams/"+examID+"/results", "", result, nil)
}

// PutStudentExamResult replaces one student's result for an exam.
func (c *Client) PutStudentExamResult(ctx context.Context, examID, studentID string, result any) error {
	path := "/internal/exams/" + examID + "/students/" + studentID + "/results"
	return c.do(ctx, http.MethodPut, path, "", result, nil)
}

// do runs one round-trip. A non-2xx answer becomes a RemoteError; a
// transport failure becomes ErrNetwork or ErrTimeout.
func (c *Client) do(ctx context.Context, method, path, authorization string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		err = classify(err)
		c.log.WithError(err).WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).Debug("Remote request failed")
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
	}
	return nil
}

func notFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}

// classify maps a transport error onto the package's failure classes.
// Caller-initiated cancellation passes through untouched.
func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
