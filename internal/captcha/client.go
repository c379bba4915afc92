// Package captcha is a client for cap.guru-style image CAPTCHA solving
// services (in.php / res.php protocol).
package captcha

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"regcheck/internal/scraper"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultSubmitURL = "https://api.cap.guru/in.php"
	DefaultResultURL = "https://api.cap.guru/res.php"

	notReady  = "CAPCHA_NOT_READY"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"
)

type Config struct {
	APIKey       string
	SubmitURL    string
	ResultURL    string
	WarmUp       time.Duration // before the first poll
	PollInterval time.Duration
	MaxPolls     int
	// Deadline bounds a whole Solve call; zero disables it.
	Deadline    time.Duration
	HTTPTimeout time.Duration
	// Vernet is passed through to res.php when non-zero.
	Vernet int
	// RateLimit caps requests per second; zero disables it.
	RateLimit float64
}

func DefaultConfig() Config {
	return Config{
		SubmitURL:    DefaultSubmitURL,
		ResultURL:    DefaultResultURL,
		WarmUp:       10 * time.Second,
		PollInterval: 5 * time.Second,
		MaxPolls:     20,
		Deadline:     3 * time.Minute,
		HTTPTimeout:  30 * time.Second,
		Vernet:       2,
		RateLimit:    2,
	}
}

type Status string

const (
	StatusSubmitted Status = "SUBMITTED"
	StatusPending   Status = "PENDING"
	StatusSolved    Status = "SOLVED"
	StatusFailed    Status = "FAILED"
)

// Task is one submitted image. A task is never reused after it reaches
// StatusSolved or StatusFailed.
type Task struct {
	ID          string
	ImageBase64 string
	Solution    string
	Status      Status
}

type apiResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

type Client struct {
	http *resty.Client
	cfg  Config
	log  *logrus.Entry
}

func NewClient(cfg Config, log *logrus.Entry) *Client {
	httpClient := resty.New()
	httpClient.SetTimeout(cfg.HTTPTimeout)
	httpClient.SetHeader("user-agent", userAgent)

	if cfg.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	return &Client{
		http: httpClient,
		cfg:  cfg,
		log:  log.WithField("component", "captcha"),
	}
}

// Solve submits a raw image and waits for its text. An empty string with a
// nil error means no solution arrived in time; the caller should retry with
// a fresh image.
func (c *Client) Solve(ctx context.Context, image []byte) (string, error) {
	task, err := c.SolveTask(ctx, base64.StdEncoding.EncodeToString(image))
	if err != nil {
		return "", err
	}
	if task == nil || task.Status != StatusSolved {
		return "", nil
	}
	return task.Solution, nil
}

// SolveTask runs the submit / warm-up / poll cycle for a base64 image.
func (c *Client) SolveTask(ctx context.Context, imageBase64 string) (*Task, error) {
	runCtx := ctx
	if c.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.Deadline)
		defer cancel()
	}

	task, err := c.Submit(runCtx, imageBase64)
	if err != nil {
		return nil, c.deadlineOr(ctx, task, err)
	}
	log := c.log.WithField("task_id", task.ID)
	log.Info("captcha submitted")

	task.Status = StatusPending
	if err := scraper.Pause(runCtx, c.cfg.WarmUp); err != nil {
		return task, c.deadlineOr(ctx, task, err)
	}

	for i := 0; i < c.cfg.MaxPolls; i++ {
		if i > 0 {
			if err := scraper.Pause(runCtx, c.cfg.PollInterval); err != nil {
				return task, c.deadlineOr(ctx, task, err)
			}
		}
		if err := c.Poll(runCtx, task); err != nil {
			return task, c.deadlineOr(ctx, task, err)
		}
		if task.Status == StatusSolved {
			log.Info("captcha solved")
			return task, nil
		}
		log.WithField("poll", i+1).Debug("captcha not ready yet")
	}

	log.WithField("polls", c.cfg.MaxPolls).Warn("no captcha solution within poll budget")
	return task, nil
}

// Submit posts the image to the submission endpoint.
func (c *Client) Submit(ctx context.Context, imageBase64 string) (*Task, error) {
	var out apiResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"key":    c.cfg.APIKey,
			"method": "base64",
			"body":   imageBase64,
			"json":   "1",
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Post(c.cfg.SubmitURL)
	if err := c.checkResponse(ctx, "submit", res, err); err != nil {
		return nil, err
	}
	if out.Status != 1 {
		code := out.Request
		if code == "" {
			code = "unknown API error"
		}
		c.log.WithField("code", code).Error("captcha submission rejected")
		return nil, &RejectedError{Stage: "submit", Code: code}
	}
	return &Task{ID: out.Request, ImageBase64: imageBase64, Status: StatusSubmitted}, nil
}

// Poll asks once for the task result and updates task in place.
func (c *Client) Poll(ctx context.Context, task *Task) error {
	params := map[string]string{
		"key":    c.cfg.APIKey,
		"action": "get",
		"id":     task.ID,
		"json":   "1",
	}
	if c.cfg.Vernet != 0 {
		params["vernet"] = strconv.Itoa(c.cfg.Vernet)
	}

	var out apiResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		ForceContentType("application/json").
		Get(c.cfg.ResultURL)
	if err := c.checkResponse(ctx, "poll", res, err); err != nil {
		return err
	}

	switch {
	case out.Status == 1:
		task.Solution = out.Request
		task.Status = StatusSolved
	case out.Request == notReady:
		task.Status = StatusPending
	default:
		task.Status = StatusFailed
		code := out.Request
		if code == "" {
			code = "unknown result error"
		}
		c.log.WithFields(logrus.Fields{"task_id": task.ID, "code": code}).Error("captcha task failed")
		return &RejectedError{Stage: "poll", Code: code}
	}
	return nil
}

func (c *Client) checkResponse(ctx context.Context, stage string, res *resty.Response, err error) error {
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// a decoded-but-garbled body is still an answer from the service
		if res != nil && res.RawResponse != nil && !res.IsError() {
			return &RejectedError{Stage: stage, Code: "malformed response"}
		}
		c.log.WithError(err).WithField("stage", stage).Error("captcha solver unreachable")
		return unavailable(stage, err)
	}
	if res.IsError() {
		c.log.WithField("status", res.StatusCode()).WithField("stage", stage).Error("captcha solver http error")
		return unavailable(stage, fmt.Errorf("http status %d", res.StatusCode()))
	}
	return nil
}

// deadlineOr turns expiry of the Solve deadline into "no solution" while
// still reporting cancellation of the caller's own context.
func (c *Client) deadlineOr(parent context.Context, task *Task, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if parent.Err() != nil {
			return parent.Err()
		}
		entry := c.log
		if task != nil {
			entry = entry.WithField("task_id", task.ID)
		}
		entry.WithField("deadline", c.cfg.Deadline).Warn("captcha solve deadline reached")
		return nil
	}
	return err
}
