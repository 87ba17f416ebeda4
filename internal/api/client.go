// Package api is the console's gateway to the backend REST service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-console/internal/auth"
	"github.com/ukydev/fleet-console/internal/models"
	"github.com/ukydev/fleet-console/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Navigator moves the operator to another screen, e.g. the login page.
type Navigator interface {
	Redirect(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Redirect calls f(path).
func (f NavigatorFunc) Redirect(path string) { f(path) }

// Options configures a Client.
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	SessionCookie string
	RedirectDelay time.Duration
	Notifier      notify.Notifier
	Navigator     Navigator
	// AfterFunc schedules f after d. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func())
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client issues JSON requests to the backend with the session cookie attached
// and turns failures into notifications plus a classified *Error.
type Client struct {
	baseURL       *url.URL
	http          *http.Client
	session       *auth.Session
	notifier      notify.Notifier
	navigator     Navigator
	cookieName    string
	redirectDelay time.Duration
	afterFunc     func(time.Duration, func())
}

// NewClient creates a backend client bound to session.
func NewClient(session *auth.Session, opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL:       base,
		http:          &http.Client{Jar: jar, Timeout: opts.Timeout, Transport: opts.Transport},
		session:       session,
		notifier:      opts.Notifier,
		navigator:     opts.Navigator,
		cookieName:    opts.SessionCookie,
		redirectDelay: opts.RedirectDelay,
		afterFunc:     opts.AfterFunc,
	}
	if c.notifier == nil {
		c.notifier = notify.NewLogNotifier()
	}
	if c.cookieName == "" {
		c.cookieName = "token"
	}
	if c.afterFunc == nil {
		c.afterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}

	if token := session.Token(); token != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: c.cookieName, Value: token, Path: "/"}})
	}
	return c, nil
}

// SessionToken returns the session cookie the backend last set, if any.
func (c *Client) SessionToken() string {
	for _, cookie := range c.http.Jar.Cookies(c.baseURL) {
		if cookie.Name == c.cookieName {
			return cookie.Value
		}
	}
	return ""
}

// Session returns the session the client is bound to.
func (c *Client) Session() *auth.Session {
	return c.session
}

// Get issues a GET request and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends a request to path relative to the base URL. body, when non-nil, is
// sent as JSON; a 2xx response is decoded into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return c.fail(&Error{Kind: KindClient, Message: err.Error(), Err: err})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
		}
		return c.fail(&Error{Kind: KindNetwork, Message: err.Error(), Err: err})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(&Error{Kind: KindNetwork, Status: resp.StatusCode, Message: err.Error(), Err: err})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(&Error{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: messageFromBody(data, resp.StatusCode),
		})
	}

	log.WithFields(log.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("API request completed")

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		err = fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		return c.fail(&Error{Kind: KindOther, Status: resp.StatusCode, Message: "Unexpected response from server.", Err: err})
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// fail notifies the operator about e, applies its session side effects and
// returns it.
func (c *Client) fail(e *Error) error {
	fields := log.Fields{"kind": e.Kind.String(), "status": e.Status}
	if e.Err != nil {
		log.WithFields(fields).WithError(e.Err).Error("API request failed")
	} else {
		log.WithFields(fields).Error("API request failed: " + e.Message)
	}

	switch e.Kind {
	case KindUnauthorized:
		// read the role before the session is torn down
		var user *models.User
		if current, ok := c.session.User(); ok {
			user = &current
		}
		c.endSession()
		c.toast("Session Expired", "Please log in again to continue.")
		c.scheduleRedirect(auth.RedirectPath(user))
	case KindForbidden:
		c.endSession()
		c.toast("Access Denied", "You don't have permission to perform this action.")
		c.scheduleRedirect(auth.AdminLoginPath)
	case KindNotFound:
		c.toast("Not Found", "The requested resource was not found.")
	case KindValidation:
		c.toast("Validation Error", orDefault(e.bodyMessage(), "Please check your input."))
	case KindServer:
		c.toast("Server Error", "Something went wrong. Please try again later.")
	case KindNetwork:
		c.toast("Network Error", "Please check your internet connection and try again.")
	case KindClient:
		c.toast("Error", orDefault(e.Message, "An unexpected error occurred."))
	default:
		c.toast("Error", orDefault(e.bodyMessage(), "An unexpected error occurred."))
	}
	return e
}

func (c *Client) endSession() {
	if err := c.session.End(); err != nil {
		log.WithError(err).Error("Failed to clear session")
	}
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{Name: c.cookieName, Value: "", Path: "/", MaxAge: -1}})
}

func (c *Client) scheduleRedirect(path string) {
	if c.navigator == nil {
		return
	}
	c.afterFunc(c.redirectDelay, func() { c.navigator.Redirect(path) })
}

func (c *Client) toast(title, description string) {
	c.notifier.Notify(notify.Notification{
		Title:       title,
		Description: description,
		Variant:     notify.VariantDestructive,
		Time:        time.Now(),
	})
}

// bodyMessage returns the server-provided message, or "" when the message was
// synthesized from the status code.
func (e *Error) bodyMessage() string {
	if e.Status != 0 && e.Message == http.StatusText(e.Status) {
		return ""
	}
	return e.Message
}

func messageFromBody(data []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(status)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ErrInvalidID is wrapped into a KindClient error when a caller passes an id
// the backend could never accept.
var ErrInvalidID = errors.New("invalid id")

// checkID rejects ids that are not MongoDB ObjectIDs before any request is made.
func (c *Client) checkID(id string) error {
	if !primitive.IsValidObjectID(id) {
		err := fmt.Errorf("%w: %q", ErrInvalidID, id)
		return c.fail(&Error{Kind: KindClient, Message: err.Error(), Err: err})
	}
	return nil
}
