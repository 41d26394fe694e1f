package session

import (
	"context"
	"strings"
	"sync"

	"lexadoc/internal/domain"
	"lexadoc/internal/errx"
	"lexadoc/internal/logger"
	"lexadoc/internal/transport"
)

const module = "session"

// Status is the client's belief about the credential.
type Status int

const (
	Checking Status = iota
	Unauthenticated
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Checking:
		return "checking"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// ProbeReason records why the startup probe resolved the way it did.
// Unauthorized and Unreachable both collapse to Unauthenticated.
type ProbeReason string

const (
	ProbePending      ProbeReason = ""
	ProbeOK           ProbeReason = "ok"
	ProbeUnauthorized ProbeReason = "unauthorized"
	ProbeUnreachable  ProbeReason = "unreachable"
)

// Snapshot is an immutable view of the session.
type Snapshot struct {
	Status  Status
	Profile *domain.Profile
	Error   string
	Message string
	Probe   ProbeReason
}

// RegisterResult tells the caller what to present after registration.
type RegisterResult struct {
	ShowLogin bool
	Message   string
}

// Options configures a Controller.
type Options struct {
	// ServerLogout makes Logout call POST /logout after the local transition.
	ServerLogout bool
	Logger       logger.Logger
}

// Controller owns the session state machine:
// Checking -> {Authenticated, Unauthenticated}, Unauthenticated <-> Authenticated.
type Controller struct {
	api          domain.SessionAPI
	log          logger.Logger
	serverLogout bool

	mu       sync.Mutex
	status   Status
	profile  *domain.Profile
	err      string
	msg      string
	probe    ProbeReason
	probed   bool
	epoch    uint64
	onLogout []func()
}

// New creates a controller in the Checking state.
func New(api domain.SessionAPI, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Controller{api: api, log: log, serverLogout: opts.ServerLogout, status: Checking}
}

// OnLogout registers fn to run right after the local logout transition,
// before any server call. Used for cross-component resets.
func (c *Controller) OnLogout(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLogout = append(c.onLogout, fn)
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{Status: c.status, Error: c.err, Message: c.msg, Probe: c.probe}
	if c.profile != nil {
		p := *c.profile
		snap.Profile = &p
	}
	return snap
}

// Status returns the current status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// CheckSession probes GET /me once. Later calls return the current status without a request.
func (c *Controller) CheckSession(ctx context.Context) Status {
	c.mu.Lock()
	if c.probed {
		s := c.status
		c.mu.Unlock()
		return s
	}
	c.probed = true
	c.mu.Unlock()

	profile, err := c.api.Me(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.status = Unauthenticated
		c.probe = ProbeUnreachable
		if transport.IsUnauthorized(err) {
			c.probe = ProbeUnauthorized
		}
		c.log.Warn(module, "session probe failed", map[string]interface{}{
			"reason": string(c.probe), "error": err.Error(),
		})
		return c.status
	}
	c.status = Authenticated
	c.profile = profile
	c.probe = ProbeOK
	c.log.Info(module, "session probe resolved", map[string]interface{}{"username": profile.Username})
	return c.status
}

// Login authenticates with username and password. It is only valid from Unauthenticated.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	req := domain.LoginRequest{Username: strings.TrimSpace(username), Password: password}

	c.mu.Lock()
	switch c.status {
	case Checking:
		c.mu.Unlock()
		return errx.New(errx.KindState, errx.LoginFailedMessage, errx.ErrSessionChecking)
	case Authenticated:
		c.mu.Unlock()
		return errx.New(errx.KindState, errx.LoginFailedMessage, errx.ErrAlreadyAuthenticated)
	}
	if err := domain.Validate(req); err != nil {
		c.err = errx.LoginFailedMessage
		c.mu.Unlock()
		return errx.Validation(errx.LoginFailedMessage, err)
	}
	epoch := c.epoch
	c.mu.Unlock()

	err := c.api.Login(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return errx.New(errx.KindState, errx.LoginFailedMessage, errx.ErrStale)
	}
	if err != nil {
		c.err = errx.LoginFailedMessage
		c.log.Warn(module, "login failed", map[string]interface{}{"username": req.Username, "error": err.Error()})
		return errx.Transport(errx.LoginFailedMessage, err)
	}
	c.status = Authenticated
	c.profile = &domain.Profile{Username: req.Username}
	c.err = ""
	c.msg = ""
	c.log.Info(module, "logged in", map[string]interface{}{"username": req.Username})
	return nil
}

// Register creates an account. It never authenticates the session.
func (c *Controller) Register(ctx context.Context, username, email, password string) (RegisterResult, error) {
	req := domain.RegisterRequest{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	failed := RegisterResult{Message: errx.RegistrationFailedMessage}

	c.mu.Lock()
	if c.status == Checking {
		c.mu.Unlock()
		return failed, errx.New(errx.KindState, errx.RegistrationFailedMessage, errx.ErrSessionChecking)
	}
	if err := domain.Validate(req); err != nil {
		c.msg = errx.RegistrationFailedMessage
		c.mu.Unlock()
		return failed, errx.Validation(errx.RegistrationFailedMessage, err)
	}
	c.mu.Unlock()

	err := c.api.Register(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.msg = errx.RegistrationFailedMessage
		c.log.Warn(module, "registration failed", map[string]interface{}{"username": req.Username, "error": err.Error()})
		return failed, errx.Transport(errx.RegistrationFailedMessage, err)
	}
	c.msg = errx.RegistrationOKMessage
	c.log.Info(module, "registered", map[string]interface{}{"username": req.Username})
	return RegisterResult{ShowLogin: true, Message: errx.RegistrationOKMessage}, nil
}

// Logout drops to Unauthenticated locally, runs the OnLogout hooks, then
// (if enabled) invalidates the server session. The local transition stands
// even when the server call fails.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.status == Checking {
		c.mu.Unlock()
		return errx.New(errx.KindState, errx.LogoutFailedMessage, errx.ErrSessionChecking)
	}
	wasAuthenticated := c.status == Authenticated
	c.status = Unauthenticated
	c.profile = nil
	c.err = ""
	c.msg = ""
	c.epoch++
	hooks := append([]func(){}, c.onLogout...)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	c.log.Info(module, "logged out", map[string]interface{}{"server_logout": c.serverLogout && wasAuthenticated})

	if !c.serverLogout || !wasAuthenticated {
		return nil
	}
	if err := c.api.Logout(ctx); err != nil {
		c.log.Warn(module, "server logout failed", map[string]interface{}{"error": err.Error()})
		return errx.Transport(errx.LogoutFailedMessage, err)
	}
	return nil
}
