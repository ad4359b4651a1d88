package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/karloscodes/fiberadmin/cache"
	"github.com/karloscodes/fiberadmin/middleware"
	"github.com/karloscodes/fiberadmin/models"
)

// ErrInvalidCredentials is returned when a username or password does not match.
var ErrInvalidCredentials = errors.New("admin: invalid username or password")

// Provider authenticates admin requests and may add its own routes.
type Provider interface {
	Name() string

	// Register is called from Configure with the module's routes open for
	// additions.
	Register(m *Module) error

	// Authenticate returns the request's session, or nil when it has none.
	Authenticate(c *fiber.Ctx) (*Session, error)
}

// LoginConfig configures the username/password provider.
type LoginConfig struct {
	// Secret signs session cookies. Required.
	Secret string

	LoginLogoURL string

	// LoginTitle heads the login form. Default: "Login to your account".
	LoginTitle string

	// CookieName defaults to "fiberadmin_session".
	CookieName string

	// TTL is the session lifetime. Default: 1 hour.
	TTL time.Duration

	// RememberTTL is used when "remember me" is ticked. Default: 30 days.
	RememberTTL time.Duration

	// Secure marks the session cookie HTTPS-only.
	Secure bool

	// MaxAttempts login posts are allowed per client IP in AttemptWindow.
	// Defaults: 5 per minute.
	MaxAttempts   int
	AttemptWindow time.Duration
}

// LoginProvider signs admins in with a username and a bcrypt-hashed
// password. Sessions live in the module's cache. When no admin exists the
// login page redirects to /init, which creates the first one.
type LoginProvider struct {
	cfg      LoginConfig
	module   *Module
	sessions *sessionStore
}

var _ Provider = (*LoginProvider)(nil)

// NewLoginProvider applies defaults to cfg.
func NewLoginProvider(cfg LoginConfig) *LoginProvider {
	if cfg.LoginTitle == "" {
		cfg.LoginTitle = "Login to your account"
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "fiberadmin_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.RememberTTL <= 0 {
		cfg.RememberTTL = 30 * 24 * time.Hour
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = time.Minute
	}
	return &LoginProvider{cfg: cfg}
}

func (p *LoginProvider) Name() string { return "login" }

// Register adds /login, /logout, /init and /password.
func (p *LoginProvider) Register(m *Module) error {
	if p.cfg.Secret == "" {
		return errors.New("login provider requires a secret")
	}
	store, err := m.Cache()
	if err != nil {
		return err
	}

	p.module = m
	p.sessions = &sessionStore{
		store:      store,
		cookieName: p.cfg.CookieName,
		secret:     []byte(p.cfg.Secret),
		secure:     p.cfg.Secure,
		path:       m.Prefix(),
	}

	throttle := middleware.RateLimiter(
		middleware.WithMax(p.cfg.MaxAttempts),
		middleware.WithDuration(p.cfg.AttemptWindow),
		middleware.WithStorage(cache.NewFiberStorage(store, "limiter:login:")),
		middleware.WithKeyGenerator(loginThrottleKey),
		// A successful login redirects (303); only failed attempts count.
		middleware.WithSkipSuccessfulRequests(),
		middleware.WithLimitReached(p.tooManyAttempts),
	)

	app := m.App()
	app.Get("/login", p.loginPage)
	app.Post("/login", throttle, p.login)
	app.Get("/logout", p.logout)
	app.Get("/init", p.initPage)
	app.Post("/init", p.initAdmin)
	app.Get("/password", m.RequireAuth, p.passwordPage)
	app.Post("/password", m.RequireAuth, p.changePassword)
	return nil
}

// Authenticate reads the session cookie.
func (p *LoginProvider) Authenticate(c *fiber.Ctx) (*Session, error) {
	if p.sessions == nil {
		return nil, nil
	}
	return p.sessions.load(c)
}

func (p *LoginProvider) db(ctx context.Context) (*gorm.DB, error) {
	db, err := p.module.DB()
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

func (p *LoginProvider) adminExists(ctx context.Context) (bool, error) {
	db, err := p.db(ctx)
	if err != nil {
		return false, err
	}
	var n int64
	if err := db.Model(&models.Admin{}).Count(&n).Error; err != nil {
		return false, fmt.Errorf("admin: count admins: %w", err)
	}
	return n > 0, nil
}

// authenticate checks the credentials against the admins table.
func (p *LoginProvider) authenticate(ctx context.Context, username, password string) (*models.Admin, error) {
	db, err := p.db(ctx)
	if err != nil {
		return nil, err
	}
	var admin models.Admin
	err = db.Where("username = ?", username).Take(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("admin: load admin: %w", err)
	}
	if !admin.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return &admin, nil
}

func (p *LoginProvider) renderLogin(c *fiber.Ctx, status int, username, message string) error {
	return p.module.Render(c, status, "login", fiber.Map{
		"LoginLogoURL": p.cfg.LoginLogoURL,
		"LoginTitle":   p.cfg.LoginTitle,
		"Username":     username,
		"Error":        message,
	})
}

func (p *LoginProvider) loginPage(c *fiber.Ctx) error {
	exists, err := p.adminExists(c.UserContext())
	if err != nil {
		return err
	}
	if !exists {
		return c.Redirect(p.module.URL("/init"), fiber.StatusSeeOther)
	}
	if s, _ := p.Authenticate(c); s != nil {
		return c.Redirect(p.module.URL("/"), fiber.StatusSeeOther)
	}
	return p.renderLogin(c, fiber.StatusOK, "", "")
}

func (p *LoginProvider) login(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")

	admin, err := p.authenticate(c.UserContext(), username, password)
	if errors.Is(err, ErrInvalidCredentials) {
		p.module.Logger().Warn("admin login failed",
			slog.String("username", username),
			slog.String("ip", c.IP()),
		)
		return p.renderLogin(c, fiber.StatusUnauthorized, username, "Invalid username or password.")
	}
	if err != nil {
		return err
	}

	ttl := p.cfg.TTL
	if c.FormValue("remember_me") == "on" {
		ttl = p.cfg.RememberTTL
	}
	if _, err := p.sessions.create(c, admin.ID, admin.Username, p.Name(), ttl); err != nil {
		return err
	}

	db, err := p.db(c.UserContext())
	if err != nil {
		return err
	}
	if err := db.Model(admin).UpdateColumn("last_login", time.Now().UTC()).Error; err != nil {
		p.module.Logger().Warn("failed to record last login", slog.Uint64("admin_id", uint64(admin.ID)), slog.Any("error", err))
	}

	p.module.Logger().Info("admin signed in", slog.String("username", admin.Username))
	return c.Redirect(p.module.URL("/"), fiber.StatusSeeOther)
}

// loginThrottleKey counts attempts per client IP and username, so one
// client guessing at an account does not lock everyone else out of it.
func loginThrottleKey(c *fiber.Ctx) string {
	return c.IP() + "|" + strings.ToLower(strings.TrimSpace(c.FormValue("username")))
}

func (p *LoginProvider) tooManyAttempts(c *fiber.Ctx) error {
	return p.renderLogin(c, fiber.StatusTooManyRequests, c.FormValue("username"), "Too many login attempts, try again later.")
}

func (p *LoginProvider) logout(c *fiber.Ctx) error {
	if err := p.sessions.destroy(c); err != nil {
		p.module.Logger().Warn("failed to delete session", slog.Any("error", err))
	}
	return c.Redirect(p.module.URL("/login"), fiber.StatusSeeOther)
}

func (p *LoginProvider) renderInit(c *fiber.Ctx, status int, username, message string) error {
	return p.module.Render(c, status, "init", fiber.Map{
		"LoginLogoURL": p.cfg.LoginLogoURL,
		"Username":     username,
		"Error":        message,
	})
}

func (p *LoginProvider) initPage(c *fiber.Ctx) error {
	exists, err := p.adminExists(c.UserContext())
	if err != nil {
		return err
	}
	if exists {
		return c.Redirect(p.module.URL("/login"), fiber.StatusSeeOther)
	}
	return p.renderInit(c, fiber.StatusOK, "", "")
}

func (p *LoginProvider) initAdmin(c *fiber.Ctx) error {
	ctx := c.UserContext()
	exists, err := p.adminExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return c.Redirect(p.module.URL("/login"), fiber.StatusSeeOther)
	}

	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	if password == "" || password != c.FormValue("confirm_password") {
		return p.renderInit(c, fiber.StatusBadRequest, username, "Passwords do not match.")
	}

	admin := &models.Admin{Username: username}
	if err := admin.SetPassword(password); err != nil {
		return p.renderInit(c, fiber.StatusBadRequest, username, "Invalid password.")
	}

	db, err := p.db(ctx)
	if err != nil {
		return err
	}
	if err := db.Create(admin).Error; err != nil {
		if errors.Is(err, models.ErrInvalidField) {
			return p.renderInit(c, fiber.StatusBadRequest, username, "Username must be 1 to 50 characters.")
		}
		return fmt.Errorf("admin: create first admin: %w", err)
	}

	p.module.Logger().Info("first admin created", slog.String("username", admin.Username))
	return c.Redirect(p.module.URL("/login"), fiber.StatusSeeOther)
}

func (p *LoginProvider) renderPassword(c *fiber.Ctx, status int, message string) error {
	return p.module.Render(c, status, "password", fiber.Map{"Error": message})
}

func (p *LoginProvider) passwordPage(c *fiber.Ctx) error {
	return p.renderPassword(c, fiber.StatusOK, "")
}

func (p *LoginProvider) changePassword(c *fiber.Ctx) error {
	session := SessionFrom(c)
	if session == nil {
		return fiber.ErrUnauthorized
	}
	db, err := p.db(c.UserContext())
	if err != nil {
		return err
	}

	var admin models.Admin
	err = db.Take(&admin, session.AdminID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("admin: load admin: %w", err)
	}

	if !admin.CheckPassword(c.FormValue("old_password")) {
		return p.renderPassword(c, fiber.StatusBadRequest, "Current password is incorrect.")
	}
	newPassword := c.FormValue("new_password")
	if newPassword == "" || newPassword != c.FormValue("re_new_password") {
		return p.renderPassword(c, fiber.StatusBadRequest, "New passwords do not match.")
	}
	if err := admin.SetPassword(newPassword); err != nil {
		return p.renderPassword(c, fiber.StatusBadRequest, "Invalid password.")
	}
	if err := db.Model(&admin).UpdateColumn("password", admin.Password).Error; err != nil {
		return fmt.Errorf("admin: update password: %w", err)
	}

	// The current session ends; the admin signs in again with the new password.
	if err := p.sessions.destroy(c); err != nil {
		p.module.Logger().Warn("failed to delete session", slog.Any("error", err))
	}
	p.module.Logger().Info("admin password changed", slog.String("username", admin.Username))
	return c.Redirect(p.module.URL("/login"), fiber.StatusSeeOther)
}
