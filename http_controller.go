package identity

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// AuthController exposes the HTTP surface. It is orchestration only: each
// handler validates its payload, calls one service path, and maps the
// result onto the wire.
type AuthController struct {
	Logger      Logger
	Accounts    *AccountService
	Tokens      *TokenService
	VerifyCodec *URLTokenCodec
	ResetCodec  *URLTokenCodec
	Revoked     RevocationStore
	Mailer      Mailer
	Domain      string
}

// AuthControllerOption configures the controller.
type AuthControllerOption func(*AuthController) *AuthController

// NewAuthController builds the controller, panicking on missing required
// collaborators since this runs once at process start.
func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Accounts == nil {
		panic("missing AccountService in auth controller")
	}

	if c.Tokens == nil {
		panic("missing TokenService in auth controller")
	}

	if c.Revoked == nil {
		panic("missing RevocationStore in auth controller")
	}

	if c.VerifyCodec == nil {
		panic("missing verification URLTokenCodec in auth controller")
	}

	if c.Mailer == nil {
		c.Mailer = NewLogMailer(c.Logger)
	}

	return c
}

// WithLogger sets the controller logger.
func WithLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

// WithAccounts sets the account service.
func WithAccounts(accounts *AccountService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Accounts = accounts
		return c
	}
}

// WithTokens sets the token service.
func WithTokens(tokens *TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

// WithVerifyCodec sets the email-verification token codec.
func WithVerifyCodec(codec *URLTokenCodec) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.VerifyCodec = codec
		return c
	}
}

// WithResetCodec sets the password-reset token codec.
func WithResetCodec(codec *URLTokenCodec) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ResetCodec = codec
		return c
	}
}

// WithRevocationStore sets the jti deny-list.
func WithRevocationStore(store RevocationStore) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Revoked = store
		return c
	}
}

// WithMailer sets the mail transport.
func WithMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

// WithDomain sets the public base URL used in mailed links.
func WithDomain(domain string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Domain = domain
		return c
	}
}

// RegisterAuthRoutes mounts the auth surface under /auth.
func RegisterAuthRoutes(app fiber.Router, c *AuthController) {
	access := NewAccessGuard(c.Tokens, c.Revoked, c.Logger)
	refresh := NewRefreshGuard(c.Tokens, c.Revoked, c.Logger)
	role := NewRoleGuard(c.Accounts, RoleUser, RoleAdmin).WithLogger(c.Logger)

	grp := app.Group("/auth")

	grp.Post("/register", c.Register)
	grp.Post("/send_mail", c.SendMail)
	grp.Get("/verify/:token", c.Verify)
	grp.Post("/login", c.Login)
	grp.Get("/refresh_token", refresh.Handle, role.Handle, c.RefreshToken)
	grp.Get("/me", access.Handle, role.Handle, c.Me)
	grp.Get("/logout", access.Handle, role.Handle, c.Logout)
	grp.Post("/password_reset", c.PasswordResetRequest)
	grp.Post("/password_reset/confirm", c.PasswordResetConfirm)
}

// CreateUserRequest payload
type CreateUserRequest struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 20)),
		validation.Field(&r.MiddleName, validation.Length(0, 20)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 20)),
		validation.Field(&r.Username, validation.Length(0, 20)),
		validation.Field(&r.Email, validation.Required, is.Email, validation.Length(1, 50)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// EmailRequest payload
type EmailRequest struct {
	Addresses []string `json:"addresses"`
}

// Validate will run validation rules
func (r EmailRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Addresses, validation.Required),
	); err != nil {
		return err
	}

	for _, addr := range r.Addresses {
		if err := is.Email.Validate(addr); err != nil {
			return err
		}
	}

	return nil
}

// PasswordResetRequestPayload payload
type PasswordResetRequestPayload struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// PasswordResetConfirmRequest payload
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// Validate will run validation rules
func (r PasswordResetConfirmRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 128)),
	)
}

// Register creates an account and mails a verification link. A failed
// mail send does not roll the account back; the link can be re-requested.
func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(CreateUserRequest)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request payload"))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryValidation, err.Error()))
	}

	user, err := a.Accounts.CreateUser(c.Context(), RegistrationInput{
		FirstName:  payload.FirstName,
		MiddleName: payload.MiddleName,
		LastName:   payload.LastName,
		Username:   payload.Username,
		Email:      payload.Email,
		Password:   payload.Password,
	})
	if err != nil {
		return respondError(c, err)
	}

	token, err := a.VerifyCodec.Issue(map[string]string{"email": user.Email})
	if err != nil {
		a.Logger.Error("failed to issue verification token for %s: %v", user.Email, err)
	} else {
		subject, html := VerificationEmail(a.Domain, token)
		if err := a.Mailer.Send(c.Context(), []string{user.Email}, subject, html); err != nil {
			a.Logger.Warn("verification mail to %s failed: %v", user.Email, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "account created, check your email to verify the account",
		"user":    user,
	})
}

// SendMail fires a templated message to the given addresses.
func (a *AuthController) SendMail(c *fiber.Ctx) error {
	payload := new(EmailRequest)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request payload"))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryValidation, err.Error()))
	}

	html := "<h1>Welcome</h1><p>Thanks for checking out the service.</p>"
	if err := a.Mailer.Send(c.Context(), payload.Addresses, "Welcome", html); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "email sent successfully"})
}

// Verify consumes an emailed verification token. The mutation is
// idempotent, so replaying a still-valid link is harmless.
func (a *AuthController) Verify(c *fiber.Ctx) error {
	data, err := a.VerifyCodec.Decode(c.Params("token"))
	if err != nil {
		a.Logger.Warn("verification token rejected: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "error occurred during verification",
		})
	}

	email, ok := data["email"]
	if !ok || email == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "error occurred during verification",
		})
	}

	if _, err := a.Accounts.MarkVerified(c.Context(), email); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "account verified successfully"})
}

// Login checks credentials and issues an access/refresh token pair.
func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request payload"))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryValidation, err.Error()))
	}

	user, err := a.Accounts.VerifyCredentials(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return respondError(c, err)
	}

	accessToken, err := a.Tokens.Issue(user, false, 0)
	if err != nil {
		return respondError(c, err)
	}

	refreshToken, err := a.Tokens.Issue(user, true, 0)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":       "login successful",
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": fiber.Map{
			"uid":   user.UID,
			"name":  user.FullName(),
			"email": user.Email,
		},
	})
}

// RefreshToken issues a fresh access token for the refresh-token bearer.
func (a *AuthController) RefreshToken(c *fiber.Ctx) error {
	user, err := UserFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	accessToken, err := a.Tokens.Issue(user, false, 0)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"access_token": accessToken})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(c *fiber.Ctx) error {
	user, err := UserFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(user)
}

// Logout revokes the presented access token for its remaining lifetime.
func (a *AuthController) Logout(c *fiber.Ctx) error {
	claims, err := ClaimsFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := a.Revoked.Add(c.Context(), claims.JTI(), claims.TimeToExpiry()); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "logged out successfully"})
}

// PasswordResetRequest mails a reset link. The response does not reveal
// whether the email is registered.
func (a *AuthController) PasswordResetRequest(c *fiber.Ctx) error {
	payload := new(PasswordResetRequestPayload)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request payload"))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryValidation, err.Error()))
	}

	ok := fiber.Map{"message": "if the account exists, a reset link has been sent"}

	if a.ResetCodec == nil {
		return c.JSON(ok)
	}

	user, err := a.Accounts.FindByEmail(c.Context(), payload.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			a.Logger.Error("password reset lookup failed: %v", err)
		}
		return c.JSON(ok)
	}

	token, err := a.ResetCodec.Issue(map[string]string{
		"email": user.Email,
		"sig":   PasswordFingerprint(user.PasswordHash),
	})
	if err != nil {
		a.Logger.Error("failed to issue reset token for %s: %v", user.Email, err)
		return c.JSON(ok)
	}

	subject, html := PasswordResetEmail(a.Domain, token)
	if err := a.Mailer.Send(c.Context(), []string{user.Email}, subject, html); err != nil {
		a.Logger.Warn("reset mail to %s failed: %v", user.Email, err)
	}

	return c.JSON(ok)
}

// PasswordResetConfirm consumes a reset link. The token embeds a
// fingerprint of the hash it was issued against, so once the password
// changes the link stops matching and cannot be replayed.
func (a *AuthController) PasswordResetConfirm(c *fiber.Ctx) error {
	payload := new(PasswordResetConfirmRequest)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request payload"))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryValidation, err.Error()))
	}

	if a.ResetCodec == nil {
		return respondError(c, ErrTokenMalformed)
	}

	data, err := a.ResetCodec.Decode(payload.Token)
	if err != nil {
		return respondError(c, err)
	}

	user, err := a.Accounts.FindByEmail(c.Context(), data["email"])
	if err != nil {
		return respondError(c, err)
	}

	if data["sig"] != PasswordFingerprint(user.PasswordHash) {
		return respondError(c, ErrTokenExpired)
	}

	if _, err := a.Accounts.ResetPassword(c.Context(), user.Email, payload.NewPassword); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "password updated successfully"})
}

// respondError maps the typed error taxonomy onto stable wire responses.
func respondError(c *fiber.Ctx, err error) error {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "internal server error",
		})
	}

	status := fiber.StatusInternalServerError
	switch rich.Category {
	case errors.CategoryConflict:
		// duplicate registrations surface as forbidden, not 409
		status = fiber.StatusForbidden
	case errors.CategoryNotFound:
		status = fiber.StatusNotFound
	case errors.CategoryAuth:
		status = fiber.StatusUnauthorized
		if rich.Code == errors.CodeForbidden {
			status = fiber.StatusForbidden
		}
	case errors.CategoryValidation, errors.CategoryBadInput:
		status = fiber.StatusBadRequest
	}

	body := fiber.Map{"message": rich.Message}
	if rich.TextCode != "" {
		body["code"] = rich.TextCode
	}

	return c.Status(status).JSON(body)
}
