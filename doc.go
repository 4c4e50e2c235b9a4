// Package identity issues, validates, and revokes identity tokens for a
// user-facing API and manages the user-account lifecycle: registration,
// email verification, credential checks, and role-gated access.
//
// The package is organized around a small set of collaborators that are
// constructed once at process start and passed into request-scoped
// handlers:
//
//   - TokenService signs and decodes access/refresh token pairs.
//   - URLTokenCodec signs short-lived URL-safe tokens for verification
//     and password-reset links.
//   - RevocationStore is the jti deny-list consulted by the guards.
//   - AccountService orchestrates user storage through RepositoryManager.
//   - AuthController exposes the HTTP surface on fiber.
//
// See cmd/identityd for the server wiring.
package identity
