// Package auth provides JWT-based authentication for the bazaar API.
//
// Tokens are HS256-signed bearer tokens carrying the principal ID in the
// "sub" claim. HTTPAuthMiddleware verifies the token, checks the principal's
// lifecycle status, loads its roles, and attaches an AuthContext to the
// request context. Handlers read it back with FromContext; role checks
// happen in the market service as guard clauses before any mutation.
package auth
