// Package auth protects the turn endpoint with bearer JWTs.
//
// Tokens are HS256, signed with the configured jwt_secret, issued by "botbridge" and carry
// the caller's identity in the "sub" claim. RequireBearer rejects requests without a valid
// token and attaches the verified Claims to the request context for handlers and logs.
//
// The botbridge token command mints tokens with JWTVerifier.Generate.
package auth
