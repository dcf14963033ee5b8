// Package authcore is the authentication security core of the provafacil
// exam-preparation platform: device-trust tracking, progressive account
// lockout and mandatory one-time-code verification gating both login and
// registration.
//
// The package decides, for every credential submission, whether the caller
// becomes authenticated immediately, must complete a second factor, or is
// rejected. Session state never reaches Authenticated except through a
// correct login on a known device or a consumed, non-expired verification
// code; codes are single-use and their consumption is atomic per account.
//
// State lives in Redis behind three stores (lockouts, verification codes,
// trusted devices); the account database is reached through the
// AccountStore interface supplied by the host application. Structured
// domain events flow to a Sink for the presentation layer to render; the
// core never formats user-facing text.
//
// Construction goes through the Builder:
//
//	ctrl, err := authcore.New().
//		WithRedis(redisClient).
//		WithAccountStore(store).
//		WithEventSink(sink).
//		Build()
package authcore
