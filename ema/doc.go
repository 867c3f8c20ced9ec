// Package ema implements the request/reply client for the sample-mounting robot controller.
//
// A Client sends one command per TCP session through a transport.Exchanger and classifies
// the reply against the caller's Expectation:
//
//  1. the reply equals the expected token: success;
//  2. the reply carries the fail result: *CommandError (ErrCommandFailed);
//  3. an expected token was given and the reply differs: *UnexpectedReplyError (ErrUnexpectedReply);
//  4. no token was given: success.
//
// A fail reply is only accepted when it is exactly the token passed to ExpectSpecific;
// there is no "any failure is fine" mode. Nothing is retried; retry policy belongs to the caller.
//
// Example:
//
//	cfg, err := ema.NewConnectionConfig("10.0.0.5", 10000, ema.WithTimeout(30*time.Second))
//	if err != nil {
//		return err
//	}
//	client := ema.NewClient(cfg)
//	reply, err := client.Send(ctx, "setCoords:#X7#Y4;", ema.ExpectSuccess("setCoords:done;"))
package ema
