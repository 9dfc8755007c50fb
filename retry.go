package flexlimit

import "fmt"

// RetryStrategy governs how a Coordinator responds to either transient
// backend errors (failureStrategy) or CAS conflicts (conflictStrategy). Both
// policies share this one type: a number of additional attempts beyond the
// first, and a fallback verdict once those attempts are exhausted.
//
// Construct one with RetryAndAllow, RetryAndDeny, Allow or Deny — there is
// no exported struct literal form.
type RetryStrategy struct {
	retries           int
	allowOnExhaustion bool
}

// RetryAndAllow retries up to n additional times, then allows the request
// if every attempt still failed (fail open).
func RetryAndAllow(n int) RetryStrategy {
	return RetryStrategy{retries: n, allowOnExhaustion: true}
}

// RetryAndDeny retries up to n additional times, then denies the request if
// every attempt still failed (fail closed).
func RetryAndDeny(n int) RetryStrategy {
	return RetryStrategy{retries: n, allowOnExhaustion: false}
}

// Allow makes exactly one attempt and allows the request if it fails.
// Equivalent to RetryAndAllow(0).
func Allow() RetryStrategy {
	return RetryStrategy{retries: 0, allowOnExhaustion: true}
}

// Deny makes exactly one attempt and denies the request if it fails.
// Equivalent to RetryAndDeny(0).
func Deny() RetryStrategy {
	return RetryStrategy{retries: 0, allowOnExhaustion: false}
}

// attempts is the total number of tries (the first, plus retries).
func (r RetryStrategy) attempts() int { return r.retries + 1 }

func (r RetryStrategy) String() string {
	verb := "deny"
	if r.allowOnExhaustion {
		verb = "allow"
	}
	return fmt.Sprintf("retry(%d)-then-%s", r.retries, verb)
}
