// Package httpclient sends API requests on behalf of a session.
//
// A [Client] reads the token and app URL from a [session.Store] for every call, puts
// the token in the configured header and sends the request through resty. When the
// server answers 401 or 403 the client asks its [auth.Refresher] for a new token
// (one refresh at a time, shared by every caller waiting on the same [auth.Gate]),
// stores it and replays the request once.
//
// Every outcome is normalized into a [response.Raw] envelope:
//
//	raw, err := client.Get(ctx, "/users", url.Values{"page": {"2"}})
//	if errors.Is(err, httpclient.ErrSessionExpired) {
//		// the store has been logged out
//	}
//
// Use [Do] to decode the envelope data into a type:
//
//	res, err := httpclient.Do[[]User](ctx, client, httpclient.RequestConfig{URL: "/users"}, true)
//
// Throttled (429) and server error (5xx) responses and transport failures are retried
// by resty when Options.Retries is set; auth failures only go through the refresh path.
package httpclient
