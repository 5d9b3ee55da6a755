// Package connection provides the HTTP client securestore-cli uses to talk
// to a securestore-server.
//
// Requests carry the API token as a bearer credential. Responses are
// unwrapped from the server's {code,message,request_id,data} envelope;
// error envelopes become *APIError.
package connection
