// Package httpapi exposes the file service over JSON/HTTP.
//
// Every /files route requires an HS256 bearer token whose "sub" claim is the
// numeric user ID and whose "role" claim is viewer, editor or admin. Errors
// are rendered as {"error":{"code","message","request_id"}}.
package httpapi
