// Package api handles incoming HTTP requests for the download queue: request
// validation, error mapping and response formatting. Handlers translate HTTP
// concerns into store operations; routing is assembled by the server binary.
package api
