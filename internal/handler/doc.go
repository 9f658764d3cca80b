// Package handler defines the download handler contract and the registry
// that maps a URL's origin to the handler responsible for it.
//
// Handlers come from two places: compiled-in registrations passed to
// Registry.Register, and Go plugins (*.so) found in the plugin directory.
// A plugin exports
//
//	func DownloadHandlers() []handler.Registration
//
// and its registrations shadow compiled-in ones for the same origin.
package handler
