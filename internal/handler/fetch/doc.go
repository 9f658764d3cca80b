// Package fetch is the toolkit download handlers are written against: a
// retrying HTTP client, bounded parallel file downloads, file-name
// sanitizing and directory archiving.
//
// The built-in direct handler only needs Client.DownloadFile. The rest of the
// package serves plugin handlers, which import it from their own module:
// a gallery or chapter plugin typically lists its pages, calls DownloadAll
// with the maxThreads value the worker passed to Download, and finishes with
// ZipDirectory so the library picks up a single archive. ExistsWithAnyExtension
// lets such a plugin skip items already on disk.
package fetch
