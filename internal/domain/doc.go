// Package domain contains the persisted entities of the archiver: the
// pending queue item and the failed download record, together with
// their validation rules.
package domain
