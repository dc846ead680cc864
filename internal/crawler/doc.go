// Package crawler fetches contests, difficulties, problems, users and
// submissions from the remote clients and upserts them into the relational
// store. Every run is recorded in a history table so an interrupted run is
// visible and the submission crawler can resume from a watermark.
//
// Crawling is sequential per remote resource: one request in flight at a
// time, with a fixed delay after every page.
package crawler
