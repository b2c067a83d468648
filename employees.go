// Package employees is a client for a hypermedia (HAL) employee API.
//
// The client keeps one consistent page of the employee collection on display
// and works with four independent systems:
//  1. Page System - resolves pages by following links from the API root
//  2. Mutation System - create, update (If-Match) and delete of records
//  3. Event System - STOMP notifications that refresh the page on display
//  4. State System - generation-ordered page states with subscribers
//
// Architecture: callers act on the current state, the library handles the
// link traversal, concurrency tokens and refresh after remote changes.
package employees
