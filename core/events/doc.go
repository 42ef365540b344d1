// Package events defines the typed messages processed by the orchestrator's
// single event queue.
//
// Event kinds are grouped by source:
//
//   - command.*: requests from the user or the embedding program.
//   - capture.*: speech input session lifecycle.
//   - playback.*: speech output lifecycle.
//   - inference.*: completion of the pending inference request.
//   - ambient.*: background timers and remark requests.
//
// Events coming from asynchronous sources carry the Epoch of the session,
// utterance or request that produced them. The orchestrator compares it
// with the epoch it currently owns and drops stale events.
package events
