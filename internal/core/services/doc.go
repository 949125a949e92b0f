// Package services implements the driving port interfaces.
// Services contain the core pipeline logic and orchestrate
// calls to driven ports (adapters): the write path from raw
// transcript to stored vectors, the query path from question
// to ranked chunks, and answer generation on top of both.
package services
