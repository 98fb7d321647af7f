// Package inference adapts an image classifier to the tile pipeline.
//
// A Model maps a batch of frames to one raw output vector per frame, in
// input order. The Stage calls the model once per batch, normalises the
// outputs with its Activation and attaches them to the batch as scores.
// A failing call ends the session with a CAPABILITY_ERROR; batches are
// never retried.
//
// The model is owned by the caller and outlives every session.
package inference
